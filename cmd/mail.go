package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var mailCmd = &cobra.Command{
	Use:   "mail <definition file>",
	Short: "Render a report and deliver it through the configured transport",
	Long: `Renders the definition and hands it to the outbox, which records the
delivery and sends it by SMTP or webhook. Recipients, senders and subject
default to the definition's mail block, then to the config.`,
	Args: cobra.ExactArgs(1),
	RunE: runMail,
}

func init() {
	mailCmd.Flags().StringSlice("to", nil, "recipient addresses")
	mailCmd.Flags().StringSlice("from", nil, "sender addresses")
	mailCmd.Flags().String("subject", "", "message subject")
	rootCmd.AddCommand(mailCmd)
}

func runMail(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	def, rep, err := buildReport(args[0], cfg, logger)
	if err != nil {
		return err
	}

	to, _ := cmd.Flags().GetStringSlice("to")
	from, _ := cmd.Flags().GetStringSlice("from")
	subject, _ := cmd.Flags().GetString("subject")

	if def.Mail != nil {
		if len(to) == 0 {
			to = def.Mail.To
		}
		if len(from) == 0 {
			from = def.Mail.From
		}
		if subject == "" {
			subject = def.Mail.Subject
		}
	}
	if len(from) == 0 && cfg.Mail.From != "" {
		from = []string{cfg.Mail.From}
	}
	if subject == "" {
		subject = cfg.Mail.Subject
	}
	if subject == "" {
		subject = rep.Title()
	}
	if len(to) == 0 {
		return fmt.Errorf("no recipients: pass --to or add mail.to to %s", args[0])
	}

	outbox, database, err := openOutbox(cfg, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := rep.MailTo(cmd.Context(), outbox, subject, to, from); err != nil {
		return fmt.Errorf("%w\nThe delivery was kept; run `autoreport outbox retry` to send it again", err)
	}

	fmt.Fprintf(os.Stderr, "Sent %q to %d recipient(s)\n", subject, len(to))
	return nil
}

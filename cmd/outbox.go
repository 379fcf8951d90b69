package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/auto-report/internal/mail"
)

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Inspect and retry recorded deliveries",
}

var outboxListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded deliveries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		outbox, database, err := openOutbox(cfg, newLogger(cfg))
		if err != nil {
			return err
		}
		defer database.Close()

		filter := mail.ListFilter{}
		statuses, _ := cmd.Flags().GetStringSlice("status")
		for _, s := range statuses {
			filter.Status = append(filter.Status, mail.Status(s))
		}
		filter.Limit, _ = cmd.Flags().GetInt("limit")

		deliveries, err := outbox.Store().List(cmd.Context(), filter)
		if err != nil {
			return err
		}
		if len(deliveries) == 0 {
			fmt.Println("No deliveries recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tATTEMPTS\tCREATED\tSUBJECT\tTO\tERROR")
		for _, d := range deliveries {
			subject := d.Subject
			if len(subject) > 40 {
				subject = subject[:37] + "..."
			}
			errMsg := d.Error
			if errMsg == "" {
				errMsg = "-"
			} else if len(errMsg) > 50 {
				errMsg = errMsg[:47] + "..."
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
				d.ID, d.Status, d.Attempts, d.CreatedAt.Format("2006-01-02 15:04"),
				subject, strings.Join(d.Recipients, ","), errMsg)
		}
		return w.Flush()
	},
}

var outboxRetryCmd = &cobra.Command{
	Use:   "retry [delivery id]",
	Short: "Resend one delivery, or every pending and failed one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		outbox, database, err := openOutbox(cfg, newLogger(cfg))
		if err != nil {
			return err
		}
		defer database.Close()

		if len(args) == 1 {
			d, err := outbox.Retry(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Delivery %s sent after %d attempt(s)\n", d.ID, d.Attempts)
			return nil
		}

		sent, failed, err := outbox.RetryPending(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Retried %d delivery(ies): %d sent, %d failed\n", sent+failed, sent, failed)
		if failed > 0 {
			return fmt.Errorf("%d delivery(ies) still failing", failed)
		}
		return nil
	},
}

func init() {
	outboxListCmd.Flags().StringSlice("status", nil, "filter by status (pending, sent, failed)")
	outboxListCmd.Flags().Int("limit", 50, "maximum number of deliveries to show")
	outboxCmd.AddCommand(outboxListCmd, outboxRetryCmd)
	rootCmd.AddCommand(outboxCmd)
}

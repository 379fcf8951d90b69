package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "autoreport",
	Short: "Build HTML reports from YAML definitions and mail them",
	Long: `Auto Report turns YAML report definitions into email-friendly HTML.
Reports are trees of sections holding headers, text, links, images,
tables and plots. Rendered reports can be written to disk, previewed
with live reload, delivered by SMTP or webhook, or rendered for AI
agents over MCP.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".autoreport.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/auto-report/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing tools that render, outline and list the project's report definitions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		root, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving project root: %w", err)
		}

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		logger := newLogger(cfg)
		logger.Info().Str("root", root).Msg("autoreport MCP server started on stdio")

		srv := mcpserver.NewServer(root, cfg.Definitions, cfg.Exclude, buildRenderer(cfg))
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/auto-report/internal/config"
	"github.com/ziadkadry99/auto-report/internal/preview"
	"github.com/ziadkadry99/auto-report/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve [definition file]",
	Short: "Start the HTTP API and live preview server",
	Long: `Starts an HTTP server exposing the render and mail APIs. When a definition
file is given, /preview shows it rendered and reloads the browser whenever
the file or the directory it lives in changes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	port, _ := cmd.Flags().GetInt("port")
	if port == 0 {
		port = cfg.Server.Port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srvCfg := server.Config{
		Port:     port,
		AllowAll: cfg.Server.AllowAll,
		BaseDir:  ".",
	}
	var opts []server.Option

	if cfg.Mail.Transport != "" && cfg.Mail.Transport != config.TransportNone {
		outbox, database, err := openOutbox(cfg, logger)
		if err != nil {
			return err
		}
		defer database.Close()
		opts = append(opts, server.WithOutbox(outbox))
	} else {
		logger.Info().Msg("no mail transport configured; mail endpoints disabled")
	}

	if len(args) == 1 {
		srvCfg.PreviewPath = args[0]
		hub := preview.NewHub(logger)
		watcher, err := preview.NewWatcher([]string{args[0]}, preview.DefaultDebounce, hub.Notify, logger)
		if err != nil {
			return err
		}
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("file watcher stopped")
			}
		}()
		opts = append(opts, server.WithHub(hub))
	}

	srv := server.New(srvCfg, logger, buildRenderer(cfg), opts...)

	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nShutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	fmt.Fprintf(os.Stderr, "autoreport server %s starting on port %d\n", Version, port)
	if srvCfg.PreviewPath != "" {
		fmt.Fprintf(os.Stderr, "  Preview: http://localhost:%d/preview\n", port)
	}
	return srv.Start()
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/auto-report/internal/config"
	"github.com/ziadkadry99/auto-report/internal/db"
	"github.com/ziadkadry99/auto-report/internal/definition"
	"github.com/ziadkadry99/auto-report/internal/logging"
	"github.com/ziadkadry99/auto-report/internal/mail"
	"github.com/ziadkadry99/auto-report/internal/render"
	"github.com/ziadkadry99/auto-report/internal/report"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `autoreport init` to create a config file", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger returns the stderr logger for a command. Stdout stays free for
// command output and the MCP protocol.
func newLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(cfg.Log, os.Stderr)
}

func buildRenderer(cfg *config.Config) *render.HTMLRenderer {
	var opts []render.Option
	if cfg.Render.UnsafeHTML {
		opts = append(opts, render.WithUnsafeHTML())
	}
	if cfg.Render.PlotWidth > 0 && cfg.Render.PlotHeight > 0 {
		opts = append(opts, render.WithPlotSize(cfg.Render.PlotWidth, cfg.Render.PlotHeight))
	}
	return render.NewHTMLRenderer(opts...)
}

// buildReport loads a definition file and builds its report tree.
func buildReport(path string, cfg *config.Config, logger zerolog.Logger) (*definition.Definition, *report.Report, error) {
	def, err := definition.Load(path)
	if err != nil {
		return nil, nil, err
	}
	// Definitions inside the project may reference files anywhere in it.
	if definition.Within(".", path) {
		def.RootDir = "."
	}
	rep, err := definition.Build(def,
		report.WithRenderer(buildRenderer(cfg)),
		report.WithObserver(report.LogObserver(logger.With().Str("report", def.Name()).Logger())),
	)
	if err != nil {
		return nil, nil, err
	}
	return def, rep, nil
}

// buildTransport creates the configured mail transport.
func buildTransport(cfg *config.Config) (mail.Transport, error) {
	timeout := time.Duration(cfg.Mail.TimeoutSeconds) * time.Second
	switch cfg.Mail.Transport {
	case config.TransportSMTP:
		s := cfg.Mail.SMTP
		return mail.NewSMTPTransport(s.Host, s.Port, s.Username, cfg.SMTPPassword(), cfg.Mail.From), nil
	case config.TransportWebhook:
		return mail.NewWebhookTransport(cfg.Mail.WebhookURL, timeout), nil
	default:
		return nil, fmt.Errorf("no mail transport configured; set mail.transport in %s", cfgFile)
	}
}

// openOutbox opens the delivery database and wraps it in an outbox. The
// returned database must be closed by the caller.
func openOutbox(cfg *config.Config, logger zerolog.Logger) (*mail.Outbox, *db.DB, error) {
	transport, err := buildTransport(cfg)
	if err != nil {
		return nil, nil, err
	}
	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	outbox := mail.NewOutbox(mail.NewStore(database), transport,
		mail.WithLogger(logger),
		mail.WithDocument(),
	)
	return outbox, database, nil
}

// outputPath maps a definition file to its HTML file under outDir, keeping
// the definition's directory layout when it lives below the working
// directory.
func outputPath(outDir, defPath string) string {
	rel, err := filepath.Rel(".", defPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		rel = filepath.Base(defPath)
	}
	return filepath.Join(outDir, strings.TrimSuffix(rel, filepath.Ext(rel))+".html")
}

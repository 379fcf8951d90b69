package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/auto-report/internal/config"
	"github.com/ziadkadry99/auto-report/internal/definition"
	"github.com/ziadkadry99/auto-report/internal/progress"
	"github.com/ziadkadry99/auto-report/internal/render"
)

var renderCmd = &cobra.Command{
	Use:   "render [definition files...]",
	Short: "Render report definitions to HTML files",
	Long: `Renders each definition to an HTML page under the output directory.
Without arguments, every file matching the configured definition patterns
is rendered.`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringP("out", "o", "", "output directory (overrides config)")
	renderCmd.Flags().Bool("fragment", false, "write the bare report table instead of a full page")
	renderCmd.Flags().Bool("outline", false, "print the report tree instead of rendering")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	start := time.Now()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	outDir, _ := cmd.Flags().GetString("out")
	if outDir == "" {
		outDir = cfg.OutputDir
	}
	fragmentOnly, _ := cmd.Flags().GetBool("fragment")
	outlineOnly, _ := cmd.Flags().GetBool("outline")

	paths := args
	if len(paths) == 0 {
		paths, err = definition.Discover(".", cfg.Definitions, cfg.Exclude)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no report definitions match %v", cfg.Definitions)
		}
	}

	if outlineOnly {
		for _, path := range paths {
			_, rep, err := buildReport(path, cfg, logger)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Print(definition.Outline(rep))
		}
		return nil
	}

	reporter := progress.NewReporter(os.Stderr)
	reporter.Start(len(paths))

	var failed int
	for i, path := range paths {
		reporter.Update(i+1, filepath.Base(path))

		dest := outputPath(outDir, path)
		if err := renderOne(path, dest, fragmentOnly, cfg, logger); err != nil {
			failed++
			logger.Error().Err(err).Str("file", path).Msg("render failed")
			continue
		}
		logger.Debug().Str("file", path).Str("output", dest).Msg("report rendered")
	}
	reporter.Finish()

	fmt.Fprintf(os.Stderr, "Rendered %d/%d report(s) to %s in %s\n",
		len(paths)-failed, len(paths), outDir, time.Since(start).Round(time.Millisecond))
	if failed > 0 {
		return fmt.Errorf("%d report(s) failed to render", failed)
	}
	return nil
}

func renderOne(path, dest string, fragmentOnly bool, cfg *config.Config, logger zerolog.Logger) error {
	_, rep, err := buildReport(path, cfg, logger)
	if err != nil {
		return err
	}
	fragment, err := rep.Generate()
	if err != nil {
		return err
	}
	if fragmentOnly {
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		return os.WriteFile(dest, []byte(fragment), 0o644)
	}
	return render.WriteDocument(dest, fragment, render.DocumentOptions{Title: rep.Title()})
}

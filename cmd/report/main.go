package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"samadhi-report-ui/internal/config"
	"samadhi-report-ui/internal/connectors/statsfile"
	"samadhi-report-ui/internal/logging"
	"samadhi-report-ui/internal/report"
)

var version = "dev"

// app carries what every subcommand needs, built once in PersistentPreRunE.
type app struct {
	cfg     config.Config
	log     zerolog.Logger
	dataDir string
	dataURL string
}

func main() {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "samadhi-report",
		Short:         "Browse, export and regenerate the SAMADhi catalogue reports",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.cfg = config.FromEnv()
			if cmd.Flags().Changed("data-dir") {
				a.cfg.DataDir = a.dataDir
			}
			if cmd.Flags().Changed("data-url") {
				a.cfg.DataURL = a.dataURL
			}
			a.log = logging.Default(a.cfg.LogLevel, a.cfg.LogFormat)
			return a.cfg.Validate()
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "directory holding the statistics documents (overrides APP_DATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&a.dataURL, "data-url", "", "base URL of the statistics documents (overrides APP_DATA_URL)")

	rootCmd.AddCommand(
		newServeCmd(a),
		newShowCmd(a),
		newExportCmd(a),
		newGenerateCmd(a),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loader builds the statistics loader the configuration selects.
func (a *app) loader() (*statsfile.Loader, error) {
	pages, err := report.LoadCatalogFile(a.cfg.PagesFile)
	if err != nil {
		return nil, err
	}
	var source statsfile.Source = statsfile.NewDirSource(a.cfg.DataDir)
	if src := statsfile.NewHTTPSource(a.cfg.DataURL, a.cfg.FetchTimeout); src.Enabled() {
		source = src
	}
	return statsfile.NewLoader(source, pages, a.log), nil
}

// logIssues reports the degraded panels of a rendered page at warn level.
func (a *app) logIssues(doc *report.Document) {
	for _, is := range doc.Issues {
		a.log.Warn().Str("report", string(doc.Type)).Str("issue", string(is.Kind)).Str("key", is.Key).Str("panel", is.Panel).Msg("report panel degraded")
	}
}

func (a *app) theme() (*report.Theme, error) {
	return report.NewTheme(a.cfg.Palette)
}

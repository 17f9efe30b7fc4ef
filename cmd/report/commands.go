package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"samadhi-report-ui/internal/connectors/catalog"
	httpapi "samadhi-report-ui/internal/http"
	"samadhi-report-ui/internal/render"
	"samadhi-report-ui/internal/report"
)

func newServeCmd(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the report pages over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen != "" {
				a.cfg.ListenAddr = listen
			}
			srv, err := httpapi.NewServer(a.cfg, a.log)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info().Str("version", version).Str("addr", a.cfg.ListenAddr).Msg("starting API server")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, nethttp.ErrServerClosed) {
					return nil
				}
				return err
			case <-cmd.Context().Done():
				a.log.Info().Msg("shutting down")
				ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
				defer cancel()
				return srv.Shutdown(ctx)
			}
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides APP_LISTEN_ADDR)")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	var width int

	cmd := &cobra.Command{
		Use:   "show [type...]",
		Short: "Print report pages to the terminal",
		Long: `Print one or more report pages as text panels. Without arguments every
page is shown. Types are analysis, result, dataset and sample (plurals accepted).

Example: samadhi-report show dataset sample --data-dir /var/www/samadhi/data`,
		RunE: func(cmd *cobra.Command, args []string) error {
			types, err := parseTypes(args)
			if err != nil {
				return err
			}
			loader, err := a.loader()
			if err != nil {
				return err
			}
			theme, err := a.theme()
			if err != nil {
				return err
			}
			if width <= 0 {
				width = render.TerminalWidth()
			}

			// The loader logs each failure; only the count is returned here.
			failed := 0
			for _, res := range loader.LoadAll(cmd.Context(), types...) {
				if res.Err != nil {
					failed++
					continue
				}
				doc := res.Page.Render(res.Payload, theme)
				a.logIssues(doc)
				if err := render.Terminal(cmd.OutOrStdout(), doc, width); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d report(s) could not be loaded", failed)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 0, "output width in columns (default: terminal width)")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export <type>",
		Short: "Export one report page as a workbook, a standalone chart page or JSON",
		Long: `Export one report page.

Formats:
  xlsx     one sheet per chart and per non-empty anomaly list
  echarts  self-contained HTML page drawing the charts with ECharts
  json     the rendered document, including issues

Example: samadhi-report export sample --format xlsx -o samples.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := report.ParseReportType(args[0])
			if err != nil {
				return err
			}
			loader, err := a.loader()
			if err != nil {
				return err
			}
			theme, err := a.theme()
			if err != nil {
				return err
			}
			page, payload, err := loader.Load(cmd.Context(), t)
			if errors.Is(err, report.ErrLoadFailure) {
				return fmt.Errorf("%s report could not be loaded", t)
			}
			if err != nil {
				return err
			}
			doc := page.Render(payload, theme)
			a.logIssues(doc)

			write, err := exportWriter(format, theme)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return write(cmd.OutOrStdout(), doc)
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := write(f, doc); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "xlsx", "export format: xlsx, echarts or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func newGenerateCmd(a *app) *cobra.Command {
	var (
		out        string
		previous   string
		checkPaths bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Recompute the statistics documents from the catalogue database",
		Long: `Query the SAMADhi tables and write stats.json plus the four report documents.

Sections that cannot be derived from the database (external consistency
checks, and path checks unless --check-paths is set) are carried forward
from the previous documents.

The database is selected by APP_CATALOG_DRIVER (mysql or sqlite) and the
APP_DB_* / APP_CATALOG_SQLITE_PATH settings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				out = a.cfg.DataDir
			}
			if previous == "" {
				previous = out
			}
			store, err := catalog.NewStore(a.cfg)
			if err != nil {
				return fmt.Errorf("open catalogue database: %w", err)
			}
			defer store.Close()

			start := time.Now()
			artifacts, err := store.Generate(cmd.Context(), catalog.Options{PreviousDir: previous, CheckPaths: checkPaths})
			if err != nil {
				return err
			}
			if err := catalog.WriteArtifacts(out, artifacts); err != nil {
				return err
			}
			a.log.Info().
				Str("database", store.Describe()).
				Str("dir", out).
				Int64("datasets", artifacts.General.Datasets).
				Int64("samples", artifacts.General.Samples).
				Int64("results", artifacts.General.Results).
				Int64("analyses", artifacts.General.Analyses).
				Dur("duration", time.Since(start)).
				Msg("statistics generated")
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory (default: APP_DATA_DIR)")
	cmd.Flags().StringVar(&previous, "previous", "", "directory of the previous documents (default: the output directory)")
	cmd.Flags().BoolVar(&checkPaths, "check-paths", false, "check sample and result paths on this host")
	return cmd
}

func exportWriter(format string, theme *report.Theme) (func(io.Writer, *report.Document) error, error) {
	switch strings.ToLower(format) {
	case "xlsx":
		return render.Workbook, nil
	case "echarts", "html":
		return func(w io.Writer, doc *report.Document) error {
			return render.ECharts(w, doc, theme.Palette())
		}, nil
	case "json":
		return func(w io.Writer, doc *report.Document) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		}, nil
	default:
		return nil, fmt.Errorf("unknown export format %q (want xlsx, echarts or json)", format)
	}
}

func parseTypes(args []string) ([]report.ReportType, error) {
	if len(args) == 1 && strings.EqualFold(args[0], "all") {
		return nil, nil
	}
	out := make([]report.ReportType, 0, len(args))
	for _, arg := range args {
		t, err := report.ParseReportType(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

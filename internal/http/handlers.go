package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"samadhi-report-ui/internal/connectors/catalog"
	"samadhi-report-ui/internal/render"
	"samadhi-report-ui/internal/report"
)

const (
	loadFailedMessage = "report data could not be loaded"
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// renderedReport is the outcome of one load-and-render cycle.
type renderedReport struct {
	page *report.Page
	doc  *report.Document
	err  error
}

// loadReport resolves the {type} parameter, loads its document once and
// renders it. An unknown type is answered with 404 here and reported as
// handled=false. A load failure leaves the unpopulated document in place.
func loadReport(d Deps, w nethttp.ResponseWriter, r *nethttp.Request) (renderedReport, bool) {
	t, err := report.ParseReportType(chi.URLParam(r, "type"))
	if err == nil {
		_, err = d.Loader.Catalog().Page(t)
	}
	if err != nil {
		writeJSON(w, nethttp.StatusNotFound, map[string]any{"error": err.Error()})
		return renderedReport{}, false
	}

	page, payload, err := d.Loader.Load(r.Context(), t)
	if err != nil {
		return renderedReport{page: page, doc: page.NewDocument(), err: err}, true
	}

	doc := page.Render(payload, d.Theme)
	recordRender(doc)
	logIssues(zerolog.Ctx(r.Context()), doc)
	return renderedReport{page: page, doc: doc}, true
}

func logIssues(log *zerolog.Logger, doc *report.Document) {
	for _, is := range doc.Issues {
		log.Warn().
			Str("report", string(doc.Type)).
			Str("issue", string(is.Kind)).
			Str("key", is.Key).
			Str("panel", is.Panel).
			Int("index", is.Index).
			Str("detail", is.Detail).
			Msg("report panel degraded")
	}
}

func navItems(c *report.Catalog, active report.ReportType) []render.NavItem {
	out := make([]render.NavItem, 0, len(c.Pages))
	for _, p := range c.Pages {
		out = append(out, render.NavItem{
			Type:   p.Type,
			Title:  navTitle(p.Type),
			Href:   "/reports/" + string(p.Type),
			Active: p.Type == active,
		})
	}
	return out
}

func navTitle(t report.ReportType) string {
	switch t {
	case report.Analysis:
		return "Analyses"
	case report.Result:
		return "Results"
	case report.Dataset:
		return "Datasets"
	case report.Sample:
		return "Samples"
	}
	return string(t)
}

func writeHTML(w nethttp.ResponseWriter, code int, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}

func indexHandler(d Deps) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		view := render.IndexView{
			Title: "Overview",
			Nav:   navItems(d.Loader.Catalog(), ""),
		}
		code := nethttp.StatusOK
		general, err := d.Loader.LoadGeneral(r.Context())
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("general statistics load failed")
			view.Error = loadFailedMessage
			code = nethttp.StatusBadGateway
		}
		view.General = general

		var buf bytes.Buffer
		if err := d.HTML.Index(&buf, view); err != nil {
			writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": "failed to render index"})
			return
		}
		writeHTML(w, code, &buf)
	}
}

func reportPageHandler(d Deps) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		rr, ok := loadReport(d, w, r)
		if !ok {
			return
		}
		view := render.ReportView{Doc: rr.doc, Nav: navItems(d.Loader.Catalog(), rr.page.Type)}
		code := nethttp.StatusOK
		if rr.err != nil {
			view.Error = loadFailedMessage
			code = nethttp.StatusBadGateway
		}

		var buf bytes.Buffer
		if err := d.HTML.Report(&buf, view); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("report page render failed")
			writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": "failed to render report"})
			return
		}
		writeHTML(w, code, &buf)
	}
}

func echartsHandler(d Deps) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		rr, ok := loadReport(d, w, r)
		if !ok {
			return
		}
		if rr.err != nil {
			writeJSON(w, nethttp.StatusBadGateway, map[string]any{"error": loadFailedMessage})
			return
		}

		var buf bytes.Buffer
		if err := render.ECharts(&buf, rr.doc, d.Theme.Palette()); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("echarts render failed")
			writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": "failed to render charts"})
			return
		}
		writeHTML(w, nethttp.StatusOK, &buf)
	}
}

func reportAPIHandler(d Deps) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		rr, ok := loadReport(d, w, r)
		if !ok {
			return
		}
		if rr.err != nil {
			writeJSON(w, nethttp.StatusBadGateway, map[string]any{"error": loadFailedMessage})
			return
		}

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{
				"type":         rr.doc.Type,
				"resource":     rr.page.Resource,
				"source":       d.Loader.Source().Describe(),
				"charts":       rr.doc.ChartCount(),
				"populated":    rr.doc.Populated(),
				"issues":       len(rr.doc.Issues),
				"generated_at": time.Now().UTC(),
			},
			"data": rr.doc,
		})
	}
}

func exportHandler(d Deps) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		rr, ok := loadReport(d, w, r)
		if !ok {
			return
		}
		if rr.err != nil {
			writeJSON(w, nethttp.StatusBadGateway, map[string]any{"error": loadFailedMessage})
			return
		}

		var buf bytes.Buffer
		if err := render.Workbook(&buf, rr.doc); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("workbook export failed")
			writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": "failed to build workbook"})
			return
		}
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="samadhi-%s.xlsx"`, rr.doc.Type))
		w.WriteHeader(nethttp.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}

func pagesHandler(d Deps) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		pages := d.Loader.Catalog().Pages
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{"count": len(pages)},
			"data": pages,
		})
	}
}

// generateHandler recomputes the statistics documents from the catalogue
// database and replaces the files in the data directory.
func generateHandler(d Deps) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if d.Catalog == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"error": "catalogue database disabled (set APP_CATALOG_ENABLED=true)",
			})
			return
		}

		start := time.Now()
		artifacts, err := d.Catalog.Generate(r.Context(), d.Generate)
		if err == nil {
			err = catalog.WriteArtifacts(d.DataDir, artifacts)
		}
		recordDBQuery("catalog", "Generate", time.Since(start).Seconds(), err)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("statistics generation failed")
			status := nethttp.StatusInternalServerError
			if errors.Is(err, context.DeadlineExceeded) {
				status = nethttp.StatusGatewayTimeout
			}
			writeJSON(w, status, map[string]any{"error": "failed to generate statistics"})
			return
		}

		if d.Cache != nil {
			if err := d.Cache.Invalidate(r.Context(), catalog.ArtifactNames()...); err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Msg("statistics cache invalidation failed")
			}
		}

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{
				"duration_ms": time.Since(start).Milliseconds(),
				"dir":         d.DataDir,
				"files":       catalog.ArtifactNames(),
			},
			"data": artifacts.General,
		})
	}
}

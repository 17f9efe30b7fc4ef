package http

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"samadhi-report-ui/internal/report"
)

const metricPrefix = "samadhi_report_"

var (
	appStartedAtUnix = time.Now().Unix()
	inFlightRequests int64
	metricsMu        sync.Mutex
	httpSeries       = map[httpMetricKey]*durationSeries{}
	loadSeries       = map[loadMetricKey]*durationSeries{}
	dbQuerySeries    = map[probeMetricKey]*durationSeries{}
	externalSeries   = map[probeMetricKey]*durationSeries{}
	panelSeries      = map[panelMetricKey]uint64{}
	issueSeries      = map[issueMetricKey]uint64{}
)

type httpMetricKey struct {
	Method string
	Path   string
	Status string
}

type loadMetricKey struct {
	Type    string
	Outcome string
}

type probeMetricKey struct {
	Target    string
	Operation string
}

type panelMetricKey struct {
	Type    string
	Outcome string
}

type issueMetricKey struct {
	Type string
	Kind string
}

type durationSeries struct {
	Count              uint64
	Errors             uint64
	DurationSecondsSum float64
}

// labeled is one sample of a metric family, labels already rendered.
type labeled struct {
	labels string
	series durationSeries
}

func metricsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		metricsMu.Lock()
		httpRows := make([]labeled, 0, len(httpSeries))
		for k, s := range httpSeries {
			httpRows = append(httpRows, labeled{
				labels: fmt.Sprintf("method=%q,path=%q,status=%q", escapeLabel(k.Method), escapeLabel(k.Path), escapeLabel(k.Status)),
				series: *s,
			})
		}
		loadRows := make([]labeled, 0, len(loadSeries))
		for k, s := range loadSeries {
			loadRows = append(loadRows, labeled{
				labels: fmt.Sprintf("type=%q,outcome=%q", escapeLabel(k.Type), escapeLabel(k.Outcome)),
				series: *s,
			})
		}
		dbRows := probeRows(dbQuerySeries, "connector")
		externalRows := probeRows(externalSeries, "target")
		panelRows := make([]labeled, 0, len(panelSeries))
		for k, n := range panelSeries {
			panelRows = append(panelRows, labeled{
				labels: fmt.Sprintf("type=%q,outcome=%q", escapeLabel(k.Type), escapeLabel(k.Outcome)),
				series: durationSeries{Count: n},
			})
		}
		issueRows := make([]labeled, 0, len(issueSeries))
		for k, n := range issueSeries {
			issueRows = append(issueRows, labeled{
				labels: fmt.Sprintf("type=%q,kind=%q", escapeLabel(k.Type), escapeLabel(k.Kind)),
				series: durationSeries{Count: n},
			})
		}
		metricsMu.Unlock()

		for _, rows := range [][]labeled{httpRows, loadRows, dbRows, externalRows, panelRows, issueRows} {
			sort.Slice(rows, func(i, j int) bool { return rows[i].labels < rows[j].labels })
		}

		writeFamily(w, "http_requests_total", "counter", "Total HTTP requests handled by this app.", httpRows, count)
		writeFamily(w, "http_request_duration_seconds_sum", "counter", "Total duration in seconds for observed requests.", httpRows, durationSum)
		writeFamily(w, "http_request_duration_seconds_count", "counter", "Number of observed requests in duration series.", httpRows, count)
		writeGauge(w, "http_in_flight_requests", "In-flight HTTP requests currently served by this app.", strconv.FormatInt(atomic.LoadInt64(&inFlightRequests), 10))

		writeFamily(w, "statistics_loads_total", "counter", "Statistics document loads by report type and outcome.", loadRows, count)
		writeFamily(w, "statistics_load_duration_seconds_sum", "counter", "Statistics load duration sum in seconds by report type and outcome.", loadRows, durationSum)
		writeFamily(w, "panels_rendered_total", "counter", "Rendered panels by report type and outcome (bound, empty).", panelRows, count)
		writeFamily(w, "render_issues_total", "counter", "Non-fatal render issues by report type and kind.", issueRows, count)

		writeFamily(w, "db_query_duration_seconds_sum", "counter", "Catalogue database duration sum in seconds by connector/operation.", dbRows, durationSum)
		writeFamily(w, "db_query_duration_seconds_count", "counter", "Catalogue database observation count by connector/operation.", dbRows, count)
		writeFamily(w, "db_query_errors_total", "counter", "Catalogue database errors by connector/operation.", dbRows, errorCount)

		writeFamily(w, "external_probe_duration_seconds_sum", "counter", "External probe duration sum in seconds by target/operation.", externalRows, durationSum)
		writeFamily(w, "external_probe_duration_seconds_count", "counter", "External probe observation count by target/operation.", externalRows, count)
		writeFamily(w, "external_probe_errors_total", "counter", "External probe errors by target/operation.", externalRows, errorCount)

		uptime := time.Now().Unix() - appStartedAtUnix
		writeGauge(w, "uptime_seconds", "Process uptime in seconds.", strconv.FormatInt(uptime, 10))

		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		writeGauge(w, "runtime_goroutines", "Number of goroutines.", strconv.Itoa(runtime.NumGoroutine()))
		writeGauge(w, "runtime_memory_alloc_bytes", "Heap allocation bytes.", strconv.FormatUint(ms.Alloc, 10))
		writeCounter(w, "runtime_gc_total", "Total GC runs since process start.", strconv.FormatUint(uint64(ms.NumGC), 10))

		if cpuSec, ok := processCPUSeconds(); ok {
			writeCounter(w, "runtime_cpu_seconds_total", "Total CPU time consumed by this process in seconds.", fmt.Sprintf("%.6f", cpuSec))
		}
		if ios := processIOStats(); ios != nil {
			writeCounter(w, "runtime_io_read_bytes_total", "Bytes read by this process from storage.", strconv.FormatUint(ios.ReadBytes, 10))
			writeCounter(w, "runtime_io_write_bytes_total", "Bytes written by this process to storage.", strconv.FormatUint(ios.WriteBytes, 10))
		}
	})
}

func probeRows(m map[probeMetricKey]*durationSeries, targetLabel string) []labeled {
	out := make([]labeled, 0, len(m))
	for k, s := range m {
		out = append(out, labeled{
			labels: fmt.Sprintf("%s=%q,operation=%q", targetLabel, escapeLabel(k.Target), escapeLabel(k.Operation)),
			series: *s,
		})
	}
	return out
}

func count(s durationSeries) string       { return strconv.FormatUint(s.Count, 10) }
func errorCount(s durationSeries) string  { return strconv.FormatUint(s.Errors, 10) }
func durationSum(s durationSeries) string { return fmt.Sprintf("%.9f", s.DurationSecondsSum) }

func writeFamily(w io.Writer, name, kind, help string, rows []labeled, value func(durationSeries) string) {
	_, _ = fmt.Fprintf(w, "# HELP %s%s %s\n", metricPrefix, name, help)
	_, _ = fmt.Fprintf(w, "# TYPE %s%s %s\n", metricPrefix, name, kind)
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%s%s{%s} %s\n", metricPrefix, name, r.labels, value(r.series))
	}
}

func writeGauge(w io.Writer, name, help, value string) {
	writeScalar(w, name, "gauge", help, value)
}

func writeCounter(w io.Writer, name, help, value string) {
	writeScalar(w, name, "counter", help, value)
}

func writeScalar(w io.Writer, name, kind, help, value string) {
	_, _ = fmt.Fprintf(w, "# HELP %s%s %s\n", metricPrefix, name, help)
	_, _ = fmt.Fprintf(w, "# TYPE %s%s %s\n", metricPrefix, name, kind)
	_, _ = fmt.Fprintf(w, "%s%s %s\n", metricPrefix, name, value)
}

func appMetricsSummaryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		type endpointRow struct {
			Method  string  `json:"method"`
			Path    string  `json:"path"`
			Status  string  `json:"status"`
			Count   uint64  `json:"count"`
			AvgMS   float64 `json:"avg_ms"`
			TotalMS float64 `json:"total_ms"`
		}
		type loadRow struct {
			Type   string  `json:"type"`
			OK     uint64  `json:"ok"`
			Errors uint64  `json:"errors"`
			AvgMS  float64 `json:"avg_ms"`
		}

		metricsMu.Lock()
		httpRows := make([]endpointRow, 0, len(httpSeries))
		for k, s := range httpSeries {
			httpRows = append(httpRows, endpointRow{
				Method:  k.Method,
				Path:    k.Path,
				Status:  k.Status,
				Count:   s.Count,
				AvgMS:   avgMS(s),
				TotalMS: s.DurationSecondsSum * 1000.0,
			})
		}

		byType := map[string]*loadRow{}
		totals := map[string]*durationSeries{}
		for k, s := range loadSeries {
			row, ok := byType[k.Type]
			if !ok {
				row = &loadRow{Type: k.Type}
				byType[k.Type] = row
				totals[k.Type] = &durationSeries{}
			}
			if k.Outcome == "ok" {
				row.OK += s.Count
			} else {
				row.Errors += s.Count
			}
			totals[k.Type].Count += s.Count
			totals[k.Type].DurationSecondsSum += s.DurationSecondsSum
		}

		issues := map[string]uint64{}
		for k, n := range issueSeries {
			issues[k.Kind] += n
		}
		var dbErrors, externalErrors uint64
		for _, s := range dbQuerySeries {
			dbErrors += s.Errors
		}
		for _, s := range externalSeries {
			externalErrors += s.Errors
		}
		metricsMu.Unlock()

		loads := make([]loadRow, 0, len(byType))
		for t, row := range byType {
			row.AvgMS = avgMS(totals[t])
			loads = append(loads, *row)
		}
		sort.Slice(loads, func(i, j int) bool { return loads[i].Type < loads[j].Type })
		sort.Slice(httpRows, func(i, j int) bool { return httpRows[i].AvgMS > httpRows[j].AvgMS })
		topHTTP := httpRows
		if len(topHTTP) > 5 {
			topHTTP = topHTTP[:5]
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"meta": map[string]any{
				"generated_at": time.Now().UTC(),
			},
			"data": map[string]any{
				"top_http_slowest_avg_ms": topHTTP,
				"statistics_loads":        loads,
				"render_issues":           issues,
				"errors": map[string]any{
					"db_query_total":       dbErrors,
					"external_probe_total": externalErrors,
				},
			},
		})
	}
}

func avgMS(s *durationSeries) float64 {
	if s == nil || s.Count == 0 {
		return 0
	}
	return s.DurationSecondsSum / float64(s.Count) * 1000.0
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func observabilityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		atomic.AddInt64(&inFlightRequests, 1)
		defer atomic.AddInt64(&inFlightRequests, -1)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		recordHTTPMetric(r.Method, routePattern(r), rec.status, time.Since(start).Seconds())
	})
}

// routePattern reports the matched chi pattern so report types share one
// series; unmatched paths collapse into a single label.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func recordHTTPMetric(method, path string, status int, durationSeconds float64) {
	key := httpMetricKey{Method: method, Path: path, Status: strconv.Itoa(status)}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	observe(httpSeries, key, durationSeconds, nil)
}

func recordStatisticsLoad(t report.ReportType, outcome string, d time.Duration) {
	key := loadMetricKey{Type: string(t), Outcome: outcome}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	observe(loadSeries, key, d.Seconds(), nil)
}

// recordRender counts panel outcomes and issues of one rendered document.
func recordRender(doc *report.Document) {
	t := string(doc.Type)
	metricsMu.Lock()
	defer metricsMu.Unlock()
	for _, p := range doc.Panels {
		outcome := "bound"
		if p.Kind == report.PanelChart && p.Chart == nil {
			outcome = "empty"
		}
		panelSeries[panelMetricKey{Type: t, Outcome: outcome}]++
	}
	for _, is := range doc.Issues {
		issueSeries[issueMetricKey{Type: t, Kind: string(is.Kind)}]++
	}
}

func recordDBQuery(connector, operation string, durationSeconds float64, err error) {
	if connector == "" || operation == "" {
		return
	}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	observe(dbQuerySeries, probeMetricKey{Target: connector, Operation: operation}, durationSeconds, err)
}

func recordExternalProbe(target, operation string, durationSeconds float64, err error) {
	if target == "" || operation == "" {
		return
	}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	observe(externalSeries, probeMetricKey{Target: target, Operation: operation}, durationSeconds, err)
}

// observe must be called with metricsMu held.
func observe[K comparable](m map[K]*durationSeries, key K, durationSeconds float64, err error) {
	row, ok := m[key]
	if !ok {
		row = &durationSeries{}
		m[key] = row
	}
	row.Count++
	row.DurationSecondsSum += durationSeconds
	if err != nil {
		row.Errors++
	}
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, "\n", `\n`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return v
}

func processCPUSeconds() (float64, bool) {
	var ru syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &ru); err != nil {
		return 0, false
	}
	user := float64(ru.Utime.Sec) + (float64(ru.Utime.Usec) / 1_000_000.0)
	sys := float64(ru.Stime.Sec) + (float64(ru.Stime.Usec) / 1_000_000.0)
	return user + sys, true
}

type ioStats struct {
	ReadBytes  uint64
	WriteBytes uint64
}

func processIOStats() *ioStats {
	b, err := os.ReadFile("/proc/self/io")
	if err != nil {
		return nil
	}
	out := &ioStats{}
	for _, line := range strings.Split(string(b), "\n") {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		v, err := strconv.ParseUint(strings.TrimSpace(val), 10, 64)
		if err != nil {
			continue
		}
		switch strings.TrimSpace(key) {
		case "read_bytes":
			out.ReadBytes = v
		case "write_bytes":
			out.WriteBytes = v
		}
	}
	return out
}

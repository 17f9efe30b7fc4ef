package statsfile

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"samadhi-report-ui/internal/report"
)

// GeneralResource is the catalogue-wide counts document.
const GeneralResource = "stats.json"

// Result is the outcome of loading one report type.
type Result struct {
	Type     report.ReportType
	Page     *report.Page
	Payload  *report.Payload
	Err      error
	Duration time.Duration
}

// Loader fetches and decodes report documents. Each Load is one fetch and
// yields one read-only snapshot.
type Loader struct {
	source  Source
	catalog *report.Catalog
	log     zerolog.Logger
	observe func(t report.ReportType, outcome string, d time.Duration)
}

func NewLoader(source Source, catalog *report.Catalog, log zerolog.Logger) *Loader {
	return &Loader{source: source, catalog: catalog, log: log}
}

// OnLoad registers a callback invoked once per load with outcome "ok" or "error".
func (l *Loader) OnLoad(fn func(t report.ReportType, outcome string, d time.Duration)) {
	l.observe = fn
}

func (l *Loader) Source() Source {
	return l.source
}

func (l *Loader) Catalog() *report.Catalog {
	return l.catalog
}

// Load fetches the document of one report type. Fetch and decode failures
// wrap report.ErrLoadFailure and are logged here, once.
func (l *Loader) Load(ctx context.Context, t report.ReportType) (*report.Page, *report.Payload, error) {
	page, err := l.catalog.Page(t)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	payload, err := l.load(ctx, page)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		l.log.Error().Err(err).Str("report", string(t)).Str("resource", page.Resource).Msg("statistics load failed")
	}
	if l.observe != nil {
		l.observe(t, outcome, elapsed)
	}
	return page, payload, err
}

func (l *Loader) load(ctx context.Context, page *report.Page) (*report.Payload, error) {
	blob, err := l.source.Fetch(ctx, page.Resource)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", report.ErrLoadFailure, page.Resource, err)
	}
	return report.DecodePayload(page.Type, page.Statistics, blob)
}

// LoadGeneral fetches the catalogue-wide counts.
func (l *Loader) LoadGeneral(ctx context.Context) (*report.General, error) {
	blob, err := l.source.Fetch(ctx, GeneralResource)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", report.ErrLoadFailure, GeneralResource, err)
	}
	return report.DecodeGeneral(blob)
}

// LoadAll loads several report types concurrently. Each result carries its
// own error; one failing type never cancels the others.
func (l *Loader) LoadAll(ctx context.Context, types ...report.ReportType) []Result {
	if len(types) == 0 {
		types = l.catalog.Types()
	}
	out := make([]Result, len(types))
	var g errgroup.Group
	g.SetLimit(4)
	for i, t := range types {
		g.Go(func() error {
			start := time.Now()
			page, payload, err := l.Load(ctx, t)
			out[i] = Result{Type: t, Page: page, Payload: payload, Err: err, Duration: time.Since(start)}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

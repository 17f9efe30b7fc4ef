package statsfile

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samadhi-report-ui/internal/report"
)

const analysisDoc = `{"AnalysisStatistics": {"analysisContacts": [["alice", 2]], "physicsGroup": [["HIG", 1]]}}`

func testCatalog(t *testing.T) *report.Catalog {
	t.Helper()
	c, err := report.DefaultCatalog()
	require.NoError(t, err)
	return c
}

func writeDoc(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestDirSource_FetchAndNotFound(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "stats.json", `{"nDatasets": 3}`)
	src := NewDirSource(dir)

	blob, err := src.Fetch(context.Background(), "stats.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"nDatasets": 3}`, string(blob))

	_, err = src.Fetch(context.Background(), "missing.json")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = src.Fetch(context.Background(), "../etc/passwd")
	assert.Error(t, err)
}

func TestHTTPSource_StatusHandling(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data/AnalysisAnalysisReport.json":
			_, _ = w.Write([]byte(analysisDoc))
		case "/data/broken.json":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/data/", time.Second)
	require.True(t, src.Enabled())

	blob, err := src.Fetch(context.Background(), "AnalysisAnalysisReport.json")
	require.NoError(t, err)
	assert.JSONEq(t, analysisDoc, string(blob))

	_, err = src.Fetch(context.Background(), "nope.json")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = src.Fetch(context.Background(), "broken.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=500")
	assert.Contains(t, err.Error(), "boom")
}

func TestLoader_LoadDecodesPayload(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "AnalysisAnalysisReport.json", analysisDoc)

	var outcomes []string
	l := NewLoader(NewDirSource(dir), testCatalog(t), zerolog.Nop())
	l.OnLoad(func(_ report.ReportType, outcome string, _ time.Duration) { outcomes = append(outcomes, outcome) })

	page, payload, err := l.Load(context.Background(), report.Analysis)
	require.NoError(t, err)
	assert.Equal(t, "AnalysisAnalysisReport.json", page.Resource)
	_, ok := payload.Metric("analysisContacts")
	assert.True(t, ok)

	_, _, err = l.Load(context.Background(), report.Sample)
	assert.ErrorIs(t, err, report.ErrLoadFailure)
	assert.Equal(t, []string{"ok", "error"}, outcomes)
}

func TestLoader_MalformedDocumentIsLoadFailure(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "AnalysisAnalysisReport.json", `{"AnalysisStatistics": `)

	l := NewLoader(NewDirSource(dir), testCatalog(t), zerolog.Nop())
	_, payload, err := l.Load(context.Background(), report.Analysis)
	assert.ErrorIs(t, err, report.ErrLoadFailure)
	assert.Nil(t, payload)
}

func TestLoader_UnknownType(t *testing.T) {
	l := NewLoader(NewDirSource(t.TempDir()), testCatalog(t), zerolog.Nop())
	_, _, err := l.Load(context.Background(), report.ReportType("files"))
	assert.ErrorIs(t, err, report.ErrUnknownReport)
}

func TestLoader_LoadAllIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "AnalysisAnalysisReport.json", analysisDoc)
	writeDoc(t, dir, "ResultsAnalysisReport.json", `{"ResultsStatistics": {}}`)

	l := NewLoader(NewDirSource(dir), testCatalog(t), zerolog.Nop())
	results := l.LoadAll(context.Background())

	require.Len(t, results, 4)
	byType := map[report.ReportType]Result{}
	for _, r := range results {
		byType[r.Type] = r
	}
	assert.NoError(t, byType[report.Analysis].Err)
	assert.NoError(t, byType[report.Result].Err)
	assert.ErrorIs(t, byType[report.Dataset].Err, report.ErrLoadFailure)
	assert.ErrorIs(t, byType[report.Sample].Err, report.ErrLoadFailure)
}

func TestLoader_LoadGeneral(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "stats.json", `{"nDatasets": 10, "nSamples": 20, "nResults": 5, "nAnalysis": 2}`)

	g, err := NewLoader(NewDirSource(dir), testCatalog(t), zerolog.Nop()).LoadGeneral(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.General{Datasets: 10, Samples: 20, Results: 5, Analyses: 2}, *g)
}

type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	failGet bool
	sets    int
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, false, errors.New("cache down")
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.data[key] = value
	return nil
}

type countingSource struct {
	Source
	calls int
}

func (c *countingSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	c.calls++
	return c.Source.Fetch(ctx, name)
}

func TestCachedSource_ReadThrough(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "stats.json", `{"nDatasets": 1}`)
	inner := &countingSource{Source: NewDirSource(dir)}
	cache := &memCache{data: map[string][]byte{}}
	src := NewCachedSource(inner, cache, time.Minute, zerolog.Nop())

	for i := 0; i < 3; i++ {
		blob, err := src.Fetch(context.Background(), "stats.json")
		require.NoError(t, err)
		assert.JSONEq(t, `{"nDatasets": 1}`, string(blob))
	}
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, cache.sets)
}

func TestCachedSource_BypassesFailingCache(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "stats.json", `{"nDatasets": 1}`)
	inner := &countingSource{Source: NewDirSource(dir)}
	src := NewCachedSource(inner, &memCache{data: map[string][]byte{}, failGet: true}, time.Minute, zerolog.Nop())

	_, err := src.Fetch(context.Background(), "stats.json")
	require.NoError(t, err)
	_, err = src.Fetch(context.Background(), "stats.json")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "SampleStatistics": {
    "sampleAuthors": [["alice", 5], ["bob", "2"]],
    "sampleTypes": [["PAT", 4], ["", 1], ["SKIM", 3]],
    "samplesTimeprof": [1500000000000, 1500000100000],
    "sampleNevents": [[50, 1], [150, 2]]
  },
  "MissingDirSamples": [
    {"id": 3, "name": "A", "path": "/gone/a"},
    {"id": 1, "name": "B", "path": "/gone/b"},
    {"id": 2, "name": "C", "path": "/gone/c"}
  ],
  "DatabaseInconsistencies": []
}`

func samplePage(t *testing.T) *Page {
	t.Helper()
	c, err := DefaultCatalog()
	require.NoError(t, err)
	p, err := c.Page(Sample)
	require.NoError(t, err)
	return p
}

func TestDefaultCatalog_DefinesAllPages(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)
	assert.ElementsMatch(t, AllTypes, c.Types())

	p, err := c.Page(Analysis)
	require.NoError(t, err)
	assert.Equal(t, "AnalysisAnalysisReport.json", p.Resource)
	assert.Equal(t, "AnalysisStatistics", p.Statistics)

	_, err = c.Page(ReportType("bogus"))
	assert.ErrorIs(t, err, ErrUnknownReport)
}

func TestLoadCatalog_Validation(t *testing.T) {
	cases := map[string]string{
		"unknown type":    "pages:\n  - {type: nope, resource: x.json}\n",
		"duplicate panel": "pages:\n  - type: analysis\n    resource: x.json\n    layout:\n      - {id: a, kind: chart}\n      - {id: a, kind: chart}\n",
		"bad kind":        "pages:\n  - type: analysis\n    resource: x.json\n    charts:\n      - {metric: m, container: a, kind: radar}\n",
		"duplicate page":  "pages:\n  - {type: analysis, resource: x.json}\n  - {type: analysis, resource: y.json}\n",
		"no resource":     "pages:\n  - {type: analysis}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadCatalog([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestPageRender_SamplePage(t *testing.T) {
	page := samplePage(t)
	payload, err := DecodePayload(Sample, page.Statistics, []byte(sampleDoc))
	require.NoError(t, err)

	doc := page.Render(payload, testTheme(t))

	authors, ok := doc.Panel("authorsPlotContainer")
	require.True(t, ok)
	require.NotNil(t, authors.Chart)
	assert.Equal(t, []Datum{{Name: "alice", Y: 5}, {Name: "bob", Y: 2}}, authors.Chart.Points())
	assert.Equal(t, "Samples Author", authors.Heading)

	types, _ := doc.Panel("typePlotContainer")
	require.NotNil(t, types.Chart)
	assert.Len(t, types.Chart.Points(), 2)

	profile, _ := doc.Panel("timeProfileContainer")
	require.NotNil(t, profile.Chart)
	assert.Equal(t, []Datum{{X: 1500000000000, Y: 1}, {X: 1500000100000, Y: 2}}, profile.Chart.Points())

	missing, _ := doc.Panel("accordionA")
	require.Len(t, missing.Entries, 3)
	assert.Equal(t, "A", missing.Entries[0].Name)
	assert.Equal(t, "B", missing.Entries[1].Name)
	assert.Equal(t, "C", missing.Entries[2].Name)
	assert.Equal(t, "3", missing.BadgeText)
	assert.Equal(t, "missing path", missing.Entries[0].Reason)

	db, _ := doc.Panel("accordionB")
	assert.Equal(t, "0", db.BadgeText)
	assert.Empty(t, db.Entries)
	assert.NotEmpty(t, db.Caption)
}

func TestPageRender_MissingMetricsDegradeOnlyTheirPanels(t *testing.T) {
	page := samplePage(t)
	payload, err := DecodePayload(Sample, page.Statistics, []byte(sampleDoc))
	require.NoError(t, err)

	doc := page.Render(payload, testTheme(t))

	evolution, _ := doc.Panel("sampleNeventsTimeprofContainer")
	assert.Nil(t, evolution.Chart)
	assert.Equal(t, "Evolution of the number of events in samples", evolution.Heading)

	nevents, _ := doc.Panel("sampleNeventsContainer")
	assert.NotNil(t, nevents.Chart)

	var missing, malformedCount int
	for _, is := range doc.Issues {
		switch is.Kind {
		case IssueMissingMetric:
			missing++
		case IssueMalformedRecord:
			malformedCount++
			assert.Equal(t, "typePlotContainer", is.Panel)
		}
	}
	assert.Equal(t, 3, missing)
	assert.Equal(t, 1, malformedCount)
}

func TestPageRender_EmptyStatistics(t *testing.T) {
	page := samplePage(t)
	payload, err := DecodePayload(Sample, page.Statistics, []byte(`{"MissingDirSamples": []}`))
	require.NoError(t, err)

	doc := page.Render(payload, testTheme(t))

	assert.Zero(t, doc.ChartCount())
	a, _ := doc.Panel("accordionA")
	assert.Equal(t, "0", a.BadgeText)
}

func TestPageRender_BindingToAbsentContainerIsSkipped(t *testing.T) {
	page := &Page{
		Type:       Analysis,
		Resource:   "x.json",
		Statistics: "S",
		Layout:     []PanelLayout{{ID: "present", Kind: PanelChart, Heading: "Present"}},
		Charts: []ChartBinding{
			{Metric: "m", Container: "absent", Kind: KindPie, Title: "Absent"},
			{Metric: "m", Container: "present", Kind: KindPie, Title: "Bound"},
		},
		Anomalies: []AnomalyBinding{{Category: "Orphans", Container: "nowhere", Badge: "nobadge"}},
	}
	payload, err := DecodePayload(Analysis, "S", []byte(`{"S": {"m": [["a", 1]]}, "Orphans": [{"id": 1}]}`))
	require.NoError(t, err)

	doc := page.Render(payload, testTheme(t))

	p, _ := doc.Panel("present")
	require.NotNil(t, p.Chart)
	assert.Equal(t, "Bound", p.Heading)
	assert.Equal(t, 1, doc.ChartCount())

	kinds := []IssueKind{}
	for _, is := range doc.Issues {
		kinds = append(kinds, is.Kind)
	}
	assert.Equal(t, []IssueKind{IssueMissingContainer, IssueMissingContainer}, kinds)
}

func TestDecodePayload_LoadFailures(t *testing.T) {
	for _, doc := range []string{``, `not json`, `[1, 2]`, `null`} {
		_, err := DecodePayload(Sample, "SampleStatistics", []byte(doc))
		assert.ErrorIs(t, err, ErrLoadFailure, "document %q", doc)
	}
}

func TestDecodePayload_NonObjectStatistics(t *testing.T) {
	p, err := DecodePayload(Sample, "SampleStatistics", []byte(`{"SampleStatistics": [1, 2]}`))
	require.NoError(t, err)
	_, ok := p.Metric("sampleAuthors")
	assert.False(t, ok)
}

func TestParseReportType(t *testing.T) {
	got, err := ParseReportType("Datasets")
	require.NoError(t, err)
	assert.Equal(t, Dataset, got)

	_, err = ParseReportType("files")
	assert.ErrorIs(t, err, ErrUnknownReport)
}

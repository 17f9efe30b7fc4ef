package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"samadhi-report-ui/internal/report"
)

func testDocument(t *testing.T) *report.Document {
	t.Helper()
	theme, err := report.NewTheme(report.DefaultPalette)
	require.NoError(t, err)

	doc := report.NewDocument(report.Sample, "SAMADhi samples - Database analysis report", []report.PanelLayout{
		{ID: "authorsPlotContainer", Kind: report.PanelChart, Heading: "Samples Author", Width: "half"},
		{ID: "sampleNeventsContainer", Kind: report.PanelChart, Heading: "Number of events in samples", Width: "half"},
		{ID: "timeProfileContainer", Kind: report.PanelChart, Heading: "Time profile", Width: "full"},
		{ID: "typePlotContainer", Kind: report.PanelChart, Heading: "Sample Types", Width: "half"},
		{ID: "accordionA", Kind: report.PanelAnomaly, Heading: "Samples with missing path",
			Caption: "Pointing to **non-existent locations**.", Badge: "numberOfMissingDirSamples"},
		{ID: "accordionB", Kind: report.PanelAnomaly, Heading: "Database Inconsistencies", Badge: "numberOfDbProblems"},
	})

	pie, err := report.BuildChart("authorsPlotContainer", report.KindPie,
		[]report.Datum{{Name: "alice", Y: 3}, {Name: "<bob>", Y: 1}}, report.BuildOptions{SeriesName: "Samples"}, theme)
	require.NoError(t, err)
	doc.Bind("authorsPlotContainer", pie)

	col, err := report.BuildChart("sampleNeventsContainer", report.KindColumn,
		[]report.Datum{{X: 50, Y: 1}, {X: 150, Y: 2}}, report.BuildOptions{SeriesName: "Samples", XTitle: "Events"}, theme)
	require.NoError(t, err)
	doc.Bind("sampleNeventsContainer", col)

	line, err := report.BuildChart("timeProfileContainer", report.KindTimeseries,
		[]report.Datum{{X: 1500000000000, Y: 1}, {X: 1500000100000, Y: 2}}, report.BuildOptions{SeriesName: "Samples"}, theme)
	require.NoError(t, err)
	doc.Bind("timeProfileContainer", line)

	doc.RenderAnomalyList("accordionA", "numberOfMissingDirSamples", []report.AnomalyRecord{
		{ID: "7", Name: "sample_a", Reason: "missing path", Details: []report.Detail{{Key: "path", Value: "/gone/a"}}},
		{ID: "9", Name: "sample_b", Reason: "missing path", Details: []report.Detail{{Key: "path", Value: "/gone/b"}}},
	})
	doc.RenderAnomalyList("accordionB", "numberOfDbProblems", nil)
	doc.Issues = append(doc.Issues, report.Issue{Kind: report.IssueMissingMetric, Key: "sampleTypes", Panel: "typePlotContainer"})
	return doc
}

func TestHTMLReport_RendersPanelsAndCharts(t *testing.T) {
	h, err := NewHTML("https://cdn.example/")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, h.Report(&buf, ReportView{
		Doc: testDocument(t),
		Nav: []NavItem{{Type: report.Sample, Title: "Samples", Href: "/reports/sample", Active: true}},
	}))
	out := buf.String()

	assert.Contains(t, out, `https://cdn.example/highcharts.js`)
	assert.Contains(t, out, `https://cdn.example/highcharts-3d.js`)
	assert.Contains(t, out, `id="authorsPlotContainer"`)
	assert.Equal(t, 3, strings.Count(out, "new Highcharts.Chart("))
	assert.Contains(t, out, `"renderTo":"authorsPlotContainer"`)
	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "&lt;bob&gt;")
	assert.NotContains(t, out, "<bob>")
	assert.Contains(t, out, "<strong>non-existent locations</strong>")
	assert.Equal(t, 2, strings.Count(out, "<details>"))
	assert.Contains(t, out, `id="numberOfMissingDirSamples">2<`)
	assert.Contains(t, out, `id="numberOfDbProblems">0<`)
	assert.Contains(t, out, "No data available.")
	assert.Contains(t, out, `class="active"`)
	assert.NotContains(t, out, `role="alert"`)
}

func TestHTMLReport_ErrorBanner(t *testing.T) {
	h, err := NewHTML("https://cdn.example")
	require.NoError(t, err)

	doc := report.NewDocument(report.Sample, "Samples", []report.PanelLayout{{ID: "authorsPlotContainer", Kind: report.PanelChart, Heading: "Samples Author"}})
	var buf bytes.Buffer
	require.NoError(t, h.Report(&buf, ReportView{Doc: doc, Error: "report data could not be loaded"}))
	out := buf.String()

	assert.Contains(t, out, `role="alert"`)
	assert.Contains(t, out, "report data could not be loaded")
	assert.NotContains(t, out, "highcharts.js")
	assert.NotContains(t, out, "new Highcharts.Chart(")
}

func TestHTMLIndex_ShowsCounts(t *testing.T) {
	h, err := NewHTML("https://cdn.example")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, h.Index(&buf, IndexView{
		Title:   "Overview",
		General: &report.General{Datasets: 12, Samples: 30, Results: 4, Analyses: 2},
		Nav:     []NavItem{{Type: report.Dataset, Title: "Datasets", Href: "/reports/dataset"}},
	}))
	out := buf.String()

	assert.Contains(t, out, `id="nDatasets">12<`)
	assert.Contains(t, out, `id="nAnalysis">2<`)
	assert.Contains(t, out, `/api/v1/reports/dataset/export.xlsx`)
}

func TestCaption_DropsRawHTML(t *testing.T) {
	out := string(Caption("see **here** <script>alert(1)</script>"))
	assert.Contains(t, out, "<strong>here</strong>")
	assert.NotContains(t, out, "<script>")
	assert.Empty(t, Caption("  "))
}

func TestShares(t *testing.T) {
	doc := testDocument(t)
	p, _ := doc.Panel("authorsPlotContainer")
	assert.Equal(t, []ShareRow{{Label: "alice", Count: 3, Share: 75}, {Label: "<bob>", Count: 1, Share: 25}}, Shares(p))

	empty, _ := doc.Panel("typePlotContainer")
	assert.Nil(t, Shares(empty))
}

func TestECharts_OneChartPerBoundPanel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ECharts(&buf, testDocument(t), report.DefaultPalette))
	out := buf.String()

	assert.Contains(t, out, "authorsPlotContainer")
	assert.Contains(t, out, "sampleNeventsContainer")
	assert.Contains(t, out, "timeProfileContainer")
	assert.Contains(t, out, "2017-07-14")
	assert.NotContains(t, out, `"typePlotContainer"`)
}

func TestWorkbook_SheetsAndValues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Workbook(&buf, testDocument(t)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Samples Author", "Number of events in samples", "Time profile", "Samples with missing path"}, f.GetSheetList())

	title, err := f.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, "SAMADhi samples - Database analysis report", title)

	rows, err := f.GetRows("Samples Author")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"alice", "3", "75"}, rows[1])

	missing, err := f.GetRows("Samples with missing path")
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Name", "Reason", "path"}, missing[0])
	assert.Equal(t, []string{"9", "sample_b", "missing path", "/gone/b"}, missing[2])

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	last := summary[len(summary)-1]
	assert.Equal(t, string(report.IssueMissingMetric), last[0])
	assert.Equal(t, "sampleTypes", last[1])
}

func TestUniqueSheetName(t *testing.T) {
	used := map[string]bool{"summary": true}
	assert.Equal(t, "Summary 2", uniqueSheetName("Summary", "x", used))
	assert.Equal(t, "a b (c)", uniqueSheetName("a/b [c]", "x", used))
	assert.Equal(t, "panelId", uniqueSheetName("", "panelId", used))

	long := strings.Repeat("x", 40)
	first := uniqueSheetName(long, "x", used)
	second := uniqueSheetName(long, "x", used)
	assert.Len(t, first, 31)
	assert.Len(t, second, 31)
	assert.NotEqual(t, first, second)
}

func TestTerminal_PrintsPanels(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Terminal(&buf, testDocument(t), 80))
	out := buf.String()

	assert.Contains(t, out, "Samples Author")
	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "sample_a [7]")
	assert.Contains(t, out, "2017-07-14")
	assert.Contains(t, out, "no data")
	assert.Contains(t, out, "1 issue(s)")
}

func TestMalformedNumericEntries_RenderEverywhere(t *testing.T) {
	pages, err := report.DefaultCatalog()
	require.NoError(t, err)
	page, err := pages.Page(report.Sample)
	require.NoError(t, err)
	theme, err := report.NewTheme(report.DefaultPalette)
	require.NoError(t, err)

	payload, err := report.DecodePayload(report.Sample, page.Statistics, []byte(`{
	  "SampleStatistics": {
	    "sampleNevents": [["NaN", 1], [1, 5], [2, -3], [3, 2]],
	    "sampleNeventsProcessed": [["Infinity", 4], [10, 1]],
	    "samplesTimeprof": [1500000000000, "NaN", 1500000100000]
	  }
	}`))
	require.NoError(t, err)
	doc := page.Render(payload, theme)

	malformed := 0
	for _, is := range doc.Issues {
		if is.Kind == report.IssueMalformedRecord {
			malformed++
		}
	}
	assert.Equal(t, 4, malformed)

	_, err = json.Marshal(doc)
	require.NoError(t, err)

	var term bytes.Buffer
	require.NoError(t, Terminal(&term, doc, 80))
	assert.Contains(t, term.String(), "Number of events in samples")

	h, err := NewHTML("https://cdn.example")
	require.NoError(t, err)
	var html bytes.Buffer
	require.NoError(t, h.Report(&html, ReportView{Doc: doc}))
	assert.NotContains(t, html.String(), "Highcharts.Chart(null)")
	assert.Equal(t, doc.ChartCount(), strings.Count(html.String(), "new Highcharts.Chart("))
}

func TestTerminal_NegativeBarValueDoesNotPanic(t *testing.T) {
	theme, err := report.NewTheme(report.DefaultPalette)
	require.NoError(t, err)
	doc := report.NewDocument(report.Sample, "t", []report.PanelLayout{
		{ID: "c", Kind: report.PanelChart, Heading: "Counts"},
	})
	col, err := report.BuildChart("c", report.KindColumn,
		[]report.Datum{{X: 1, Y: 5}, {X: 2, Y: -3}}, report.BuildOptions{SeriesName: "s"}, theme)
	require.NoError(t, err)
	doc.Bind("c", col)

	var buf bytes.Buffer
	require.NotPanics(t, func() { _ = Terminal(&buf, doc, 60) })
	assert.Contains(t, buf.String(), "-3")
}

package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocument() *Document {
	return NewDocument(Analysis, "t", []PanelLayout{
		{ID: "contactPlotContainer", Kind: PanelChart, Heading: "Contacts"},
		{ID: "accordionA", Kind: PanelAnomaly, Heading: "Orphans", Caption: "Orphan datasets.", Badge: "numberOfOrphans"},
	})
}

func TestBind_SecondBindSupersedes(t *testing.T) {
	doc := testDocument()
	theme := testTheme(t)

	first, err := BuildChart("contactPlotContainer", KindPie, Series{{Label: "a", Count: 1}}.Data(), BuildOptions{}, theme)
	require.NoError(t, err)
	second, err := BuildChart("contactPlotContainer", KindPie, Series{{Label: "b", Count: 2}, {Label: "c", Count: 3}}.Data(), BuildOptions{}, theme)
	require.NoError(t, err)

	require.True(t, doc.Bind("contactPlotContainer", first))
	require.True(t, doc.Bind("contactPlotContainer", second))

	p, _ := doc.Panel("contactPlotContainer")
	assert.Equal(t, []Datum{{Name: "b", Y: 2}, {Name: "c", Y: 3}}, p.Chart.Points())
	assert.Equal(t, 1, doc.ChartCount())
}

func TestBind_MissingContainerIsNoop(t *testing.T) {
	doc := testDocument()
	spec, err := BuildChart("nowhere", KindPie, nil, BuildOptions{}, testTheme(t))
	require.NoError(t, err)

	assert.False(t, doc.Bind("nowhere", spec))
	assert.False(t, doc.SetTitle("nowhere", "x"))
	assert.Zero(t, doc.ChartCount())
	assert.False(t, doc.Populated())
}

func TestRenderAnomalyList_EmptyKeepsCaption(t *testing.T) {
	doc := testDocument()

	require.True(t, doc.RenderAnomalyList("accordionA", "numberOfOrphans", nil))

	p, _ := doc.Panel("accordionA")
	assert.Equal(t, "0", p.BadgeText)
	assert.Empty(t, p.Entries)
	assert.Equal(t, "Orphan datasets.", p.Caption)
}

func TestRenderAnomalyList_CopiesRecords(t *testing.T) {
	doc := testDocument()
	records := []AnomalyRecord{{ID: "1", Name: "A"}, {ID: "2", Name: "B"}}

	require.True(t, doc.RenderAnomalyList("accordionA", "numberOfOrphans", records))
	records[0].Name = "mutated"

	p, _ := doc.Panel("accordionA")
	assert.Equal(t, "A", p.Entries[0].Name)
	assert.Equal(t, "2", p.BadgeText)
	assert.False(t, doc.RenderAnomalyList("accordionZ", "numberOfOrphans", records))
}

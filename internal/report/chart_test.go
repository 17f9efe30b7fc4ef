package report

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTheme(t *testing.T) *Theme {
	t.Helper()
	theme, err := NewTheme(nil)
	require.NoError(t, err)
	return theme
}

func TestDarken_IsDeterministic(t *testing.T) {
	first, err := Darken("#7cb5ec")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Darken("#7cb5ec")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	// 0x7c-76, 0xb5-76, 0xec-76
	assert.Equal(t, "rgb(48,105,160)", first)
}

func TestDarken_ClampsAtBlack(t *testing.T) {
	got, err := Darken("#102030")
	require.NoError(t, err)
	assert.Equal(t, "rgb(0,0,0)", got)

	got, err = Darken("ffffff")
	require.NoError(t, err)
	assert.Equal(t, "rgb(179,179,179)", got)
}

func TestNewTheme_RejectsInvalidColour(t *testing.T) {
	_, err := NewTheme([]string{"#7cb5ec", "not-a-colour"})
	assert.Error(t, err)
}

func TestTheme_FillsAreCopies(t *testing.T) {
	theme := testTheme(t)
	fills := theme.Fills()
	fills[0].Stops[0].Color = "#000000"

	assert.Equal(t, "#7cb5ec", theme.Fill(0).Base())
	assert.Equal(t, theme.Fill(0), theme.Fill(len(DefaultPalette)))
}

func TestBuildChart_PieRoundTrip(t *testing.T) {
	series := Series{{Label: "groupX", Count: 7}, {Label: "groupY", Count: 3}}

	spec, err := BuildChart("contactPlotContainer", KindPie, series.Data(), BuildOptions{SeriesName: "Contact share"}, testTheme(t))
	require.NoError(t, err)

	require.Len(t, spec.Series, 1)
	assert.Equal(t, []Datum{{Name: "groupX", Y: 7}, {Name: "groupY", Y: 3}}, spec.Series[0].Data)
	assert.Equal(t, "contactPlotContainer", spec.Chart.RenderTo)
	assert.Equal(t, "pie", spec.Chart.Type)
	require.NotNil(t, spec.Chart.Options3D)
	assert.Equal(t, Options3D{Enabled: true, Alpha: 45, Beta: 0}, *spec.Chart.Options3D)
	require.NotNil(t, spec.PlotOptions.Pie)
	assert.Equal(t, 35, spec.PlotOptions.Pie.Depth)
	assert.True(t, spec.PlotOptions.Pie.AllowPointSelect)
	assert.Equal(t, "pointer", spec.PlotOptions.Pie.Cursor)
	assert.Equal(t, "{point.name}", spec.PlotOptions.Pie.DataLabels.Format)
	assert.Equal(t, "{series.name}: <b>{point.percentage:.1f}%</b>", spec.Tooltip.PointFormat)
	assert.Len(t, spec.Colors, len(DefaultPalette))
}

func TestBuildChart_PieJSONShape(t *testing.T) {
	spec, err := BuildChart("c", KindPie, Series{{Label: "groupX", Count: 7}}.Data(), BuildOptions{SeriesName: "S"}, testTheme(t))
	require.NoError(t, err)

	blob, err := json.Marshal(spec)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(blob, &decoded))
	series := decoded["series"].([]any)[0].(map[string]any)
	assert.Equal(t, []any{[]any{"groupX", 7.0}}, series["data"])

	colors := decoded["colors"].([]any)
	first := colors[0].(map[string]any)
	assert.Equal(t, map[string]any{"cx": 0.5, "cy": 0.3, "r": 0.7}, first["radialGradient"])
	assert.Equal(t, []any{[]any{0.0, "#7cb5ec"}, []any{1.0, "rgb(48,105,160)"}}, first["stops"])
}

func TestBuildChart_EmptySeries(t *testing.T) {
	spec, err := BuildChart("c", KindPie, nil, BuildOptions{}, testTheme(t))
	require.NoError(t, err)

	assert.NotNil(t, spec.Series[0].Data)
	assert.Empty(t, spec.Series[0].Data)
	assert.Empty(t, spec.Percentages())

	zeros, err := BuildChart("c", KindPie, Series{{Label: "a", Count: 0}, {Label: "b", Count: 0}}.Data(), BuildOptions{}, testTheme(t))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, zeros.Percentages())
}

func TestBuildChart_OtherKinds(t *testing.T) {
	data := XYSeries{{X: 1, Y: 2}}.Data()

	col, err := BuildChart("h", KindColumn, data, BuildOptions{XTitle: "Events"}, testTheme(t))
	require.NoError(t, err)
	assert.Equal(t, "column", col.Chart.Type)
	assert.Nil(t, col.Chart.Options3D)
	assert.Equal(t, "Events", col.XAxis.Title.Text)

	ts, err := BuildChart("t", KindTimeseries, data, BuildOptions{}, testTheme(t))
	require.NoError(t, err)
	assert.Equal(t, "line", ts.Chart.Type)
	assert.Equal(t, "datetime", ts.XAxis.Type)

	_, err = BuildChart("x", ChartKind("radar"), data, BuildOptions{}, testTheme(t))
	assert.Error(t, err)
}

func TestPercentages_SumToHundred(t *testing.T) {
	theme := testTheme(t)
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		n := 1 + rng.Intn(12)
		s := make(Series, n)
		for i := range s {
			s[i] = CategoryPoint{Label: "c", Count: int64(rng.Intn(1000))}
		}
		spec, err := BuildChart("c", KindPie, s.Data(), BuildOptions{}, theme)
		require.NoError(t, err)

		pcts := spec.Percentages()
		sum := 0.0
		for _, p := range pcts {
			sum += p
		}
		if s.Total() == 0 {
			assert.Zero(t, sum)
			continue
		}
		assert.LessOrEqual(t, math.Abs(sum-100), 0.05*float64(n)+1e-9, "round %d: %v", round, pcts)
	}
}

func TestPercentages_Exact(t *testing.T) {
	spec, err := BuildChart("c", KindPie, Series{{Label: "groupX", Count: 7}, {Label: "groupY", Count: 3}}.Data(), BuildOptions{}, testTheme(t))
	require.NoError(t, err)
	assert.Equal(t, []float64{70, 30}, spec.Percentages())
}

package report

import (
	"encoding/json"
	"fmt"

	"github.com/montanaflynn/stats"
)

// ChartKind selects the chart family of a panel.
type ChartKind string

const (
	KindPie        ChartKind = "pie"
	KindColumn     ChartKind = "column"
	KindTimeseries ChartKind = "timeseries"
)

func (k ChartKind) Valid() bool {
	switch k {
	case KindPie, KindColumn, KindTimeseries:
		return true
	}
	return false
}

// Pie geometry shared by every proportional chart.
const (
	pieAlpha = 45
	pieBeta  = 0
	pieDepth = 35
	pieSize  = "85%"
)

// Datum is one chart point. Named points encode as [name, y], numeric points as [x, y].
type Datum struct {
	Name string
	X    float64
	Y    float64
}

func (d Datum) MarshalJSON() ([]byte, error) {
	if d.Name != "" {
		return json.Marshal([]any{d.Name, d.Y})
	}
	return json.Marshal([]float64{d.X, d.Y})
}

// ChartSpec is the declarative chart configuration handed to the browser-side
// charting library. Field names follow that library's option tree.
type ChartSpec struct {
	Chart       ChartOptions   `json:"chart"`
	Colors      []Fill         `json:"colors,omitempty"`
	Title       TitleOptions   `json:"title"`
	Credits     CreditsOptions `json:"credits"`
	Tooltip     TooltipOptions `json:"tooltip"`
	PlotOptions PlotOptions    `json:"plotOptions"`
	XAxis       *AxisOptions   `json:"xAxis,omitempty"`
	YAxis       *AxisOptions   `json:"yAxis,omitempty"`
	Legend      *LegendOptions `json:"legend,omitempty"`
	Series      []SeriesSpec   `json:"series"`
}

type ChartOptions struct {
	RenderTo  string     `json:"renderTo"`
	Type      string     `json:"type"`
	Options3D *Options3D `json:"options3d,omitempty"`
	ZoomType  string     `json:"zoomType,omitempty"`
}

type Options3D struct {
	Enabled bool `json:"enabled"`
	Alpha   int  `json:"alpha"`
	Beta    int  `json:"beta"`
}

type TitleOptions struct {
	Text string `json:"text"`
}

type CreditsOptions struct {
	Enabled bool `json:"enabled"`
}

type TooltipOptions struct {
	PointFormat  string `json:"pointFormat,omitempty"`
	HeaderFormat string `json:"headerFormat,omitempty"`
	XDateFormat  string `json:"xDateFormat,omitempty"`
}

type PlotOptions struct {
	Pie    *PiePlotOptions    `json:"pie,omitempty"`
	Column *ColumnPlotOptions `json:"column,omitempty"`
	Line   *LinePlotOptions   `json:"line,omitempty"`
}

type PiePlotOptions struct {
	Size             string     `json:"size"`
	AllowPointSelect bool       `json:"allowPointSelect"`
	Cursor           string     `json:"cursor"`
	Depth            int        `json:"depth"`
	DataLabels       DataLabels `json:"dataLabels"`
}

type ColumnPlotOptions struct {
	PointPadding float64 `json:"pointPadding"`
	GroupPadding float64 `json:"groupPadding"`
	BorderWidth  int     `json:"borderWidth"`
}

type LinePlotOptions struct {
	Step   string        `json:"step,omitempty"`
	Marker MarkerOptions `json:"marker"`
}

type MarkerOptions struct {
	Enabled bool `json:"enabled"`
}

type DataLabels struct {
	Enabled bool   `json:"enabled"`
	Format  string `json:"format,omitempty"`
}

type AxisOptions struct {
	Type  string       `json:"type,omitempty"`
	Title TitleOptions `json:"title"`
	Min   *float64     `json:"min,omitempty"`
}

type LegendOptions struct {
	Enabled bool `json:"enabled"`
}

type SeriesSpec struct {
	Type string  `json:"type"`
	Name string  `json:"name"`
	Data []Datum `json:"data"`
}

// BuildOptions carries the per-binding text of a chart.
type BuildOptions struct {
	SeriesName string
	XTitle     string
	YTitle     string
}

// BuildChart assembles the chart configuration for one panel. It is a pure
// function of its arguments; an empty or all-zero data set yields a chart
// without visible points.
func BuildChart(container string, kind ChartKind, data []Datum, opts BuildOptions, theme *Theme) (ChartSpec, error) {
	if data == nil {
		data = []Datum{}
	}
	spec := ChartSpec{
		Chart:   ChartOptions{RenderTo: container},
		Title:   TitleOptions{Text: ""},
		Credits: CreditsOptions{Enabled: false},
	}
	if theme != nil {
		spec.Colors = theme.Fills()
	}

	switch kind {
	case KindPie:
		spec.Chart.Type = "pie"
		spec.Chart.Options3D = &Options3D{Enabled: true, Alpha: pieAlpha, Beta: pieBeta}
		spec.Tooltip = TooltipOptions{PointFormat: "{series.name}: <b>{point.percentage:.1f}%</b>"}
		spec.PlotOptions.Pie = &PiePlotOptions{
			Size:             pieSize,
			AllowPointSelect: true,
			Cursor:           "pointer",
			Depth:            pieDepth,
			DataLabels:       DataLabels{Enabled: true, Format: "{point.name}"},
		}
		spec.Series = []SeriesSpec{{Type: "pie", Name: opts.SeriesName, Data: data}}
	case KindColumn:
		zero := 0.0
		spec.Chart.Type = "column"
		spec.Tooltip = TooltipOptions{
			HeaderFormat: "<span>{point.key}</span><br/>",
			PointFormat:  "{series.name}: <b>{point.y}</b>",
		}
		spec.PlotOptions.Column = &ColumnPlotOptions{PointPadding: 0, GroupPadding: 0, BorderWidth: 0}
		spec.XAxis = &AxisOptions{Title: TitleOptions{Text: opts.XTitle}}
		spec.YAxis = &AxisOptions{Title: TitleOptions{Text: opts.YTitle}, Min: &zero}
		spec.Legend = &LegendOptions{Enabled: false}
		spec.Series = []SeriesSpec{{Type: "column", Name: opts.SeriesName, Data: data}}
	case KindTimeseries:
		zero := 0.0
		spec.Chart.Type = "line"
		spec.Chart.ZoomType = "x"
		spec.Tooltip = TooltipOptions{
			XDateFormat: "%Y-%m-%d",
			PointFormat: "{series.name}: <b>{point.y}</b>",
		}
		spec.PlotOptions.Line = &LinePlotOptions{Step: "left", Marker: MarkerOptions{Enabled: false}}
		spec.XAxis = &AxisOptions{Type: "datetime", Title: TitleOptions{Text: opts.XTitle}}
		spec.YAxis = &AxisOptions{Title: TitleOptions{Text: opts.YTitle}, Min: &zero}
		spec.Legend = &LegendOptions{Enabled: false}
		spec.Series = []SeriesSpec{{Type: "line", Name: opts.SeriesName, Data: data}}
	default:
		return ChartSpec{}, fmt.Errorf("unsupported chart kind %q", kind)
	}
	return spec, nil
}

// Points returns the data of the first series.
func (c ChartSpec) Points() []Datum {
	if len(c.Series) == 0 {
		return nil
	}
	return c.Series[0].Data
}

// Percentages returns each point's share of the first series total, rounded
// to one decimal. All shares are zero when the total is not positive.
func (c ChartSpec) Percentages() []float64 {
	points := c.Points()
	out := make([]float64, len(points))
	if len(points) == 0 {
		return out
	}
	values := make(stats.Float64Data, len(points))
	for i, p := range points {
		values[i] = p.Y
	}
	total, err := stats.Sum(values)
	if err != nil || total <= 0 {
		return out
	}
	for i, v := range values {
		pct, err := stats.Round(v/total*100, 1)
		if err != nil {
			continue
		}
		out[i] = pct
	}
	return out
}

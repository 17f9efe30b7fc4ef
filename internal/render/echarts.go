package render

import (
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"samadhi-report-ui/internal/report"
)

const (
	echartsWidth  = "900px"
	echartsHeight = "420px"
)

// ECharts writes a self-contained page that draws every bound chart of doc
// with ECharts instead of the browser-side library the dashboard uses.
// Anomaly panels are not part of this view.
func ECharts(w io.Writer, doc *report.Document, palette []string) error {
	page := components.NewPage()
	page.PageTitle = doc.Title
	for _, p := range doc.Panels {
		if p.Chart == nil {
			continue
		}
		if c := echartsChart(p, palette); c != nil {
			page.AddCharts(c)
		}
	}
	return page.Render(w)
}

func echartsChart(p *report.Panel, palette []string) components.Charter {
	init := charts.WithInitializationOpts(opts.Initialization{
		Width:   echartsWidth,
		Height:  echartsHeight,
		ChartID: p.ID,
	})
	title := charts.WithTitleOpts(opts.Title{Title: p.Heading})
	colors := charts.WithColorsOpts(opts.Colors(palette))
	points := p.Chart.Points()
	name := ""
	if len(p.Chart.Series) > 0 {
		name = p.Chart.Series[0].Name
	}

	switch p.Chart.Chart.Type {
	case "pie":
		data := make([]opts.PieData, 0, len(points))
		for _, d := range points {
			data = append(data, opts.PieData{Name: d.Name, Value: d.Y})
		}
		pie := charts.NewPie()
		pie.SetGlobalOptions(init, title, colors,
			charts.WithTooltipOpts(opts.Tooltip{
				Show:      opts.Bool(true),
				Trigger:   "item",
				Formatter: "{b}: {c} ({d}%)",
			}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Type: "scroll", Orient: "vertical", Right: "10"}),
		)
		pie.AddSeries(name, data).SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true)}),
			charts.WithPieChartOpts(opts.PieChart{Radius: []string{"0%", "70%"}, Center: []string{"40%", "50%"}}),
		)
		return pie
	case "column":
		labels := make([]string, 0, len(points))
		data := make([]opts.BarData, 0, len(points))
		for _, d := range points {
			labels = append(labels, pointLabel(d))
			data = append(data, opts.BarData{Value: d.Y})
		}
		bar := charts.NewBar()
		bar.SetGlobalOptions(init, title, colors,
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
			charts.WithXAxisOpts(axisTitle(p.Chart.XAxis)),
		)
		bar.SetXAxis(labels).AddSeries(name, data)
		return bar
	case "line":
		labels := make([]string, 0, len(points))
		data := make([]opts.LineData, 0, len(points))
		for _, d := range points {
			labels = append(labels, time.UnixMilli(int64(d.X)).UTC().Format(time.DateOnly))
			data = append(data, opts.LineData{Value: d.Y})
		}
		line := charts.NewLine()
		line.SetGlobalOptions(init, title, colors,
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
			charts.WithXAxisOpts(axisTitle(p.Chart.XAxis)),
			charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
		)
		line.SetXAxis(labels).AddSeries(name, data,
			charts.WithLineChartOpts(opts.LineChart{Step: "start"}),
		)
		return line
	}
	return nil
}

func axisTitle(a *report.AxisOptions) opts.XAxis {
	if a == nil {
		return opts.XAxis{}
	}
	return opts.XAxis{Name: a.Title.Text, NameLocation: "center", NameGap: 30}
}

func pointLabel(d report.Datum) string {
	if d.Name != "" {
		return d.Name
	}
	return formatNumber(d.X)
}

// Package render draws rendered report documents for browsers, spreadsheets
// and terminals.
package render

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"samadhi-report-ui/internal/report"
)

// NavItem is one entry of the report navigation bar.
type NavItem struct {
	Type   report.ReportType
	Title  string
	Href   string
	Active bool
}

// ReportView is everything the report page template needs. Doc is always
// set; on a load failure it is the unpopulated document and Error is shown.
type ReportView struct {
	Doc   *report.Document
	Nav   []NavItem
	Error string
}

// IndexView feeds the landing page.
type IndexView struct {
	Title   string
	General *report.General
	Nav     []NavItem
	Error   string
}

// ShareRow is one line of a pie chart's data table.
type ShareRow struct {
	Label string
	Count float64
	Share float64
}

// HTML renders report pages that draw their charts in the browser.
type HTML struct {
	tmpl    *template.Template
	cdnBase string
}

func NewHTML(cdnBase string) (*HTML, error) {
	funcs := template.FuncMap{
		"caption": Caption,
		"shares":  Shares,
		"pct":     func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
		"num":     formatNumber,
		"isPie":   func(p *report.Panel) bool { return p.Chart != nil && p.Chart.Chart.Type == "pie" },
	}
	tmpl, err := template.New("layout").Funcs(funcs).Parse(layoutTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse layout template: %w", err)
	}
	if _, err := tmpl.New("report").Parse(reportTemplate); err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	if _, err := tmpl.New("index").Parse(indexTemplate); err != nil {
		return nil, fmt.Errorf("parse index template: %w", err)
	}
	return &HTML{tmpl: tmpl, cdnBase: strings.TrimRight(cdnBase, "/")}, nil
}

type pageData struct {
	Title   string
	CDNBase string
	Nav     []NavItem
	Error   string
	Doc     *report.Document
	General *report.General
	Body    string
}

// Report writes one report page.
func (h *HTML) Report(w io.Writer, v ReportView) error {
	if v.Doc == nil {
		v.Doc = report.NewDocument("", "", nil)
	}
	return h.tmpl.ExecuteTemplate(w, "layout", pageData{
		Title:   v.Doc.Title,
		CDNBase: h.cdnBase,
		Nav:     v.Nav,
		Error:   v.Error,
		Doc:     v.Doc,
		Body:    "report",
	})
}

// Index writes the landing page with the catalogue-wide counts.
func (h *HTML) Index(w io.Writer, v IndexView) error {
	return h.tmpl.ExecuteTemplate(w, "layout", pageData{
		Title:   v.Title,
		CDNBase: h.cdnBase,
		Nav:     v.Nav,
		Error:   v.Error,
		General: v.General,
		Body:    "index",
	})
}

// Caption converts a Markdown panel caption to HTML. Raw HTML in the source
// is dropped.
func Caption(md string) template.HTML {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags | mdhtml.SkipHTML})
	return template.HTML(markdown.ToHTML([]byte(md), p, r))
}

// Shares pairs the points of a pie panel with their rounded percentages.
func Shares(p *report.Panel) []ShareRow {
	if p == nil || p.Chart == nil {
		return nil
	}
	points := p.Chart.Points()
	pcts := p.Percentages()
	out := make([]ShareRow, 0, len(points))
	for i, d := range points {
		row := ShareRow{Label: d.Name, Count: d.Y}
		if i < len(pcts) {
			row.Share = pcts[i]
		}
		out = append(out, row)
	}
	return out
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

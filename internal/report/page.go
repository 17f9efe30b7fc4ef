package report

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed pages.yaml
var defaultPagesYAML []byte

// ChartBinding ties a statistics metric to a chart container.
type ChartBinding struct {
	Metric     string    `yaml:"metric" json:"metric"`
	Container  string    `yaml:"container" json:"container"`
	Title      string    `yaml:"title" json:"title"`
	SeriesName string    `yaml:"series" json:"series"`
	Kind       ChartKind `yaml:"kind" json:"kind"`
	XTitle     string    `yaml:"x_title,omitempty" json:"x_title,omitempty"`
	YTitle     string    `yaml:"y_title,omitempty" json:"y_title,omitempty"`
}

// AnomalyBinding ties an anomaly category of the document to an accordion and its badge.
type AnomalyBinding struct {
	Category  string `yaml:"category" json:"category"`
	Container string `yaml:"container" json:"container"`
	Badge     string `yaml:"badge" json:"badge"`
	Reason    string `yaml:"reason,omitempty" json:"reason,omitempty"`
}

// Page is one report variant: what to fetch and where each piece goes.
type Page struct {
	Type       ReportType       `yaml:"type" json:"type"`
	Title      string           `yaml:"title" json:"title"`
	Resource   string           `yaml:"resource" json:"resource"`
	Statistics string           `yaml:"statistics" json:"statistics"`
	Layout     []PanelLayout    `yaml:"layout" json:"layout"`
	Charts     []ChartBinding   `yaml:"charts" json:"charts"`
	Anomalies  []AnomalyBinding `yaml:"anomalies" json:"anomalies"`
}

// NewDocument returns the unpopulated document of this page.
func (p *Page) NewDocument() *Document {
	return NewDocument(p.Type, p.Title, p.Layout)
}

// Render populates a fresh document from one payload snapshot. Every binding
// is processed independently: a missing metric, a missing container or a
// malformed entry only degrades its own panel and is recorded as an issue.
func (p *Page) Render(payload *Payload, theme *Theme) *Document {
	doc := p.NewDocument()

	for _, b := range p.Charts {
		raw, ok := payload.Metric(b.Metric)
		if !ok {
			doc.addIssues(b.Container, Issue{Kind: IssueMissingMetric, Key: b.Metric, Index: -1})
			continue
		}

		var (
			data   []Datum
			issues []Issue
		)
		if b.Kind == KindPie {
			var s Series
			s, issues = ToSeries(b.Metric, raw)
			data = s.Data()
		} else {
			var s XYSeries
			s, issues = ToXYSeries(b.Metric, raw)
			data = s.Data()
		}
		doc.addIssues(b.Container, issues...)

		spec, err := BuildChart(b.Container, b.Kind, data, BuildOptions{
			SeriesName: b.SeriesName,
			XTitle:     b.XTitle,
			YTitle:     b.YTitle,
		}, theme)
		if err != nil {
			doc.addIssues(b.Container, malformed(b.Metric, -1, err.Error()))
			continue
		}
		if !doc.Bind(b.Container, spec) {
			doc.addIssues(b.Container, Issue{Kind: IssueMissingContainer, Key: b.Metric, Index: -1})
			continue
		}
		if b.Title != "" {
			doc.SetTitle(b.Container, b.Title)
		}
	}

	for _, b := range p.Anomalies {
		var records []AnomalyRecord
		if raw, ok := payload.Section(b.Category); ok {
			var issues []Issue
			records, issues = DecodeAnomalies(b.Category, b.Reason, raw)
			doc.addIssues(b.Container, issues...)
		} else {
			doc.addIssues(b.Container, Issue{Kind: IssueMissingMetric, Key: b.Category, Index: -1})
		}
		if !doc.RenderAnomalyList(b.Container, b.Badge, records) {
			doc.addIssues(b.Container, Issue{Kind: IssueMissingContainer, Key: b.Category, Index: -1})
		}
	}

	return doc
}

func (p *Page) validate() error {
	if !p.Type.Valid() {
		return fmt.Errorf("page %q: %w", p.Type, ErrUnknownReport)
	}
	if strings.TrimSpace(p.Resource) == "" {
		return fmt.Errorf("page %s: resource required", p.Type)
	}
	ids := map[string]bool{}
	badges := map[string]bool{}
	for _, l := range p.Layout {
		if strings.TrimSpace(l.ID) == "" {
			return fmt.Errorf("page %s: panel id required", p.Type)
		}
		if ids[l.ID] {
			return fmt.Errorf("page %s: duplicate panel id %q", p.Type, l.ID)
		}
		ids[l.ID] = true
		if l.Kind != PanelChart && l.Kind != PanelAnomaly {
			return fmt.Errorf("page %s: panel %q has unknown kind %q", p.Type, l.ID, l.Kind)
		}
		if l.Badge != "" {
			if badges[l.Badge] {
				return fmt.Errorf("page %s: duplicate badge id %q", p.Type, l.Badge)
			}
			badges[l.Badge] = true
		}
	}
	for _, b := range p.Charts {
		if b.Metric == "" || b.Container == "" {
			return fmt.Errorf("page %s: chart binding needs metric and container", p.Type)
		}
		if !b.Kind.Valid() {
			return fmt.Errorf("page %s: metric %q has unknown chart kind %q", p.Type, b.Metric, b.Kind)
		}
	}
	for _, b := range p.Anomalies {
		if b.Category == "" || b.Container == "" {
			return fmt.Errorf("page %s: anomaly binding needs category and container", p.Type)
		}
	}
	return nil
}

// Catalog holds the binding tables of every report page.
type Catalog struct {
	Pages []*Page `yaml:"pages" json:"pages"`

	byType map[ReportType]*Page
}

// LoadCatalog parses and validates a YAML page catalog.
func LoadCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse page catalog: %w", err)
	}
	c.byType = make(map[ReportType]*Page, len(c.Pages))
	for _, p := range c.Pages {
		if err := p.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byType[p.Type]; dup {
			return nil, fmt.Errorf("page catalog: duplicate page %s", p.Type)
		}
		c.byType[p.Type] = p
	}
	return &c, nil
}

// DefaultCatalog returns the built-in pages.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(defaultPagesYAML)
}

// LoadCatalogFile reads an operator catalog, falling back to the built-in one
// when path is empty.
func LoadCatalogFile(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read page catalog: %w", err)
	}
	return LoadCatalog(data)
}

// Page returns the definition of a report type.
func (c *Catalog) Page(t ReportType) (*Page, error) {
	p, ok := c.byType[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReport, t)
	}
	return p, nil
}

// Types lists the report types the catalog defines, in catalog order.
func (c *Catalog) Types() []ReportType {
	out := make([]ReportType, 0, len(c.Pages))
	for _, p := range c.Pages {
		out = append(out, p.Type)
	}
	return out
}

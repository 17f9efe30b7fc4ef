package report

// PanelKind distinguishes chart panels from anomaly list panels.
type PanelKind string

const (
	PanelChart   PanelKind = "chart"
	PanelAnomaly PanelKind = "anomaly"
)

// PanelLayout declares one container of a page. A page's layout is the only
// source of container identifiers; nothing is discovered from markup.
type PanelLayout struct {
	ID      string    `yaml:"id" json:"id"`
	Kind    PanelKind `yaml:"kind" json:"kind"`
	Heading string    `yaml:"heading" json:"heading"`
	Caption string    `yaml:"caption,omitempty" json:"caption,omitempty"`
	Badge   string    `yaml:"badge,omitempty" json:"badge,omitempty"`
	Style   string    `yaml:"style,omitempty" json:"style,omitempty"`
	Width   string    `yaml:"width,omitempty" json:"width,omitempty"`
}

// Panel is the rendered state of one container.
type Panel struct {
	ID        string          `json:"id"`
	Kind      PanelKind       `json:"kind"`
	Heading   string          `json:"heading"`
	Caption   string          `json:"caption,omitempty"`
	Style     string          `json:"style,omitempty"`
	Width     string          `json:"width,omitempty"`
	BadgeID   string          `json:"badge_id,omitempty"`
	BadgeText string          `json:"badge,omitempty"`
	Chart     *ChartSpec      `json:"chart,omitempty"`
	Entries   []AnomalyRecord `json:"entries,omitempty"`
}

// Percentages exposes the slice shares of a bound chart to templates.
func (p *Panel) Percentages() []float64 {
	if p == nil || p.Chart == nil {
		return nil
	}
	return p.Chart.Percentages()
}

// Document is the page model a renderer draws: an ordered set of panels keyed
// by container identifier, with badges addressable by their own identifier.
type Document struct {
	Type   ReportType `json:"type"`
	Title  string     `json:"title"`
	Panels []*Panel   `json:"panels"`
	Issues []Issue    `json:"issues"`

	byID    map[string]*Panel
	byBadge map[string]*Panel
}

// NewDocument creates an unpopulated document from a page layout.
func NewDocument(t ReportType, title string, layout []PanelLayout) *Document {
	d := &Document{
		Type:    t,
		Title:   title,
		Panels:  make([]*Panel, 0, len(layout)),
		Issues:  []Issue{},
		byID:    make(map[string]*Panel, len(layout)),
		byBadge: map[string]*Panel{},
	}
	for _, l := range layout {
		p := &Panel{
			ID:      l.ID,
			Kind:    l.Kind,
			Heading: l.Heading,
			Caption: l.Caption,
			Style:   l.Style,
			Width:   l.Width,
			BadgeID: l.Badge,
		}
		d.Panels = append(d.Panels, p)
		d.byID[l.ID] = p
		if l.Badge != "" {
			d.byBadge[l.Badge] = p
		}
	}
	return d
}

// Panel looks a container up by identifier.
func (d *Document) Panel(id string) (*Panel, bool) {
	p, ok := d.byID[id]
	return p, ok
}

// Bind places a chart into a container, replacing any chart bound before.
// A container that is not part of this page is skipped and reported as false;
// pages share binding names, so absence is expected rather than an error.
func (d *Document) Bind(id string, spec ChartSpec) bool {
	p, ok := d.byID[id]
	if !ok {
		return false
	}
	bound := spec
	p.Chart = &bound
	return true
}

// SetTitle rewrites a container heading. Missing containers are skipped.
func (d *Document) SetTitle(id, title string) bool {
	p, ok := d.byID[id]
	if !ok {
		return false
	}
	p.Heading = title
	return true
}

// SetBadge writes the text of a badge. Missing badges are skipped.
func (d *Document) SetBadge(badgeID, text string) bool {
	p, ok := d.byBadge[badgeID]
	if !ok {
		return false
	}
	p.BadgeText = text
	return true
}

// Populated reports whether any panel holds a chart or anomaly entries.
func (d *Document) Populated() bool {
	for _, p := range d.Panels {
		if p.Chart != nil || len(p.Entries) > 0 || p.BadgeText != "" {
			return true
		}
	}
	return false
}

// ChartCount returns the number of bound charts.
func (d *Document) ChartCount() int {
	n := 0
	for _, p := range d.Panels {
		if p.Chart != nil {
			n++
		}
	}
	return n
}

func (d *Document) addIssues(panel string, issues ...Issue) {
	for _, is := range issues {
		if is.Panel == "" {
			is.Panel = panel
		}
		d.Issues = append(d.Issues, is)
	}
}

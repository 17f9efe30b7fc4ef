package report

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ReportType identifies one of the catalogue report pages.
type ReportType string

const (
	Analysis ReportType = "analysis"
	Result   ReportType = "result"
	Dataset  ReportType = "dataset"
	Sample   ReportType = "sample"
)

// AllTypes lists the report types in navigation order.
var AllTypes = []ReportType{Analysis, Result, Dataset, Sample}

// ParseReportType accepts the singular and plural spellings used in URLs.
func ParseReportType(s string) (ReportType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "analysis", "analyses":
		return Analysis, nil
	case "result", "results":
		return Result, nil
	case "dataset", "datasets":
		return Dataset, nil
	case "sample", "samples":
		return Sample, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownReport, s)
	}
}

func (t ReportType) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// CategoryPoint is one slice of a proportional chart.
type CategoryPoint struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// Series is an ordered list of category counts. Order is the payload order.
type Series []CategoryPoint

// Total returns the sum of all counts.
func (s Series) Total() int64 {
	var total int64
	for _, p := range s {
		total += p.Count
	}
	return total
}

// Data converts the series to chart data points without reordering.
func (s Series) Data() []Datum {
	out := make([]Datum, 0, len(s))
	for _, p := range s {
		out = append(out, Datum{Name: p.Label, Y: float64(p.Count)})
	}
	return out
}

// XYPoint is a numeric sample: histogram bin centre/content or timestamp/cumulative count.
type XYPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// XYSeries is an ordered list of numeric points.
type XYSeries []XYPoint

func (s XYSeries) Data() []Datum {
	out := make([]Datum, 0, len(s))
	for _, p := range s {
		out = append(out, Datum{X: p.X, Y: p.Y})
	}
	return out
}

// Detail is an extra scalar attribute of a flagged entity, shown when its entry is expanded.
type Detail struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// AnomalyRecord is a flagged catalogue entity awaiting manual review.
type AnomalyRecord struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Reason  string   `json:"reason"`
	Details []Detail `json:"details,omitempty"`
}

// General holds the catalogue-wide entity counts.
type General struct {
	Datasets int64 `json:"nDatasets"`
	Samples  int64 `json:"nSamples"`
	Results  int64 `json:"nResults"`
	Analyses int64 `json:"nAnalysis"`
}

// Payload is one decoded report document. It is read-only once decoded.
type Payload struct {
	Type       ReportType
	Statistics map[string]json.RawMessage
	Sections   map[string]json.RawMessage
}

// Metric returns the raw series stored under the statistics key.
func (p *Payload) Metric(name string) (json.RawMessage, bool) {
	if p == nil {
		return nil, false
	}
	raw, ok := p.Statistics[name]
	if !ok || isNull(raw) {
		return nil, false
	}
	return raw, true
}

// Section returns a top-level entry of the document, typically an anomaly category.
func (p *Payload) Section(name string) (json.RawMessage, bool) {
	if p == nil {
		return nil, false
	}
	raw, ok := p.Sections[name]
	if !ok || isNull(raw) {
		return nil, false
	}
	return raw, true
}

func isNull(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

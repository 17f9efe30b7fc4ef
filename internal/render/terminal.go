package render

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"samadhi-report-ui/internal/report"
)

const (
	defaultTermWidth = 100
	maxBarRows       = 25
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0e5d8f"))
	headingStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#777777"))
	badgeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Background(lipgloss.Color("#777777")).Padding(0, 1)
	panelStyle   = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#dddddd")).Padding(0, 1)
	issueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#a94442"))
)

// TerminalWidth returns the width of stdout, or a default when it is not a
// terminal.
func TerminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultTermWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return defaultTermWidth
	}
	return w
}

// Terminal prints doc as bordered text panels. Pie shares are listed with
// their percentages, distributions as horizontal bars and anomaly lists by
// entry.
func Terminal(w io.Writer, doc *report.Document, width int) error {
	if width <= 20 {
		width = defaultTermWidth
	}
	inner := width - 4

	var b strings.Builder
	b.WriteString(titleStyle.Render(doc.Title))
	b.WriteString("\n")
	for _, p := range doc.Panels {
		b.WriteString(panelStyle.Width(inner).Render(panelText(p, inner-2)))
		b.WriteString("\n")
	}
	if len(doc.Issues) > 0 {
		b.WriteString(issueStyle.Render(fmt.Sprintf("%d issue(s) while rendering:", len(doc.Issues))))
		b.WriteString("\n")
		for _, is := range doc.Issues {
			b.WriteString(issueStyle.Render(fmt.Sprintf("  %s %s %s", is.Kind, is.Key, is.Detail)))
			b.WriteString("\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func panelText(p *report.Panel, width int) string {
	var lines []string
	head := headingStyle.Render(p.Heading)
	if p.BadgeID != "" {
		head += " " + badgeStyle.Render(p.BadgeText)
	}
	lines = append(lines, head)

	switch {
	case p.Kind == report.PanelAnomaly:
		if p.Caption != "" {
			lines = append(lines, mutedStyle.Render(p.Caption))
		}
		for _, e := range p.Entries {
			line := fmt.Sprintf("- %s [%s]", e.Name, e.ID)
			if e.Reason != "" {
				line += " " + mutedStyle.Render(e.Reason)
			}
			lines = append(lines, line)
		}
	case p.Chart == nil:
		lines = append(lines, mutedStyle.Render("no data"))
	case p.Chart.Chart.Type == "pie":
		pcts := p.Percentages()
		labelWidth := 0
		points := p.Chart.Points()
		for _, d := range points {
			labelWidth = max(labelWidth, lipgloss.Width(d.Name))
		}
		for i, d := range points {
			lines = append(lines, fmt.Sprintf("%-*s %8s %6.1f%%", labelWidth, d.Name, formatNumber(d.Y), pcts[i]))
		}
	default:
		lines = append(lines, barLines(p, width)...)
	}
	return strings.Join(lines, "\n")
}

// barLines draws a column or line chart as horizontal bars, merging
// neighbouring points so at most maxBarRows rows are printed.
func barLines(p *report.Panel, width int) []string {
	points := p.Chart.Points()
	if len(points) == 0 {
		return []string{mutedStyle.Render("no data")}
	}
	step := (len(points) + maxBarRows - 1) / maxBarRows
	type row struct {
		label string
		value float64
	}
	rows := make([]row, 0, maxBarRows)
	for i := 0; i < len(points); i += step {
		end := min(i+step, len(points))
		r := row{label: axisLabel(p, points[i])}
		for _, d := range points[i:end] {
			if p.Chart.Chart.Type == "line" {
				r.value = d.Y
			} else {
				r.value += d.Y
			}
		}
		rows = append(rows, r)
	}

	var peak float64
	labelWidth := 0
	for _, r := range rows {
		peak = max(peak, r.value)
		labelWidth = max(labelWidth, len(r.label))
	}
	barWidth := max(width-labelWidth-12, 5)
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		n := 0
		if peak > 0 && r.value > 0 {
			n = int(r.value / peak * float64(barWidth))
		}
		out = append(out, fmt.Sprintf("%-*s %s %s", labelWidth, r.label, strings.Repeat("█", n), formatNumber(r.value)))
	}
	return out
}

func axisLabel(p *report.Panel, d report.Datum) string {
	if p.Chart.Chart.Type == "line" {
		return time.UnixMilli(int64(d.X)).UTC().Format(time.DateOnly)
	}
	return pointLabel(d)
}

package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"samadhi-report-ui/internal/report"
)

const (
	summarySheet = "Summary"
	maxSheetName = 31
)

var sheetNameReplacer = strings.NewReplacer(":", " ", `\`, " ", "/", " ", "?", " ", "*", " ", "[", "(", "]", ")")

// Workbook writes doc as an xlsx workbook: a summary sheet listing every
// panel, then one sheet per chart or non-empty anomaly list.
func Workbook(w io.Writer, doc *report.Document) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}
	used := map[string]bool{strings.ToLower(summarySheet): true}

	if err := writeRows(f, summarySheet, [][]any{{"Report", doc.Title}, {}, {"Panel", "Kind", "Heading", "Entries"}}); err != nil {
		return err
	}
	row := 4
	for _, p := range doc.Panels {
		n := len(p.Entries)
		if p.Chart != nil {
			n = len(p.Chart.Points())
		}
		if err := writeRow(f, summarySheet, row, []any{p.ID, string(p.Kind), p.Heading, n}); err != nil {
			return err
		}
		row++

		switch {
		case p.Chart != nil:
			sheet := uniqueSheetName(p.Heading, p.ID, used)
			if _, err := f.NewSheet(sheet); err != nil {
				return fmt.Errorf("create sheet %q: %w", sheet, err)
			}
			if err := writeRows(f, sheet, chartRows(p)); err != nil {
				return err
			}
		case len(p.Entries) > 0:
			sheet := uniqueSheetName(p.Heading, p.ID, used)
			if _, err := f.NewSheet(sheet); err != nil {
				return fmt.Errorf("create sheet %q: %w", sheet, err)
			}
			if err := writeRows(f, sheet, anomalyRows(p)); err != nil {
				return err
			}
		}
	}

	if len(doc.Issues) > 0 {
		row++
		if err := writeRow(f, summarySheet, row, []any{"Issue", "Key", "Panel", "Detail"}); err != nil {
			return err
		}
		for _, is := range doc.Issues {
			row++
			if err := writeRow(f, summarySheet, row, []any{string(is.Kind), is.Key, is.Panel, is.Detail}); err != nil {
				return err
			}
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func chartRows(p *report.Panel) [][]any {
	points := p.Chart.Points()
	switch p.Chart.Chart.Type {
	case "pie":
		pcts := p.Percentages()
		rows := [][]any{{"Label", "Count", "Share (%)"}}
		for i, d := range points {
			rows = append(rows, []any{d.Name, d.Y, pcts[i]})
		}
		return rows
	case "line":
		rows := [][]any{{"Date", "Value"}}
		for _, d := range points {
			rows = append(rows, []any{time.UnixMilli(int64(d.X)).UTC(), d.Y})
		}
		return rows
	default:
		rows := [][]any{{"Bin", "Count"}}
		for _, d := range points {
			rows = append(rows, []any{pointLabel(d), d.Y})
		}
		return rows
	}
}

func anomalyRows(p *report.Panel) [][]any {
	var keys []string
	seen := map[string]bool{}
	for _, e := range p.Entries {
		for _, d := range e.Details {
			if !seen[d.Key] {
				seen[d.Key] = true
				keys = append(keys, d.Key)
			}
		}
	}
	header := []any{"ID", "Name", "Reason"}
	for _, k := range keys {
		header = append(header, k)
	}
	rows := [][]any{header}
	for _, e := range p.Entries {
		values := make(map[string]string, len(e.Details))
		for _, d := range e.Details {
			values[d.Key] = d.Value
		}
		r := []any{e.ID, e.Name, e.Reason}
		for _, k := range keys {
			r = append(r, values[k])
		}
		rows = append(rows, r)
	}
	return rows
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, r := range rows {
		if err := writeRow(f, sheet, i+1, r); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for c, v := range values {
		cell, err := excelize.CoordinatesToCellName(c+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

// uniqueSheetName derives a legal sheet name from the panel heading, falling
// back to its id, and suffixes a counter on collision.
func uniqueSheetName(heading, id string, used map[string]bool) string {
	base := strings.TrimSpace(sheetNameReplacer.Replace(heading))
	if base == "" {
		base = id
	}
	base = truncateRunes(strings.Trim(base, "'"), maxSheetName)
	name := base
	for i := 2; used[strings.ToLower(name)]; i++ {
		suffix := fmt.Sprintf(" %d", i)
		name = truncateRunes(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}

package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ToSeries validates pre-aggregated category counts. Entries are kept in
// payload order; an entry without a label or with a count that is not a
// non-negative integer is skipped and reported.
func ToSeries(key string, raw json.RawMessage) (Series, []Issue) {
	entries, err := decodeArray(raw)
	if err != nil {
		return Series{}, []Issue{malformed(key, -1, err.Error())}
	}

	out := make(Series, 0, len(entries))
	var issues []Issue
	for i, entry := range entries {
		label, count, err := decodeCategory(entry)
		if err != nil {
			issues = append(issues, malformed(key, i, err.Error()))
			continue
		}
		out = append(out, CategoryPoint{Label: label, Count: count})
	}
	return out, issues
}

// ToXYSeries validates numeric series. Pairs are read as [x, y] with y a
// non-negative count; bare numbers are read as a cumulative profile where the
// i-th accepted value has y = i+1.
func ToXYSeries(key string, raw json.RawMessage) (XYSeries, []Issue) {
	entries, err := decodeArray(raw)
	if err != nil {
		return XYSeries{}, []Issue{malformed(key, -1, err.Error())}
	}

	out := make(XYSeries, 0, len(entries))
	var issues []Issue
	for i, entry := range entries {
		if x, err := decodeNumber(entry); err == nil {
			out = append(out, XYPoint{X: x, Y: float64(len(out) + 1)})
			continue
		}
		pair, err := decodeArray(entry)
		if err != nil || len(pair) != 2 {
			issues = append(issues, malformed(key, i, "expected [x, y] pair or number"))
			continue
		}
		x, errX := decodeNumber(pair[0])
		y, errY := decodeNumber(pair[1])
		if errX != nil || errY != nil {
			issues = append(issues, malformed(key, i, "non-numeric coordinate"))
			continue
		}
		if y < 0 {
			issues = append(issues, malformed(key, i, fmt.Sprintf("negative count %v", y)))
			continue
		}
		out = append(out, XYPoint{X: x, Y: y})
	}
	return out, issues
}

// DecodeAnomalies normalises flagged entities. Each entry is either an entity
// object or an [entity, reason] pair; entities without an identifier are skipped.
func DecodeAnomalies(key, defaultReason string, raw json.RawMessage) ([]AnomalyRecord, []Issue) {
	entries, err := decodeArray(raw)
	if err != nil {
		return []AnomalyRecord{}, []Issue{malformed(key, -1, err.Error())}
	}

	out := make([]AnomalyRecord, 0, len(entries))
	var issues []Issue
	for i, entry := range entries {
		entity := entry
		reason := ""
		if pair, err := decodeArray(entry); err == nil {
			if len(pair) == 0 || len(pair) > 2 {
				issues = append(issues, malformed(key, i, "expected [entity, reason] pair"))
				continue
			}
			entity = pair[0]
			if len(pair) == 2 {
				s, ok := decodeScalar(pair[1])
				if !ok {
					issues = append(issues, malformed(key, i, "reason is not a string"))
					continue
				}
				reason = s
			}
		}

		rec, err := decodeEntity(entity)
		if err != nil {
			issues = append(issues, malformed(key, i, err.Error()))
			continue
		}
		if reason != "" {
			rec.Reason = reason
		}
		if rec.Reason == "" {
			rec.Reason = defaultReason
		}
		out = append(out, rec)
	}
	return out, issues
}

var (
	idFields   = []string{"id", "dataset_id", "sample_id", "result_id", "analysis_id"}
	nameFields = []string{"name", "description", "path"}
)

func decodeEntity(raw json.RawMessage) (AnomalyRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return AnomalyRecord{}, fmt.Errorf("entity is not an object")
	}

	used := map[string]bool{}
	rec := AnomalyRecord{}
	for _, f := range idFields {
		if v, ok := decodeScalar(fields[f]); ok && v != "" {
			rec.ID = v
			used[f] = true
			break
		}
	}
	if rec.ID == "" {
		return AnomalyRecord{}, fmt.Errorf("entity has no identifier")
	}
	for _, f := range nameFields {
		if v, ok := decodeScalar(fields[f]); ok && v != "" {
			rec.Name = v
			used[f] = true
			break
		}
	}
	if rec.Name == "" {
		rec.Name = "#" + rec.ID
	}
	if v, ok := decodeScalar(fields["reason"]); ok {
		rec.Reason = v
		used["reason"] = true
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if !used[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v, ok := decodeScalar(fields[k]); ok && v != "" {
			rec.Details = append(rec.Details, Detail{Key: k, Value: v})
		}
	}
	return rec, nil
}

func decodeCategory(raw json.RawMessage) (string, int64, error) {
	var labelRaw, countRaw json.RawMessage
	if pair, err := decodeArray(raw); err == nil {
		if len(pair) != 2 {
			return "", 0, fmt.Errorf("expected [label, count] pair, got %d elements", len(pair))
		}
		labelRaw, countRaw = pair[0], pair[1]
	} else {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
			return "", 0, fmt.Errorf("expected [label, count] pair")
		}
		labelRaw = firstPresent(obj, "label", "name")
		countRaw = firstPresent(obj, "count", "value", "y")
	}

	label, ok := decodeScalar(labelRaw)
	if !ok || strings.TrimSpace(label) == "" {
		return "", 0, fmt.Errorf("empty category label")
	}
	count, err := decodeCount(countRaw)
	if err != nil {
		return "", 0, err
	}
	return label, count, nil
}

// decodeCount accepts integral JSON numbers and decimal strings; the statistics
// job writes 64-bit counts as strings.
func decodeCount(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("missing count")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("count %q is not an integer", s)
		}
		if n < 0 {
			return 0, fmt.Errorf("negative count %d", n)
		}
		return n, nil
	}
	f, err := decodeNumber(raw)
	if err != nil {
		return 0, fmt.Errorf("count is not a number")
	}
	if f < 0 {
		return 0, fmt.Errorf("negative count %v", f)
	}
	if f != math.Trunc(f) || f > math.MaxInt64 {
		return 0, fmt.Errorf("count %v is not an integer", f)
	}
	return int64(f), nil
}

func decodeNumber(raw json.RawMessage) (float64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0, fmt.Errorf("missing number")
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return 0, err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, err
		}
		return finite(f)
	}
	var f float64
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return 0, err
	}
	return finite(f)
}

// finite rejects NaN and infinities, which ParseFloat accepts but JSON and the
// chart library cannot carry.
func finite(f float64) (float64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite number %v", f)
	}
	return f, nil
}

// decodeScalar renders strings, numbers and booleans as text. Numbers keep
// their literal spelling so that labels such as 13.0 survive unchanged.
func decodeScalar(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return "", false
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false
		}
		return s, true
	case '{', '[':
		return "", false
	default:
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err == nil {
			return n.String(), true
		}
		var b bool
		if err := json.Unmarshal(trimmed, &b); err == nil {
			return strconv.FormatBool(b), true
		}
		return "", false
	}
}

func decodeArray(raw json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("expected a JSON array")
	}
	var out []json.RawMessage
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func firstPresent(obj map[string]json.RawMessage, keys ...string) json.RawMessage {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return v
		}
	}
	return nil
}

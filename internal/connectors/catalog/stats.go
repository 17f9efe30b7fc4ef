package catalog

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// unknownLabel replaces NULL group values.
const unknownLabel = "Unknown"

var cadiExpr = regexp.MustCompile(`.*([A-Z]{3})-\d{2}-\d{3}`)

// physicsGroup extracts the group of a CADI line such as "HIG-16-020".
func physicsGroup(cadiline string) string {
	m := cadiExpr.FindStringSubmatch(cadiline)
	if m == nil {
		return "NONE"
	}
	return m[1]
}

// freqCounter accumulates label counts in first-seen order.
type freqCounter struct {
	order  []string
	counts map[string]int64
}

func newFreqCounter() *freqCounter {
	return &freqCounter{counts: map[string]int64{}}
}

func (f *freqCounter) add(label string, n int64) {
	if _, ok := f.counts[label]; !ok {
		f.order = append(f.order, label)
	}
	f.counts[label] += n
}

// pairs emits [label, count] pairs with the Unknown bucket last.
func (f *freqCounter) pairs() [][2]any {
	out := make([][2]any, 0, len(f.order))
	for _, label := range f.order {
		if label == unknownLabel {
			continue
		}
		out = append(out, [2]any{label, f.counts[label]})
	}
	if n, ok := f.counts[unknownLabel]; ok {
		out = append(out, [2]any{unknownLabel, n})
	}
	return out
}

// histogram bins values into n equal bins over [lo, hi) and returns
// [centre, content] pairs. Values outside the range are not counted.
func histogram(values []float64, n int, lo, hi float64) [][2]float64 {
	out := make([][2]float64, n)
	width := (hi - lo) / float64(n)
	for i := range out {
		out[i][0] = lo + (float64(i)+0.5)*width
	}
	for _, v := range values {
		if v < lo || v >= hi {
			continue
		}
		bin := int((v - lo) / width)
		if bin >= n {
			bin = n - 1
		}
		out[bin][1]++
	}
	return out
}

// autoHistogram bins values over their own range, widened so that the
// maximum falls inside the last bin.
func autoHistogram(values []float64, n int) [][2]float64 {
	if len(values) == 0 {
		return histogram(nil, n, 0, 1)
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi <= lo {
		hi = lo + 1
	} else {
		hi += (hi - lo) / float64(n*10)
	}
	return histogram(values, n, lo, hi)
}

// cumulative pairs each timestamp with the running sum of values.
func cumulative(times []int64, values []float64) [][2]float64 {
	out := make([][2]float64, len(times))
	sum := 0.0
	for i, t := range times {
		sum += values[i]
		out[i] = [2]float64{float64(t), sum}
	}
	return out
}

// countProfile pairs each timestamp with its one-based rank.
func countProfile(times []int64) [][2]int64 {
	out := make([][2]int64, len(times))
	for i, t := range times {
		out[i] = [2]int64{t, int64(i + 1)}
	}
	return out
}

// label renders a grouped column value the way the report pages expect it.
func label(v any) string {
	switch x := v.(type) {
	case nil:
		return unknownLabel
	case []byte:
		return string(x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		s := strconv.FormatFloat(x, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return unknownLabel
	}
}

// millis converts a creation time column to epoch milliseconds; NULL is 0.
func millis(v any) int64 {
	switch x := v.(type) {
	case time.Time:
		return x.UnixMilli()
	case []byte:
		return parseMillis(string(x))
	case string:
		return parseMillis(x)
	case int64:
		return x * 1000
	default:
		return 0
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseMillis(s string) int64 {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}

// number reads a numeric column value. MySQL's text protocol returns FLOAT
// columns as []byte, so text is parsed too.
func number(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case []byte:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// floatLabel labels a FLOAT column so that integral values read 13.0 on
// every driver.
func floatLabel(v any) string {
	if f, ok := number(v); ok {
		return label(f)
	}
	return label(v)
}

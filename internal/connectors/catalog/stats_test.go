package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPhysicsGroup(t *testing.T) {
	cases := map[string]string{
		"HIG-16-020":                 "HIG",
		"CMS-PAS-TOP-17-001":         "TOP",
		"http://cms.cern/SMP-18-011": "SMP",
		"hig-16-020":                 "NONE",
		"":                           "NONE",
	}
	for in, want := range cases {
		assert.Equal(t, want, physicsGroup(in), in)
	}
}

func TestHistogram_BinsAndOverflow(t *testing.T) {
	h := histogram([]float64{0, 0.5, 9.99, 10, -1, 3}, 10, 0, 10)

	assert.Len(t, h, 10)
	assert.Equal(t, [2]float64{0.5, 2}, h[0])
	assert.Equal(t, [2]float64{3.5, 1}, h[3])
	assert.Equal(t, [2]float64{9.5, 1}, h[9])
}

func TestAutoHistogram_KeepsMaximumInRange(t *testing.T) {
	h := autoHistogram([]float64{100, 50, 200}, 100)

	var total float64
	for _, bin := range h {
		total += bin[1]
	}
	assert.Equal(t, 3.0, total)
	assert.Equal(t, 1.0, h[99][1])

	flat := autoHistogram([]float64{7, 7}, 4)
	assert.Equal(t, 2.0, flat[0][1])

	empty := autoHistogram(nil, 5)
	assert.Len(t, empty, 5)
}

func TestFreqCounter_UnknownLast(t *testing.T) {
	f := newFreqCounter()
	f.add(unknownLabel, 2)
	f.add("alice", 1)
	f.add("bob", 1)
	f.add("alice", 4)

	assert.Equal(t, [][2]any{{"alice", int64(5)}, {"bob", int64(1)}, {unknownLabel, int64(2)}}, f.pairs())
}

func TestLabelAndMillis(t *testing.T) {
	assert.Equal(t, "13.0", label(13.0))
	assert.Equal(t, "13.6", label(13.6))
	assert.Equal(t, "Unknown", label(nil))
	assert.Equal(t, "CMSSW_8_0_1", label([]byte("CMSSW_8_0_1")))
	assert.Equal(t, "13.0", floatLabel([]byte("13")))
	assert.Equal(t, "13.6", floatLabel([]byte("13.6")))
	assert.Equal(t, "8.0", floatLabel(int64(8)))
	assert.Equal(t, "Unknown", floatLabel(nil))
	assert.Equal(t, "n/a", floatLabel([]byte("n/a")))

	want := time.Date(2019, 3, 1, 10, 0, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, want, millis("2019-03-01 10:00:00"))
	assert.Equal(t, want, millis(time.Date(2019, 3, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, int64(0), millis(nil))
}

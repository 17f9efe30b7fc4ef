package report

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// DefaultPalette is the grid-light palette the dashboard has always used.
var DefaultPalette = []string{
	"#7cb5ec", "#f7a35c", "#90ee7e", "#7798BF", "#aaeeee",
	"#ff0066", "#eeaaee", "#55BF3B", "#DF5353", "#7798BF", "#aaeeee",
}

// gradientShade is the brightness shift applied to the outer gradient stop.
const gradientShade = -0.3

// RadialGradient positions a radial fill relative to the slice bounding box.
type RadialGradient struct {
	Cx float64 `json:"cx"`
	Cy float64 `json:"cy"`
	R  float64 `json:"r"`
}

// GradientStop is one colour stop, encoded as [offset, colour].
type GradientStop struct {
	Offset float64
	Color  string
}

func (s GradientStop) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{s.Offset, s.Color})
}

func (s *GradientStop) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("gradient stop: expected [offset, colour]")
	}
	if err := json.Unmarshal(pair[0], &s.Offset); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &s.Color)
}

// Fill is a shaded slice colour.
type Fill struct {
	RadialGradient RadialGradient `json:"radialGradient"`
	Stops          []GradientStop `json:"stops"`
}

// Base returns the unshaded colour of the fill.
func (f Fill) Base() string {
	if len(f.Stops) == 0 {
		return ""
	}
	return f.Stops[0].Color
}

// Theme is the chart colour theme. It is built once at startup, never mutated,
// and passed to every chart build.
type Theme struct {
	base  []string
	fills []Fill
}

// NewTheme derives the gradient fills for a palette of hex colours.
func NewTheme(palette []string) (*Theme, error) {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	t := &Theme{
		base:  make([]string, 0, len(palette)),
		fills: make([]Fill, 0, len(palette)),
	}
	for _, c := range palette {
		c = strings.TrimSpace(c)
		dark, err := Darken(c)
		if err != nil {
			return nil, err
		}
		t.base = append(t.base, c)
		t.fills = append(t.fills, Fill{
			RadialGradient: RadialGradient{Cx: 0.5, Cy: 0.3, R: 0.7},
			Stops: []GradientStop{
				{Offset: 0, Color: c},
				{Offset: 1, Color: dark},
			},
		})
	}
	return t, nil
}

// Palette returns a copy of the base colours.
func (t *Theme) Palette() []string {
	return append([]string(nil), t.base...)
}

// Fills returns a copy of the gradient fills, one per palette colour.
func (t *Theme) Fills() []Fill {
	out := make([]Fill, len(t.fills))
	for i, f := range t.fills {
		out[i] = Fill{RadialGradient: f.RadialGradient, Stops: append([]GradientStop(nil), f.Stops...)}
	}
	return out
}

// Fill returns the fill used for the i-th slice, cycling through the palette.
func (t *Theme) Fill(i int) Fill {
	if len(t.fills) == 0 {
		return Fill{}
	}
	return t.fills[i%len(t.fills)]
}

// Darken shifts every channel of a hex colour by 30% of full scale towards
// black, truncating the shift to whole units and clamping to [0,255].
func Darken(hex string) (string, error) {
	c, err := colorful.Hex(normalizeHex(hex))
	if err != nil {
		return "", fmt.Errorf("palette colour %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	shift := int(math.Trunc(gradientShade * 255))
	return fmt.Sprintf("rgb(%d,%d,%d)", clampChannel(int(r)+shift), clampChannel(int(g)+shift), clampChannel(int(b)+shift)), nil
}

// normalizeHex adds a missing leading '#'.
func normalizeHex(hex string) string {
	hex = strings.TrimSpace(hex)
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	return hex
}

func clampChannel(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

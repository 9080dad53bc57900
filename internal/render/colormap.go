package render

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Stop is one anchor of a sequential palette.
type Stop struct {
	Col colorful.Color
	Pos float64
}

// Palette maps normalized values in [0, 1] to colors by HCL interpolation
// between stops. Out-of-range inputs clamp to the endpoints.
type Palette []Stop

// At returns the interpolated color for t.
func (p Palette) At(t float64) color.Color {
	if len(p) == 0 {
		return color.Black
	}
	if t <= p[0].Pos {
		return p[0].Col
	}
	for i := 0; i < len(p)-1; i++ {
		c1, c2 := p[i], p[i+1]
		if c1.Pos <= t && t <= c2.Pos {
			f := (t - c1.Pos) / (c2.Pos - c1.Pos)
			return c1.Col.BlendHcl(c2.Col, f).Clamped()
		}
	}
	return p[len(p)-1].Col
}

// YlGnBu returns the nine-class yellow-green-blue sequential palette used for
// precipitation totals: pale yellow for dry cells through deep navy for the
// wettest.
func YlGnBu() Palette {
	hexes := []string{
		"#ffffd9", "#edf8b1", "#c7e9b4", "#7fcdbb", "#41b6c4",
		"#1d91c0", "#225ea8", "#253494", "#081d58",
	}
	p := make(Palette, len(hexes))
	for i, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			panic("render: bad palette hex " + h)
		}
		p[i] = Stop{Col: c, Pos: float64(i) / float64(len(hexes)-1)}
	}
	return p
}

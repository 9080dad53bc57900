// Package render rasterizes precipitation grids into map frames: colored
// cells on an equirectangular fit, country borders on top, and a legend strip
// underneath.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	geojson "github.com/paulmach/go.geojson"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/couchcryptid/precip-atlas-service/internal/domain"
	"github.com/couchcryptid/precip-atlas-service/internal/projection"
)

// LegendHeight is the base-pixel height of the legend strip below the map.
const LegendHeight = 46

var (
	backgroundColor = color.RGBA{R: 247, G: 251, B: 253, A: 255}
	borderColor     = color.RGBA{R: 80, G: 80, B: 80, A: 255}
	textColor       = color.RGBA{R: 34, G: 34, B: 34, A: 255}
)

// MapSpec carries everything one frame needs.
type MapSpec struct {
	Grid    *domain.Grid
	Borders *geojson.FeatureCollection

	// Color scale range. Max is the clamp threshold when clamping ran.
	Min, Max float64
	Clamped  bool
}

// Renderer rasterizes frames at a fixed base size and integer DPI scale.
type Renderer struct {
	width   int
	height  int
	scale   int
	palette Palette
	face    font.Face
	proj    projection.Equirectangular
}

// New creates a Renderer. The scale multiplies every pixel dimension for
// high-DPI output while keeping the geographic fit identical.
func New(width, height, scale int, palette Palette) (*Renderer, error) {
	if width <= 0 || height <= 0 || scale < 1 {
		return nil, fmt.Errorf("render: invalid frame %dx%d@%dx", width, height, scale)
	}

	ft, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("render: parse font: %w", err)
	}
	face, err := opentype.NewFace(ft, &opentype.FaceOptions{
		Size:    11 * float64(scale),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("render: build face: %w", err)
	}

	return &Renderer{
		width:   width,
		height:  height,
		scale:   scale,
		palette: palette,
		face:    face,
		proj:    projection.NewEquirectangular(width, height),
	}, nil
}

// Bounds reports the full frame size in device pixels, legend included.
func (r *Renderer) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.width*r.scale, (r.height+LegendHeight)*r.scale)
}

// Render paints one complete frame: background, grid cells, borders, legend.
func (r *Renderer) Render(spec MapSpec) (*image.RGBA, error) {
	if spec.Grid == nil {
		return nil, fmt.Errorf("render: nil grid")
	}

	img := image.NewRGBA(r.Bounds())
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	r.paintCells(img, spec)
	if spec.Borders != nil {
		r.strokeBorders(img, spec.Borders)
	}
	r.drawLegend(img, spec)

	return img, nil
}

// paintCells fills the projected rectangle of every present grid cell. Cell
// extents run between midpoint edges so irregular spacing tiles without gaps.
func (r *Renderer) paintCells(img *image.RGBA, spec MapSpec) {
	g := spec.Grid
	latEdges, lonEdges := g.CellEdges()
	span := spec.Max - spec.Min

	for i := range g.Lats {
		// Higher latitude projects to a smaller y, so the cell's top edge
		// is the upper latitude edge.
		_, yTop := r.proj.Project(latEdges[i+1], 0)
		_, yBot := r.proj.Project(latEdges[i], 0)
		for j := range g.Lons {
			v, ok := g.Value(i, j)
			if !ok {
				continue
			}

			t := 0.0
			if span > 0 {
				t = (v - spec.Min) / span
			}
			c := r.palette.At(t)

			xL, _ := r.proj.Project(0, lonEdges[j])
			xR, _ := r.proj.Project(0, lonEdges[j+1])

			rect := image.Rect(r.dev(xL), r.dev(yTop), r.dev(xR), r.dev(yBot))
			rect = rect.Intersect(image.Rect(0, 0, r.width*r.scale, r.height*r.scale))
			draw.Draw(img, rect, image.NewUniform(c), image.Point{}, draw.Src)
		}
	}
}

// dev converts a base-frame coordinate to device pixels.
func (r *Renderer) dev(v float64) int {
	return int(math.Round(v * float64(r.scale)))
}

// strokeBorders draws every polygon ring of the boundary features.
func (r *Renderer) strokeBorders(img *image.RGBA, fc *geojson.FeatureCollection) {
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		switch {
		case f.Geometry.Polygon != nil:
			r.strokeRings(img, f.Geometry.Polygon)
		case f.Geometry.MultiPolygon != nil:
			for _, poly := range f.Geometry.MultiPolygon {
				r.strokeRings(img, poly)
			}
		}
	}
}

func (r *Renderer) strokeRings(img *image.RGBA, rings [][][]float64) {
	for _, ring := range rings {
		for k := 1; k < len(ring); k++ {
			// GeoJSON positions are [lon, lat].
			x0, y0 := r.proj.Project(ring[k-1][1], ring[k-1][0])
			x1, y1 := r.proj.Project(ring[k][1], ring[k][0])
			r.strokeSegment(img, x0, y0, x1, y1)
		}
	}
}

// strokeSegment draws a line in device pixels, one scale-sized dot per step,
// clipped to the map area.
func (r *Renderer) strokeSegment(img *image.RGBA, x0, y0, x1, y1 float64) {
	dx0, dy0 := float64(r.dev(x0)), float64(r.dev(y0))
	dx1, dy1 := float64(r.dev(x1)), float64(r.dev(y1))

	steps := math.Max(math.Abs(dx1-dx0), math.Abs(dy1-dy0))
	if steps == 0 {
		r.dot(img, int(dx0), int(dy0))
		return
	}
	for s := 0.0; s <= steps; s++ {
		f := s / steps
		r.dot(img, int(math.Round(dx0+(dx1-dx0)*f)), int(math.Round(dy0+(dy1-dy0)*f)))
	}
}

func (r *Renderer) dot(img *image.RGBA, x, y int) {
	maxX, maxY := r.width*r.scale, r.height*r.scale
	for dy := 0; dy < r.scale; dy++ {
		for dx := 0; dx < r.scale; dx++ {
			px, py := x+dx, y+dy
			if px >= 0 && px < maxX && py >= 0 && py < maxY {
				img.SetRGBA(px, py, borderColor)
			}
		}
	}
}

// drawLegend paints the color ramp and min/mid/max tick labels in the strip
// below the map.
func (r *Renderer) drawLegend(img *image.RGBA, spec MapSpec) {
	const (
		barX = 12
		barW = 260
		barH = 10
	)
	barY := r.height + 14

	// Ramp: one palette sample per device column.
	x0, x1 := barX*r.scale, (barX+barW)*r.scale
	y0, y1 := barY*r.scale, (barY+barH)*r.scale
	for x := x0; x < x1; x++ {
		t := float64(x-x0) / float64(x1-x0-1)
		c := r.palette.At(t)
		for y := y0; y < y1; y++ {
			img.Set(x, y, c)
		}
	}

	// Hairline frame around the ramp.
	frame := image.Rect(x0, y0, x1, y1)
	for x := frame.Min.X; x < frame.Max.X; x++ {
		img.SetRGBA(x, frame.Min.Y, borderColor)
		img.SetRGBA(x, frame.Max.Y-1, borderColor)
	}
	for y := frame.Min.Y; y < frame.Max.Y; y++ {
		img.SetRGBA(frame.Min.X, y, borderColor)
		img.SetRGBA(frame.Max.X-1, y, borderColor)
	}

	labelY := (barY + barH + 14) * r.scale
	maxLabel := formatMM(spec.Max)
	if spec.Clamped {
		maxLabel = "≥ " + maxLabel
	}

	r.drawLabel(img, formatMM(spec.Min), x0, labelY, alignLeft)
	r.drawLabel(img, formatMM(spec.Min+(spec.Max-spec.Min)/2), (x0+x1)/2, labelY, alignCenter)
	r.drawLabel(img, maxLabel, x1, labelY, alignRight)
	r.drawLabel(img, "precipitation, mm (5-year total)", x1+16*r.scale, labelY, alignLeft)
}

type alignment int

const (
	alignLeft alignment = iota
	alignCenter
	alignRight
)

func (r *Renderer) drawLabel(img *image.RGBA, s string, x, y int, align alignment) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: r.face,
		Dot:  fixed.P(x, y),
	}
	w := d.MeasureString(s)
	switch align {
	case alignCenter:
		d.Dot.X -= w / 2
	case alignRight:
		d.Dot.X -= w
	}
	d.DrawString(s)
}

func formatMM(v float64) string {
	if v >= 100 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

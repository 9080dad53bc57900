package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/aclements/go-moremath/stats"
)

// defaultHalfStep is the cell half-extent, in degrees, used when an axis has a
// single coordinate and no neighbor to take a midpoint against.
const defaultHalfStep = 0.5

// Sample is one observation row: a coordinate and its precipitation total in
// millimeters over the trailing five-year window.
type Sample struct {
	Lat    float64
	Lon    float64
	Precip float64
}

// Grid is a rectangular precipitation lookup built from a flat sample table.
// Lats and Lons are strictly increasing; the value matrix is indexed
// [latIdx][lonIdx] with NaN marking absent cells.
type Grid struct {
	Lats []float64
	Lons []float64

	values [][]float64
}

// BuildGrid deduplicates and sorts sample coordinates and assembles the value
// matrix. Later duplicates overwrite earlier ones. Samples with non-finite
// fields are rejected: the store is expected to drop malformed rows before
// they reach here.
func BuildGrid(samples []Sample) (*Grid, error) {
	if len(samples) == 0 {
		return nil, errors.New("build grid: no samples")
	}

	latSet := make(map[float64]struct{})
	lonSet := make(map[float64]struct{})
	for _, s := range samples {
		if !finite(s.Lat) || !finite(s.Lon) || !finite(s.Precip) {
			return nil, fmt.Errorf("build grid: non-finite sample (%v, %v, %v)", s.Lat, s.Lon, s.Precip)
		}
		latSet[s.Lat] = struct{}{}
		lonSet[s.Lon] = struct{}{}
	}

	g := &Grid{
		Lats: sortedKeys(latSet),
		Lons: sortedKeys(lonSet),
	}

	latIdx := indexOf(g.Lats)
	lonIdx := indexOf(g.Lons)

	g.values = make([][]float64, len(g.Lats))
	for i := range g.values {
		row := make([]float64, len(g.Lons))
		for j := range row {
			row[j] = math.NaN()
		}
		g.values[i] = row
	}

	for _, s := range samples {
		g.values[latIdx[s.Lat]][lonIdx[s.Lon]] = s.Precip
	}

	return g, nil
}

// Value returns the cell value at the given indexes and whether it is present.
func (g *Grid) Value(latIdx, lonIdx int) (float64, bool) {
	if latIdx < 0 || latIdx >= len(g.Lats) || lonIdx < 0 || lonIdx >= len(g.Lons) {
		return 0, false
	}
	v := g.values[latIdx][lonIdx]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Nearest returns the indexes of the grid cell whose center is closest to the
// given coordinate, axis by axis.
func (g *Grid) Nearest(lat, lon float64) (latIdx, lonIdx int) {
	return nearestIndex(g.Lats, lat), nearestIndex(g.Lons, lon)
}

// MinMax reports the range of finite cell values. ok is false when the grid
// holds no values at all.
func (g *Grid) MinMax() (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, row := range g.values {
		for _, v := range row {
			if math.IsNaN(v) {
				continue
			}
			ok = true
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	if !ok {
		return 0, 0, false
	}
	return min, max, true
}

// ClampUpper caps cell values at the q-quantile of the finite values and
// returns the threshold used. q <= 0 disables clamping and returns the
// unclamped maximum.
func (g *Grid) ClampUpper(q float64) float64 {
	_, max, ok := g.MinMax()
	if !ok {
		return 0
	}
	if q <= 0 {
		return max
	}

	var xs []float64
	for _, row := range g.values {
		for _, v := range row {
			if !math.IsNaN(v) {
				xs = append(xs, v)
			}
		}
	}

	threshold := stats.Sample{Xs: xs}.Quantile(q)
	for _, row := range g.values {
		for j, v := range row {
			if !math.IsNaN(v) && v > threshold {
				row[j] = threshold
			}
		}
	}
	return threshold
}

// CellEdges returns the cell boundary positions along both axes: midpoints
// between neighboring coordinates, extended by half the adjacent step at the
// margins. Each returned slice is one longer than its coordinate slice.
func (g *Grid) CellEdges() (latEdges, lonEdges []float64) {
	return edges(g.Lats), edges(g.Lons)
}

func edges(coords []float64) []float64 {
	n := len(coords)
	out := make([]float64, n+1)
	if n == 1 {
		out[0] = coords[0] - defaultHalfStep
		out[1] = coords[0] + defaultHalfStep
		return out
	}
	for i := 1; i < n; i++ {
		out[i] = (coords[i-1] + coords[i]) / 2
	}
	out[0] = coords[0] - (coords[1]-coords[0])/2
	out[n] = coords[n-1] + (coords[n-1]-coords[n-2])/2
	return out
}

func nearestIndex(coords []float64, v float64) int {
	i := sort.SearchFloat64s(coords, v)
	if i == 0 {
		return 0
	}
	if i == len(coords) {
		return len(coords) - 1
	}
	if v-coords[i-1] <= coords[i]-v {
		return i - 1
	}
	return i
}

func sortedKeys(set map[float64]struct{}) []float64 {
	out := make([]float64, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Float64s(out)
	return out
}

func indexOf(coords []float64) map[float64]int {
	idx := make(map[float64]int, len(coords))
	for i, c := range coords {
		idx[c] = i
	}
	return idx
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

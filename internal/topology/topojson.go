// Package topology loads the world country boundaries used for the border
// overlay. The upstream resource is TopoJSON: shared arcs are stored once,
// delta-encoded and quantized, and geometries reference them by index. This
// package decodes that form into plain GeoJSON features.
package topology

import (
	"encoding/json"
	"fmt"

	geojson "github.com/paulmach/go.geojson"
)

// topoFile mirrors the TopoJSON container format.
type topoFile struct {
	Type      string                 `json:"type"`
	Transform *topoTransform         `json:"transform"`
	Arcs      [][][]float64          `json:"arcs"`
	Objects   map[string]*topoObject `json:"objects"`
}

// topoTransform holds the quantization transform: absolute position =
// delta-summed value * scale + translate.
type topoTransform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

// topoObject is a geometry or a collection of them. Arcs is type-dependent
// ([][]int for Polygon, [][][]int for MultiPolygon) so it stays raw until the
// type is known.
type topoObject struct {
	Type       string          `json:"type"`
	Geometries []*topoObject   `json:"geometries"`
	Arcs       json.RawMessage `json:"arcs"`
	ID         any             `json:"id"`
	Properties map[string]any  `json:"properties"`
}

// Decode parses TopoJSON bytes and converts every Polygon/MultiPolygon
// geometry in every object into a GeoJSON FeatureCollection. Other geometry
// types (the world atlas only carries polygons) are skipped.
func Decode(data []byte) (*geojson.FeatureCollection, error) {
	var topo topoFile
	if err := json.Unmarshal(data, &topo); err != nil {
		return nil, fmt.Errorf("parse topology: %w", err)
	}
	if topo.Type != "Topology" {
		return nil, fmt.Errorf("unexpected topology type %q", topo.Type)
	}

	arcs := decodeArcs(topo.Arcs, topo.Transform)

	fc := geojson.NewFeatureCollection()
	for _, obj := range topo.Objects {
		if err := appendFeatures(fc, obj, arcs); err != nil {
			return nil, err
		}
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("topology has no polygon features")
	}
	return fc, nil
}

// decodeArcs converts every arc to absolute coordinates. Quantized topologies
// delta-encode positions; unquantized ones store them directly.
func decodeArcs(raw [][][]float64, tr *topoTransform) [][][]float64 {
	out := make([][][]float64, len(raw))
	for i, arc := range raw {
		pts := make([][]float64, len(arc))
		var x, y float64
		for j, p := range arc {
			if tr != nil {
				x += p[0]
				y += p[1]
				pts[j] = []float64{
					x*tr.Scale[0] + tr.Translate[0],
					y*tr.Scale[1] + tr.Translate[1],
				}
			} else {
				pts[j] = []float64{p[0], p[1]}
			}
		}
		out[i] = pts
	}
	return out
}

func appendFeatures(fc *geojson.FeatureCollection, obj *topoObject, arcs [][][]float64) error {
	switch obj.Type {
	case "GeometryCollection":
		for _, g := range obj.Geometries {
			if err := appendFeatures(fc, g, arcs); err != nil {
				return err
			}
		}
	case "Polygon":
		var ringArcs [][]int
		if err := json.Unmarshal(obj.Arcs, &ringArcs); err != nil {
			return fmt.Errorf("polygon arcs: %w", err)
		}
		f := geojson.NewPolygonFeature(assembleRings(ringArcs, arcs))
		decorate(f, obj)
		fc.AddFeature(f)
	case "MultiPolygon":
		var polyArcs [][][]int
		if err := json.Unmarshal(obj.Arcs, &polyArcs); err != nil {
			return fmt.Errorf("multipolygon arcs: %w", err)
		}
		polys := make([][][][]float64, len(polyArcs))
		for i, ringArcs := range polyArcs {
			polys[i] = assembleRings(ringArcs, arcs)
		}
		f := geojson.NewMultiPolygonFeature(polys...)
		decorate(f, obj)
		fc.AddFeature(f)
	}
	return nil
}

// assembleRings stitches arc references into closed rings. A negative index
// ~a (two's complement) means arc a traversed in reverse. The first point of
// each subsequent arc duplicates the previous arc's last point and is
// dropped.
func assembleRings(ringArcs [][]int, arcs [][][]float64) [][][]float64 {
	rings := make([][][]float64, len(ringArcs))
	for r, arcIdxs := range ringArcs {
		var ring [][]float64
		for n, a := range arcIdxs {
			pts := arcPoints(a, arcs)
			if n > 0 && len(pts) > 0 {
				pts = pts[1:]
			}
			ring = append(ring, pts...)
		}
		rings[r] = ring
	}
	return rings
}

func arcPoints(idx int, arcs [][][]float64) [][]float64 {
	if idx >= 0 {
		return append([][]float64(nil), arcs[idx]...)
	}
	src := arcs[^idx]
	out := make([][]float64, len(src))
	for i, p := range src {
		out[len(src)-1-i] = p
	}
	return out
}

func decorate(f *geojson.Feature, obj *topoObject) {
	f.ID = obj.ID
	for k, v := range obj.Properties {
		f.SetProperty(k, v)
	}
}

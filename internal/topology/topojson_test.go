package topology

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTopology is a quantized two-object topology over three shared arcs
// forming a unit square at (10,20)..(11,21).
const testTopology = `{
  "type": "Topology",
  "transform": {"scale": [0.5, 0.5], "translate": [10, 20]},
  "arcs": [
    [[0, 0], [2, 0], [0, 2]],
    [[2, 2], [-2, 0]],
    [[0, 2], [0, -2]]
  ],
  "objects": {
    "countries": {
      "type": "GeometryCollection",
      "geometries": [
        {"type": "Polygon", "arcs": [[0, 1, 2]], "id": "A", "properties": {"name": "Alpha"}},
        {"type": "Polygon", "arcs": [[-3, -2, -1]]}
      ]
    }
  }
}`

var wantForwardRing = [][]float64{
	{10, 20}, {11, 20}, {11, 21}, {10, 21}, {10, 20},
}

func TestDecode_QuantizedArcs(t *testing.T) {
	fc, err := Decode([]byte(testTopology))
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)

	f := fc.Features[0]
	assert.Equal(t, geojson.GeometryPolygon, f.Geometry.Type)
	assert.Equal(t, "A", f.ID)
	name, err := f.PropertyString("name")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", name)

	require.Len(t, f.Geometry.Polygon, 1)
	if diff := cmp.Diff(wantForwardRing, f.Geometry.Polygon[0]); diff != "" {
		t.Errorf("ring mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_NegativeArcIndexesReverse(t *testing.T) {
	fc, err := Decode([]byte(testTopology))
	require.NoError(t, err)

	// Second polygon walks the same square through reversed arcs.
	ring := fc.Features[1].Geometry.Polygon[0]
	want := [][]float64{
		{10, 20}, {10, 21}, {11, 21}, {11, 20}, {10, 20},
	}
	if diff := cmp.Diff(want, ring); diff != "" {
		t.Errorf("reversed ring mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_MultiPolygon(t *testing.T) {
	src := `{
	  "type": "Topology",
	  "transform": {"scale": [0.5, 0.5], "translate": [10, 20]},
	  "arcs": [
	    [[0, 0], [2, 0], [0, 2]],
	    [[2, 2], [-2, 0]],
	    [[0, 2], [0, -2]]
	  ],
	  "objects": {
	    "land": {
	      "type": "GeometryCollection",
	      "geometries": [
	        {"type": "MultiPolygon", "arcs": [[[0, 1, 2]], [[-3, -2, -1]]]}
	      ]
	    }
	  }
	}`

	fc, err := Decode([]byte(src))
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)

	f := fc.Features[0]
	assert.Equal(t, geojson.GeometryMultiPolygon, f.Geometry.Type)
	require.Len(t, f.Geometry.MultiPolygon, 2)
	if diff := cmp.Diff(wantForwardRing, f.Geometry.MultiPolygon[0][0]); diff != "" {
		t.Errorf("first polygon mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_UnquantizedArcs(t *testing.T) {
	src := `{
	  "type": "Topology",
	  "arcs": [
	    [[10, 20], [11, 20], [11, 21], [10, 21], [10, 20]]
	  ],
	  "objects": {
	    "countries": {
	      "type": "GeometryCollection",
	      "geometries": [{"type": "Polygon", "arcs": [[0]]}]
	    }
	  }
	}`

	fc, err := Decode([]byte(src))
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	if diff := cmp.Diff(wantForwardRing, fc.Features[0].Geometry.Polygon[0]); diff != "" {
		t.Errorf("ring mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"not json", "nope"},
		{"wrong type", `{"type": "FeatureCollection"}`},
		{"no polygons", `{"type": "Topology", "arcs": [], "objects": {"o": {"type": "GeometryCollection", "geometries": []}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.src))
			require.Error(t, err)
		})
	}
}

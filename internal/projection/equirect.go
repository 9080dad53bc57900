// Package projection maps WGS-84 coordinates onto the pixel frame.
package projection

// Equirectangular is a plate carrée projection fitted to a pixel frame:
// longitude -180..180 spans 0..W left to right, latitude 90..-90 spans 0..H
// top to bottom. Distortion toward the poles is accepted, matching the
// original display.
type Equirectangular struct {
	W float64
	H float64
}

// NewEquirectangular fits the projection to a frame of the given pixel size.
func NewEquirectangular(width, height int) Equirectangular {
	return Equirectangular{W: float64(width), H: float64(height)}
}

// Project converts a geographic coordinate to frame coordinates. Results may
// fall outside the frame for out-of-range inputs; callers clip.
func (p Equirectangular) Project(lat, lon float64) (x, y float64) {
	x = (lon + 180) / 360 * p.W
	y = (90 - lat) / 180 * p.H
	return x, y
}

// Invert converts frame coordinates back to a geographic coordinate. Used for
// pointer hit-testing.
func (p Equirectangular) Invert(x, y float64) (lat, lon float64) {
	lon = x/p.W*360 - 180
	lat = 90 - y/p.H*180
	return lat, lon
}

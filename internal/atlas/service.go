// Package atlas turns year numbers into rendered map frames. It owns the
// load-grid-rasterize-encode pipeline and the caches that make slider
// scrubbing cheap.
package atlas

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/precip-atlas-service/internal/domain"
	"github.com/couchcryptid/precip-atlas-service/internal/observability"
	"github.com/couchcryptid/precip-atlas-service/internal/render"
	"github.com/couchcryptid/precip-atlas-service/internal/topology"
)

// SampleStore loads per-year precipitation samples.
type SampleStore interface {
	Load(ctx context.Context, year int) ([]domain.Sample, error)
	Years() []int
	YearRange() (min, max int)
}

// Frame is one encoded map image plus its display metadata.
type Frame struct {
	Year       int
	Scale      int
	PNG        []byte
	Min        float64
	Max        float64 // clamp threshold when Clamped
	Clamped    bool
	RenderedAt time.Time
}

// PointValue is a tooltip lookup result: the nearest grid cell to a
// coordinate. Values reflect the displayed (clamped) scale.
type PointValue struct {
	Year     int     `json:"year"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Value    float64 `json:"value"`
	HasValue bool    `json:"has_value"`
}

// Options configures frame geometry and caching.
type Options struct {
	Width         int
	Height        int
	MaxScale      int
	ClampQuantile float64
	CacheSize     int
}

// gridEntry is a per-year prepared grid with its color-scale range.
type gridEntry struct {
	grid    *domain.Grid
	min     float64
	max     float64
	clamped bool
}

// Service renders and caches frames.
type Service struct {
	store   SampleStore
	topo    topology.Source
	logger  *slog.Logger
	metrics *observability.Metrics
	opts    Options

	frames *lruCache[Frame]
	grids  *lruCache[gridEntry]

	mu        sync.Mutex
	renderers map[int]*render.Renderer

	ready atomic.Bool
}

// NewService creates a frame service.
func NewService(store SampleStore, topo topology.Source, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Service {
	return &Service{
		store:     store,
		topo:      topo,
		logger:    logger,
		metrics:   metrics,
		opts:      opts,
		frames:    newLRUCache[Frame](opts.CacheSize),
		grids:     newLRUCache[gridEntry](opts.CacheSize),
		renderers: make(map[int]*render.Renderer),
	}
}

// CheckReadiness returns nil once the service has rendered at least one frame.
func (s *Service) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no frame rendered yet")
	}
	return nil
}

// Years reports which years in the configured range have data on disk.
func (s *Service) Years() []int { return s.store.Years() }

// YearRange reports the configured inclusive year bounds.
func (s *Service) YearRange() (min, max int) { return s.store.YearRange() }

// Frame returns the rendered frame for a year at a DPI scale, from cache when
// possible. Frames are immutable per (year, scale) until invalidated, so
// overlapping requests for the same key are harmless.
func (s *Service) Frame(ctx context.Context, year, scale int) (Frame, error) {
	if scale < 1 || scale > s.opts.MaxScale {
		return Frame{}, fmt.Errorf("scale %d outside range 1-%d", scale, s.opts.MaxScale)
	}

	key := frameKey(year, scale)
	if f, ok := s.frames.get(key); ok {
		s.metrics.FrameCache.WithLabelValues("hit").Inc()
		return f, nil
	}
	s.metrics.FrameCache.WithLabelValues("miss").Inc()

	start := time.Now()
	f, err := s.renderFrame(ctx, year, scale)
	if err != nil {
		s.metrics.RenderErrors.Inc()
		s.logger.Error("frame render failed", "year", year, "scale", scale, "error", err)
		return Frame{}, err
	}

	s.metrics.FramesRendered.Inc()
	s.metrics.RenderDuration.Observe(time.Since(start).Seconds())
	s.metrics.FrameBytes.Observe(float64(len(f.PNG)))
	s.frames.put(key, f)

	if s.ready.CompareAndSwap(false, true) {
		s.metrics.ServiceReady.Set(1)
	}

	s.logger.Debug("frame rendered",
		"year", year, "scale", scale, "bytes", len(f.PNG),
		"max", f.Max, "clamped", f.Clamped,
	)
	return f, nil
}

// Point resolves the nearest grid cell to a coordinate for a year.
func (s *Service) Point(ctx context.Context, year int, lat, lon float64) (PointValue, error) {
	ge, err := s.gridForYear(ctx, year)
	if err != nil {
		return PointValue{}, err
	}

	latIdx, lonIdx := ge.grid.Nearest(lat, lon)
	v, ok := ge.grid.Value(latIdx, lonIdx)
	return PointValue{
		Year:     year,
		Lat:      ge.grid.Lats[latIdx],
		Lon:      ge.grid.Lons[lonIdx],
		Value:    v,
		HasValue: ok,
	}, nil
}

// InvalidateYear drops the cached grid and frames for one year. Year 0 drops
// everything.
func (s *Service) InvalidateYear(year int) {
	if year == 0 {
		n := s.frames.deleteFunc(func(string) bool { return true })
		s.grids.deleteFunc(func(string) bool { return true })
		s.logger.Info("invalidated all cached frames", "frames", n)
		return
	}

	prefix := strconv.Itoa(year) + "|"
	n := s.frames.deleteFunc(func(key string) bool { return strings.HasPrefix(key, prefix) })
	s.grids.deleteFunc(func(key string) bool { return key == strconv.Itoa(year) })
	s.logger.Info("invalidated cached frames", "year", year, "frames", n)
}

func (s *Service) renderFrame(ctx context.Context, year, scale int) (Frame, error) {
	ge, err := s.gridForYear(ctx, year)
	if err != nil {
		return Frame{}, err
	}

	borders, err := s.topo.Boundaries(ctx)
	if err != nil {
		return Frame{}, fmt.Errorf("load boundaries: %w", err)
	}

	r, err := s.renderer(scale)
	if err != nil {
		return Frame{}, err
	}

	img, err := r.Render(render.MapSpec{
		Grid:    ge.grid,
		Borders: borders,
		Min:     ge.min,
		Max:     ge.max,
		Clamped: ge.clamped,
	})
	if err != nil {
		return Frame{}, fmt.Errorf("rasterize year %d: %w", year, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Frame{}, fmt.Errorf("encode frame: %w", err)
	}

	return Frame{
		Year:       year,
		Scale:      scale,
		PNG:        buf.Bytes(),
		Min:        ge.min,
		Max:        ge.max,
		Clamped:    ge.clamped,
		RenderedAt: clock.Now(),
	}, nil
}

func (s *Service) gridForYear(ctx context.Context, year int) (gridEntry, error) {
	key := strconv.Itoa(year)
	if ge, ok := s.grids.get(key); ok {
		return ge, nil
	}

	samples, err := s.store.Load(ctx, year)
	if err != nil {
		return gridEntry{}, fmt.Errorf("load year %d: %w", year, err)
	}

	grid, err := domain.BuildGrid(samples)
	if err != nil {
		return gridEntry{}, fmt.Errorf("grid year %d: %w", year, err)
	}

	min, max, ok := grid.MinMax()
	if !ok {
		return gridEntry{}, fmt.Errorf("grid year %d: no values", year)
	}

	threshold := grid.ClampUpper(s.opts.ClampQuantile)
	ge := gridEntry{
		grid:    grid,
		min:     min,
		max:     threshold,
		clamped: threshold < max,
	}
	s.grids.put(key, ge)
	return ge, nil
}

// renderer returns the per-scale renderer, building it on first use. Font
// faces are sized per scale, so each scale keeps its own instance.
func (s *Service) renderer(scale int) (*render.Renderer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.renderers[scale]; ok {
		return r, nil
	}
	r, err := render.New(s.opts.Width, s.opts.Height, scale, render.YlGnBu())
	if err != nil {
		return nil, err
	}
	s.renderers[scale] = r
	return r, nil
}

func frameKey(year, scale int) string {
	return fmt.Sprintf("%d|%d", year, scale)
}

package topology

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	geojson "github.com/paulmach/go.geojson"

	"github.com/couchcryptid/precip-atlas-service/internal/observability"
)

// Source provides the decoded country boundary features.
type Source interface {
	Boundaries(ctx context.Context) (*geojson.FeatureCollection, error)
}

// Client fetches and decodes the topology from a remote URL.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a topology fetcher with a bounded request timeout.
func NewClient(url string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// Boundaries downloads and decodes the topology.
func (c *Client) Boundaries(ctx context.Context) (*geojson.FeatureCollection, error) {
	start := time.Now()
	fc, err := c.fetch(ctx)
	c.metrics.TopologyLoadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.TopologyLoads.WithLabelValues("error").Inc()
		return nil, err
	}
	c.metrics.TopologyLoads.WithLabelValues("success").Inc()
	c.logger.Info("topology loaded", "url", c.url, "features", len(fc.Features))
	return fc, nil
}

func (c *Client) fetch(ctx context.Context) (*geojson.FeatureCollection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("topology request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("topology fetch: status %d: %s", resp.StatusCode, body)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read topology body: %w", err)
	}
	return Decode(data)
}

// FileSource reads the topology from a local file, for offline or pinned
// deployments.
type FileSource struct {
	path string
}

// NewFileSource creates a file-backed topology source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Boundaries(_ context.Context) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read topology file: %w", err)
	}
	return Decode(data)
}

// CachedSource wraps a Source with a process-lifetime cache: the boundary
// geometry never changes while the service runs, so one successful load is
// reused across every year. Failed loads are not cached and will be retried
// on the next request.
type CachedSource struct {
	inner Source

	mu sync.Mutex
	fc *geojson.FeatureCollection
}

// NewCachedSource creates a cache decorator around a topology source.
func NewCachedSource(inner Source) *CachedSource {
	return &CachedSource{inner: inner}
}

func (c *CachedSource) Boundaries(ctx context.Context) (*geojson.FeatureCollection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fc != nil {
		return c.fc, nil
	}
	fc, err := c.inner.Boundaries(ctx)
	if err != nil {
		return nil, err
	}
	c.fc = fc
	return fc, nil
}

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/precip-atlas-service/internal/atlas"
)

type mockFrames struct {
	frame    atlas.Frame
	frameErr error
	point    atlas.PointValue
	pointErr error
	years    []int
	ready    error

	lastYear  int
	lastScale int
}

func (m *mockFrames) Frame(_ context.Context, year, scale int) (atlas.Frame, error) {
	m.lastYear, m.lastScale = year, scale
	if m.frameErr != nil {
		return atlas.Frame{}, m.frameErr
	}
	return m.frame, nil
}

func (m *mockFrames) Point(_ context.Context, year int, _, _ float64) (atlas.PointValue, error) {
	m.lastYear = year
	if m.pointErr != nil {
		return atlas.PointValue{}, m.pointErr
	}
	return m.point, nil
}

func (m *mockFrames) Years() []int             { return m.years }
func (m *mockFrames) YearRange() (int, int)    { return 1954, 2014 }
func (m *mockFrames) CheckReadiness(_ context.Context) error { return m.ready }

func testPage() PageConfig {
	return PageConfig{
		YearMin:      1954,
		YearMax:      2014,
		Width:        960,
		Height:       480,
		LegendHeight: 46,
		MaxScale:     3,
	}
}

func newTestServer(t *testing.T, frames FrameService) *Server {
	t.Helper()
	s, err := NewServer(":0", frames, testPage(), slog.Default())
	require.NoError(t, err)
	return s
}

func get(s *Server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServer_Page(t *testing.T) {
	s := newTestServer(t, &mockFrames{})

	rec := get(s, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `min="1954"`)
	assert.Contains(t, string(body), `max="2014"`)
	assert.Contains(t, string(body), "/api/map/")
}

func TestServer_PageOnlyAtRoot(t *testing.T) {
	s := newTestServer(t, &mockFrames{})

	rec := get(s, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_MapFrame(t *testing.T) {
	rendered := time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC)
	frames := &mockFrames{frame: atlas.Frame{
		Year:       1987,
		Scale:      2,
		PNG:        []byte("png-bytes"),
		RenderedAt: rendered,
	}}
	s := newTestServer(t, frames)

	rec := get(s, "/api/map/1987.png?scale=2")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
	assert.Equal(t, rendered.Format(http.TimeFormat), rec.Header().Get("Last-Modified"))
	assert.Equal(t, "png-bytes", rec.Body.String())
	assert.Equal(t, 1987, frames.lastYear)
	assert.Equal(t, 2, frames.lastScale)
}

func TestServer_MapDefaultScale(t *testing.T) {
	frames := &mockFrames{frame: atlas.Frame{PNG: []byte("x")}}
	s := newTestServer(t, frames)

	rec := get(s, "/api/map/1987.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, frames.lastScale)
}

func TestServer_MapRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name   string
		target string
		status int
	}{
		{"not a png", "/api/map/1987.gif", http.StatusNotFound},
		{"non-numeric year", "/api/map/abc.png", http.StatusBadRequest},
		{"year below range", "/api/map/1900.png", http.StatusNotFound},
		{"year above range", "/api/map/2030.png", http.StatusNotFound},
		{"scale zero", "/api/map/1987.png?scale=0", http.StatusBadRequest},
		{"scale too large", "/api/map/1987.png?scale=4", http.StatusBadRequest},
		{"scale not a number", "/api/map/1987.png?scale=big", http.StatusBadRequest},
	}

	s := newTestServer(t, &mockFrames{frame: atlas.Frame{PNG: []byte("x")}})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(s, tt.target)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestServer_MapMissingData(t *testing.T) {
	s := newTestServer(t, &mockFrames{frameErr: fs.ErrNotExist})

	rec := get(s, "/api/map/1987.png")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_MapRenderFailure(t *testing.T) {
	s := newTestServer(t, &mockFrames{frameErr: errors.New("boom")})

	rec := get(s, "/api/map/1987.png")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, renderFailedMessage, strings.TrimSpace(rec.Body.String()))
}

func TestServer_Point(t *testing.T) {
	frames := &mockFrames{point: atlas.PointValue{
		Year: 1987, Lat: 0, Lon: -10, Value: 90, HasValue: true,
	}}
	s := newTestServer(t, frames)

	rec := get(s, "/api/point?year=1987&lat=1.2&lon=-11.4")
	require.Equal(t, http.StatusOK, rec.Code)

	var pv atlas.PointValue
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&pv))
	assert.Equal(t, 1987, pv.Year)
	assert.Equal(t, -10.0, pv.Lon)
	assert.True(t, pv.HasValue)
}

func TestServer_PointRequiresParams(t *testing.T) {
	s := newTestServer(t, &mockFrames{})

	for _, target := range []string{
		"/api/point",
		"/api/point?year=1987",
		"/api/point?year=1987&lat=1",
		"/api/point?year=abc&lat=1&lon=2",
	} {
		rec := get(s, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestServer_PointMissingYearFile(t *testing.T) {
	s := newTestServer(t, &mockFrames{pointErr: fs.ErrNotExist})

	rec := get(s, "/api/point?year=1987&lat=1&lon=2")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Years(t *testing.T) {
	s := newTestServer(t, &mockFrames{years: []int{1954, 1955}})

	rec := get(s, "/api/years")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Min       int   `json:"min"`
		Max       int   `json:"max"`
		Available []int `json:"available"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1954, resp.Min)
	assert.Equal(t, 2014, resp.Max)
	assert.Equal(t, []int{1954, 1955}, resp.Available)
}

func TestServer_YearsEmpty(t *testing.T) {
	s := newTestServer(t, &mockFrames{})

	rec := get(s, "/api/years")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available":[]`)
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, &mockFrames{})

	rec := get(s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestServer_Readiness(t *testing.T) {
	frames := &mockFrames{ready: errors.New("no frame rendered yet")}
	s := newTestServer(t, frames)

	rec := get(s, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	frames.ready = nil
	rec = get(s, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ready")
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t, &mockFrames{})

	rec := get(s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

// Package httpserver exposes the slider page, the frame API, and the
// health/readiness/metrics endpoints.
package httpserver

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/precip-atlas-service/internal/atlas"
)

// renderFailedMessage is the fixed user-facing error shown when a frame
// cannot be produced, whatever the underlying cause.
const renderFailedMessage = "failed to render precipitation map"

//go:embed index.html
var content embed.FS

// FrameService is the part of the atlas service the HTTP layer needs.
type FrameService interface {
	Frame(ctx context.Context, year, scale int) (atlas.Frame, error)
	Point(ctx context.Context, year int, lat, lon float64) (atlas.PointValue, error)
	Years() []int
	YearRange() (min, max int)
	CheckReadiness(ctx context.Context) error
}

// PageConfig carries the frame geometry the embedded page needs for pointer
// hit-testing.
type PageConfig struct {
	YearMin      int
	YearMax      int
	Width        int
	Height       int
	LegendHeight int
	MaxScale     int
}

// Server exposes the UI, the frame API, and operational endpoints.
type Server struct {
	httpServer *http.Server
	frames     FrameService
	page       PageConfig
	tmpl       *template.Template
	logger     *slog.Logger
}

// NewServer creates the HTTP server and wires all routes.
func NewServer(addr string, frames FrameService, page PageConfig, logger *slog.Logger) (*Server, error) {
	tmpl, err := template.ParseFS(content, "index.html")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}

	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		frames: frames,
		page:   page,
		tmpl:   tmpl,
		logger: logger,
	}

	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /api/map/{file}", s.handleMap)
	mux.HandleFunc("GET /api/point", s.handlePoint)
	mux.HandleFunc("GET /api/years", s.handleYears)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s, nil
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, s.page); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

// handleMap serves /api/map/<year>.png?scale=N.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutSuffix(r.PathValue("file"), ".png")
	if !ok {
		http.NotFound(w, r)
		return
	}
	year, err := strconv.Atoi(name)
	if err != nil {
		http.Error(w, "invalid year", http.StatusBadRequest)
		return
	}
	if year < s.page.YearMin || year > s.page.YearMax {
		http.NotFound(w, r)
		return
	}

	scale := 1
	if v := r.URL.Query().Get("scale"); v != "" {
		scale, err = strconv.Atoi(v)
		if err != nil || scale < 1 || scale > s.page.MaxScale {
			http.Error(w, "invalid scale", http.StatusBadRequest)
			return
		}
	}

	frame, err := s.frames.Frame(r.Context(), year, scale)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "no data for year", http.StatusNotFound)
			return
		}
		http.Error(w, renderFailedMessage, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Last-Modified", frame.RenderedAt.UTC().Format(http.TimeFormat))
	w.Write(frame.PNG) //nolint:errcheck // client may disconnect mid-body
}

// handlePoint serves tooltip lookups: /api/point?year=&lat=&lon=.
func (s *Server) handlePoint(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, errY := strconv.Atoi(q.Get("year"))
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errY != nil || errLat != nil || errLon != nil {
		http.Error(w, "year, lat, and lon are required", http.StatusBadRequest)
		return
	}

	pv, err := s.frames.Point(r.Context(), year, lat, lon)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "no data for year", http.StatusNotFound)
			return
		}
		http.Error(w, renderFailedMessage, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, pv)
}

func (s *Server) handleYears(w http.ResponseWriter, _ *http.Request) {
	min, max := s.frames.YearRange()
	years := s.frames.Years()
	if years == nil {
		years = []int{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"min":       min,
		"max":       max,
		"available": years,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.frames.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

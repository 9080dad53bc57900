// Package dataset reads the per-year precipitation CSV dumps.
package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/precip-atlas-service/internal/domain"
	"github.com/couchcryptid/precip-atlas-service/internal/observability"
)

// Column aliases, checked in order. The dumps have gone through several
// exporter revisions with slightly different header spellings.
var (
	latAliases    = []string{"lat", "latitude"}
	lonAliases    = []string{"lon", "lng", "long", "longitude"}
	precipAliases = []string{"pr", "precip", "precipitation", "pr_total", "total"}
)

// Store loads year files from the conventional layout
// <dir>/processed/pr_by_year/pr_<year>_win5.csv.
type Store struct {
	dir     string
	yearMin int
	yearMax int
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewStore creates a Store rooted at the given data directory.
func NewStore(dir string, yearMin, yearMax int, logger *slog.Logger, metrics *observability.Metrics) *Store {
	return &Store{
		dir:     dir,
		yearMin: yearMin,
		yearMax: yearMax,
		logger:  logger,
		metrics: metrics,
	}
}

// Path returns the conventional file path for a year.
func (s *Store) Path(year int) string {
	return filepath.Join(s.dir, "processed", "pr_by_year", fmt.Sprintf("pr_%d_win5.csv", year))
}

// YearRange reports the configured inclusive year bounds.
func (s *Store) YearRange() (min, max int) {
	return s.yearMin, s.yearMax
}

// Years reports which years in the configured range have a file on disk.
func (s *Store) Years() []int {
	var years []int
	for y := s.yearMin; y <= s.yearMax; y++ {
		if _, err := os.Stat(s.Path(y)); err == nil {
			years = append(years, y)
		}
	}
	return years
}

// Load reads and parses one year file. Malformed rows are skipped with a
// warning; an unreadable file or unresolvable header is an error.
func (s *Store) Load(ctx context.Context, year int) ([]domain.Sample, error) {
	if year < s.yearMin || year > s.yearMax {
		return nil, fmt.Errorf("year %d outside range %d-%d", year, s.yearMin, s.yearMax)
	}

	path := s.Path(year)
	f, err := os.Open(path)
	if err != nil {
		s.metrics.DatasetLoadErrors.Inc()
		return nil, fmt.Errorf("open year file: %w", err)
	}
	defer f.Close()

	samples, skipped, err := parseSamples(f)
	if err != nil {
		s.metrics.DatasetLoadErrors.Inc()
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	if skipped > 0 {
		s.metrics.RowsSkipped.Add(float64(skipped))
		s.logger.Warn("skipped malformed rows", "year", year, "skipped", skipped)
	}
	s.metrics.DatasetRows.Observe(float64(len(samples)))
	s.logger.Debug("year file loaded", "year", year, "rows", len(samples))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// parseSamples reads a header-prefixed CSV stream into samples, returning the
// count of rows dropped for parse failures.
func parseSamples(r io.Reader) ([]domain.Sample, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}

	latCol, lonCol, precipCol, err := resolveColumns(header)
	if err != nil {
		return nil, 0, err
	}

	var samples []domain.Sample
	skipped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		if len(row) <= latCol || len(row) <= lonCol || len(row) <= precipCol {
			skipped++
			continue
		}

		lat, errLat := parseFinite(row[latCol])
		lon, errLon := parseFinite(row[lonCol])
		precip, errPr := parseFinite(row[precipCol])
		if errLat != nil || errLon != nil || errPr != nil {
			skipped++
			continue
		}
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			skipped++
			continue
		}

		samples = append(samples, domain.Sample{Lat: lat, Lon: lon, Precip: precip})
	}

	if len(samples) == 0 {
		return nil, skipped, fmt.Errorf("no parseable rows")
	}
	return samples, skipped, nil
}

// resolveColumns maps the header to (lat, lon, precip) column indexes using
// the alias lists. Lat and lon aliases are claimed first so a header like
// "lat,lon,pr" never mistakes a coordinate column for the value column.
func resolveColumns(header []string) (latCol, lonCol, precipCol int, err error) {
	norm := make([]string, len(header))
	for i, h := range header {
		norm[i] = strings.ToLower(strings.TrimSpace(h))
	}

	latCol = findColumn(norm, latAliases, nil)
	lonCol = findColumn(norm, lonAliases, nil)
	if latCol < 0 || lonCol < 0 {
		return 0, 0, 0, fmt.Errorf("header %v: missing latitude or longitude column", header)
	}

	precipCol = findColumn(norm, precipAliases, map[int]bool{latCol: true, lonCol: true})
	if precipCol < 0 {
		return 0, 0, 0, fmt.Errorf("header %v: missing precipitation column", header)
	}
	return latCol, lonCol, precipCol, nil
}

func findColumn(header []string, aliases []string, claimed map[int]bool) int {
	for _, a := range aliases {
		for i, h := range header {
			if claimed[i] {
				continue
			}
			if h == a {
				return i
			}
		}
	}
	// Fall back to prefix matching for suffixed headers like "pr_win5_total".
	for _, a := range aliases {
		for i, h := range header {
			if claimed[i] {
				continue
			}
			if strings.HasPrefix(h, a+"_") {
				return i
			}
		}
	}
	return -1
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if v != v || v > 1e308 || v < -1e308 {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

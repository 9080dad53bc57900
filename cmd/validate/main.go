// Command validate checks a precipitation data directory for integrity before
// it is served: every year in range has a file, every file parses, values are
// finite and coordinates in bounds, and the grid shape is stable across years
// so the animation does not jump.
//
// Usage:
//
//	go run ./cmd/validate -data-dir ./data -year-min 1954 -year-max 2014
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/precip-atlas-service/internal/dataset"
	"github.com/couchcryptid/precip-atlas-service/internal/domain"
	"github.com/couchcryptid/precip-atlas-service/internal/observability"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataDir := flag.String("data-dir", "./data", "data directory root")
	yearMin := flag.Int("year-min", 1954, "first expected year")
	yearMax := flag.Int("year-max", 2014, "last expected year")
	flag.Parse()

	if *yearMin > *yearMax {
		fmt.Fprintln(os.Stderr, "FATAL: -year-min must not exceed -year-max")
		os.Exit(1)
	}

	os.Exit(run(*dataDir, *yearMin, *yearMax))
}

func run(dataDir string, yearMin, yearMax int) int {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := dataset.NewStore(dataDir, yearMin, yearMax, logger, observability.NewMetricsForTesting())

	fmt.Println("=== Precipitation Dataset Validation ===")
	fmt.Println()

	coverage, years := validateCoverage(store, yearMin, yearMax)

	grids, parse := loadGrids(store, years)

	phases := []*phase{
		coverage,
		parse,
		validateValues(grids),
		validateGridShape(grids, years),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Years: %d of %d present\n", len(years), yearMax-yearMin+1)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Coverage ──
// Every year in range must have a file on disk.

func validateCoverage(store *dataset.Store, yearMin, yearMax int) (*phase, []int) {
	p := &phase{name: "Phase 1: Year Coverage"}

	years := store.Years()
	present := make(map[int]bool, len(years))
	for _, y := range years {
		present[y] = true
	}
	for y := yearMin; y <= yearMax; y++ {
		if !present[y] {
			p.errorf("missing file for year %d: %s", y, store.Path(y))
		}
	}
	return p, years
}

// ── Phase 2: Parseability ──
// Every present file must load into a non-empty grid.

func loadGrids(store *dataset.Store, years []int) (map[int]*domain.Grid, *phase) {
	p := &phase{name: "Phase 2: Parseability"}
	grids := make(map[int]*domain.Grid, len(years))

	ctx := context.Background()
	for _, y := range years {
		samples, err := store.Load(ctx, y)
		if err != nil {
			p.errorf("year %d: %v", y, err)
			continue
		}
		grid, err := domain.BuildGrid(samples)
		if err != nil {
			p.errorf("year %d: %v", y, err)
			continue
		}
		grids[y] = grid
	}
	return grids, p
}

// ── Phase 3: Value Sanity ──
// Values must be non-negative and within a physically plausible ceiling for
// a five-year total.

func validateValues(grids map[int]*domain.Grid) *phase {
	p := &phase{name: "Phase 3: Value Sanity"}

	const maxPlausible = 100000.0 // mm over five years, generous ceiling

	for year, grid := range grids {
		min, max, ok := grid.MinMax()
		if !ok {
			p.errorf("year %d: grid has no values", year)
			continue
		}
		if min < 0 {
			p.errorf("year %d: negative precipitation %g", year, min)
		}
		if max > maxPlausible {
			p.errorf("year %d: implausible maximum %g mm", year, max)
		}
	}
	return p
}

// ── Phase 4: Grid Stability ──
// The lat/lon axes must be identical across years, otherwise cells shift
// between frames while scrubbing.

func validateGridShape(grids map[int]*domain.Grid, years []int) *phase {
	p := &phase{name: "Phase 4: Grid Stability"}

	var refYear int
	var ref *domain.Grid
	for _, y := range years {
		if g, ok := grids[y]; ok {
			refYear, ref = y, g
			break
		}
	}
	if ref == nil {
		p.errorf("no grids loaded, nothing to compare")
		return p
	}

	for _, y := range years {
		g, ok := grids[y]
		if !ok || y == refYear {
			continue
		}
		if !axesEqual(ref.Lats, g.Lats) {
			p.errorf("year %d: latitude axis differs from year %d (%d vs %d rows)",
				y, refYear, len(g.Lats), len(ref.Lats))
		}
		if !axesEqual(ref.Lons, g.Lons) {
			p.errorf("year %d: longitude axis differs from year %d (%d vs %d cols)",
				y, refYear, len(g.Lons), len(ref.Lons))
		}
	}
	return p
}

func axesEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

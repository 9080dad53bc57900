// Command genmock generates synthetic per-year precipitation CSV files in the
// layout the service reads: <out-dir>/processed/pr_by_year/pr_<year>_win5.csv.
// Values follow a latitude-banded climate shape (wet tropics, dry subtropics,
// moderate midlatitudes) with deterministic per-cell noise and a mild
// year-to-year drift, so rendered frames look plausible and differ visibly
// when scrubbing.
//
// Usage:
//
//	go run ./cmd/genmock -out-dir ./data -step 2.5 -seed 42
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "./data", "data directory root")
	step := flag.Float64("step", 2.5, "grid spacing in degrees")
	seed := flag.Int64("seed", 42, "random seed")
	yearMin := flag.Int("year-min", 1954, "first year to generate")
	yearMax := flag.Int("year-max", 2014, "last year to generate")
	flag.Parse()

	if *step <= 0 {
		return fmt.Errorf("-step must be positive")
	}
	if *yearMin > *yearMax {
		return fmt.Errorf("-year-min must not exceed -year-max")
	}

	dir := filepath.Join(*outDir, "processed", "pr_by_year")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	gen := newGenerator(*step, rng)

	for year := *yearMin; year <= *yearMax; year++ {
		path := filepath.Join(dir, fmt.Sprintf("pr_%d_win5.csv", year))
		rows, err := writeYear(path, gen, year)
		if err != nil {
			return fmt.Errorf("write %d: %w", year, err)
		}
		if year == *yearMin || year == *yearMax {
			log.Printf("%s: %d rows", filepath.Base(path), rows)
		}
	}

	log.Printf("wrote %d year files to %s", *yearMax-*yearMin+1, dir)
	return nil
}

// generator produces per-cell five-year precipitation totals. Each cell gets
// a fixed noise offset so the spatial texture is stable across years, while a
// slow sinusoidal drift makes years distinguishable.
type generator struct {
	step  float64
	noise map[string]float64
	rng   *rand.Rand
}

func newGenerator(step float64, rng *rand.Rand) *generator {
	return &generator{step: step, noise: make(map[string]float64), rng: rng}
}

// value returns the five-year precipitation total in mm for a cell and year.
func (g *generator) value(lat, lon float64, year int) float64 {
	base := climatology(lat)

	key := strconv.FormatFloat(lat, 'f', 2, 64) + "|" + strconv.FormatFloat(lon, 'f', 2, 64)
	n, ok := g.noise[key]
	if !ok {
		n = g.rng.NormFloat64() * 0.25
		g.noise[key] = n
	}

	// Slow drift plus a longitude-dependent phase so wet and dry patches
	// migrate across years.
	drift := 0.15 * math.Sin(float64(year-1950)/9.0+lon/60.0)

	v := base * (1 + n + drift)
	if v < 0 {
		v = 0
	}
	return v
}

// climatology is a crude zonal-mean precipitation shape in mm per five years:
// a tropical peak near the equator, subtropical dry bands near ±25, and
// secondary midlatitude storm-track peaks near ±50.
func climatology(lat float64) float64 {
	r := lat * math.Pi / 180
	tropics := 9000 * math.Exp(-(r*r)/(2*0.12))
	storms := 4500 * (math.Exp(-sq(lat-50)/200) + math.Exp(-sq(lat+50)/200))
	dry := -2500 * (math.Exp(-sq(lat-25)/120) + math.Exp(-sq(lat+25)/120))

	v := 1500 + tropics + storms + dry
	if v < 100 {
		v = 100
	}
	return v
}

func sq(x float64) float64 { return x * x }

func writeYear(path string, gen *generator, year int) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"lat", "lon", "pr"}); err != nil {
		return 0, err
	}

	rows := 0
	for lat := -90 + gen.step/2; lat < 90; lat += gen.step {
		for lon := -180 + gen.step/2; lon < 180; lon += gen.step {
			v := gen.value(lat, lon, year)
			err := w.Write([]string{
				strconv.FormatFloat(lat, 'f', 2, 64),
				strconv.FormatFloat(lon, 'f', 2, 64),
				strconv.FormatFloat(v, 'f', 1, 64),
			})
			if err != nil {
				return 0, err
			}
			rows++
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return 0, err
	}
	return rows, nil
}

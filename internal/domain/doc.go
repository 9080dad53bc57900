// Package domain models gridded precipitation observations.
//
// # Data Source
//
// Samples originate from per-year CSV dumps of a global precipitation
// reanalysis, one file per displayed year at
// processed/pr_by_year/pr_<year>_win5.csv. Each row carries a WGS-84
// latitude, longitude, and a precipitation total in millimeters. The "win5"
// suffix marks the aggregation convention: a displayed year's value is a
// trailing total over the preceding five years of source data, which smooths
// single-season anomalies out of the animation.
//
// # Grid Construction
//
// The samples lie on a regular-ish grid but arrive as a flat table, possibly
// unsorted and with duplicate coordinates between dump revisions. [BuildGrid]
// recovers the rectangular structure: unique latitudes and longitudes are
// sorted ascending, and a dense value matrix is filled with NaN marking cells
// the table never mentioned. Last write wins for duplicates, matching the
// keyed-lookup behavior of the upstream exporter.
//
// Station spacing is not assumed uniform. Cell boundaries are midpoints
// between neighboring coordinates ([Grid.CellEdges]), with a half-step
// extension at the margins so the outermost cells keep their full extent.
//
// # Outlier Clamping
//
// A handful of tropical cells carry totals an order of magnitude above the
// rest and would otherwise compress the color scale into uselessness.
// [Grid.ClampUpper] caps values at an upper quantile of the year's finite
// values; the returned threshold becomes the legend maximum.
package domain

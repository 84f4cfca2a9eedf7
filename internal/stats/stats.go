package stats

import (
	"errors"
	"math"

	"ChainHarvest/internal/model"
)

// ErrNoPackages is returned when the stream produced no events, so no
// per-package statistics exist. Callers report "no packages observed"
// instead of dividing by zero.
var ErrNoPackages = errors.New("no packages observed")

// Summary holds the per-package distribution statistics for one run.
type Summary struct {
	Packages    int
	TotalEvents uint64
	Mean        float64
	StdDev      float64
}

// Summarize computes count, total, mean and population standard deviation
// (divide by N, not N-1) over the frozen per-package counters. Two-pass: the
// mean is fixed first, then squared deviations accumulate against it, which
// stays stable for the count magnitudes seen on-chain.
func Summarize(packages map[model.PackageID]uint64) (Summary, error) {
	n := len(packages)
	if n == 0 {
		return Summary{}, ErrNoPackages
	}

	var total uint64
	for _, count := range packages {
		total += count
	}
	mean := float64(total) / float64(n)

	var sqsum float64
	for _, count := range packages {
		d := float64(count) - mean
		sqsum += d * d
	}

	return Summary{
		Packages:    n,
		TotalEvents: total,
		Mean:        mean,
		StdDev:      math.Sqrt(sqsum / float64(n)),
	}, nil
}

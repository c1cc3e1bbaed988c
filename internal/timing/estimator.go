package timing

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrDegenerateSeries is returned when a series is too small (or its
// estimated interval collapses to zero) for loss estimation to be
// meaningful. Callers must treat the whole analysis as unavailable rather
// than as zeros.
var ErrDegenerateSeries = errors.New("degenerate series")

// Analysis holds the derived columns for a series plus the global interval
// estimate. Index i of every column corresponds to index i of the input.
type Analysis struct {
	// Records is the input series the columns were derived from.
	Records Series

	// DeltaPTS is the inter-sample presentation time spacing in
	// milliseconds. DeltaPTS[0] is NaN: the first sample has no
	// predecessor.
	DeltaPTS []float64

	// Monotonic is the reconstructed monotonic timeline (PTS minus drift)
	// in milliseconds.
	Monotonic []float64

	// ExpectedInterval is the estimated nominal frame spacing in
	// milliseconds, the median of all defined DeltaPTS values.
	ExpectedInterval float64

	// FrameSkips is the inferred number of frames lost before each sample.
	// FrameSkips[0] is always 0: no skip is attributable to the first row.
	FrameSkips []int

	// Resets counts samples whose presentation time went backwards.
	// A source switch can legitimately reset the timeline; resets are
	// flagged here, never rejected.
	Resets int
}

// Analyze derives DeltaPTS, ExpectedInterval and FrameSkips for a series.
//
// The expected interval is the median of the inter-sample spacings, not the
// mean: a single large gap (a stalled source, a switch) would drag a mean
// far off the nominal frame spacing, while the median stays put. For
// even-length input the lower middle element is used, so the estimate is
// always a spacing that was actually observed.
//
// Skip counts use round-half-to-even, matching the rounding the offline
// tooling has always applied, and clamp at zero so a short or negative
// spacing never yields a negative skip.
//
// Analyze is a pure function: the same series always yields an identical
// analysis, and the input is never mutated.
func Analyze(series Series) (*Analysis, error) {
	if len(series) < 2 {
		return nil, fmt.Errorf("timing: %w: need at least 2 samples, got %d",
			ErrDegenerateSeries, len(series))
	}

	n := len(series)
	deltas := make([]float64, n)
	monotonic := make([]float64, n)
	deltas[0] = math.NaN()
	monotonic[0] = series[0].PTS - series[0].Drift

	resets := 0
	spacings := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		d := series[i].PTS - series[i-1].PTS
		deltas[i] = d
		monotonic[i] = series[i].PTS - series[i].Drift
		spacings = append(spacings, d)
		if d < 0 {
			resets++
		}
	}

	expected := medianLower(spacings)
	if expected <= 0 {
		return nil, fmt.Errorf("timing: %w: expected interval %.3f ms",
			ErrDegenerateSeries, expected)
	}

	skips := make([]int, n)
	for i := 1; i < n; i++ {
		k := int(math.RoundToEven(deltas[i]/expected)) - 1
		if k < 0 {
			k = 0
		}
		skips[i] = k
	}

	return &Analysis{
		Records:          series,
		DeltaPTS:         deltas,
		Monotonic:        monotonic,
		ExpectedInterval: expected,
		FrameSkips:       skips,
		Resets:           resets,
	}, nil
}

// medianLower returns the median of values, taking the lower middle element
// for even-length input. values must be non-empty; the input is not
// mutated.
func medianLower(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return sorted[(len(sorted)-1)/2]
}

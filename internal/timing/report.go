package timing

import (
	"fmt"
	"io"
	"math"
)

// ColumnStats are the scalar aggregates for one tracked column. NaN input
// values (the undefined first DeltaPTS) are excluded before aggregation.
// StdDev is the sample standard deviation (n-1 denominator) and is 0 when
// fewer than two values are available; Render shows it as N/A in that case.
type ColumnStats struct {
	Name   string  `json:"name"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

// SkipSummary aggregates the inferred frame loss. Max, Mean and Median
// describe only the affected samples and are nil when no sample exhibited
// a skip: "no loss" and "not applicable" are different answers.
type SkipSummary struct {
	Total       int      `json:"total"`
	Affected    int      `json:"affected"`
	SampleCount int      `json:"sample_count"`
	AffectedPct float64  `json:"affected_pct"`
	Max         *int     `json:"max,omitempty"`
	Mean        *float64 `json:"mean,omitempty"`
	Median      *float64 `json:"median,omitempty"`
}

// Report is the reduced view of an analysis: per-column aggregates plus the
// frame-loss summary.
type Report struct {
	ExpectedInterval float64       `json:"expected_interval_ms"`
	Columns          []ColumnStats `json:"columns"`
	Skips            SkipSummary   `json:"skips"`
	Resets           int           `json:"pts_resets"`
}

// Summarize reduces an analysis into scalar aggregates.
func Summarize(a *Analysis) *Report {
	pts := make([]float64, len(a.Records))
	drift := make([]float64, len(a.Records))
	for i, r := range a.Records {
		pts[i] = r.PTS
		drift[i] = r.Drift
	}

	columns := []ColumnStats{
		columnStats("PTS", pts),
		columnStats("Delta_PTS", a.DeltaPTS),
		columnStats("Monotonic", a.Monotonic),
		columnStats("Delta_vs_Monotonic", drift),
	}

	return &Report{
		ExpectedInterval: a.ExpectedInterval,
		Columns:          columns,
		Skips:            summarizeSkips(a.FrameSkips),
		Resets:           a.Resets,
	}
}

// Render writes the report in the plain-text layout the offline tooling
// has always printed.
func (r *Report) Render(w io.Writer) {
	fmt.Fprintln(w, "BASIC STATS:")
	for _, c := range r.Columns {
		fmt.Fprintf(w, "\n%s:\n", c.Name)
		fmt.Fprintf(w, "  Mean   : %.3f\n", c.Mean)
		if c.Count < 2 {
			fmt.Fprintf(w, "  StdDev : N/A\n")
		} else {
			fmt.Fprintf(w, "  StdDev : %.3f\n", c.StdDev)
		}
		fmt.Fprintf(w, "  Min    : %.3f\n", c.Min)
		fmt.Fprintf(w, "  Max    : %.3f\n", c.Max)
		fmt.Fprintf(w, "  Median : %.3f\n", c.Median)
	}

	fmt.Fprintf(w, "\nExpected Interval : %.3f ms\n", r.ExpectedInterval)
	if r.Resets > 0 {
		fmt.Fprintf(w, "PTS Resets        : %d\n", r.Resets)
	}

	s := r.Skips
	fmt.Fprintln(w, "\nFrame Skips (Inferred):")
	fmt.Fprintf(w, "  Total Skips      : %d\n", s.Total)
	fmt.Fprintf(w, "  Affected Samples : %d / %d (%.2f%%)\n",
		s.Affected, s.SampleCount, s.AffectedPct)
	if s.Max != nil {
		fmt.Fprintf(w, "  Max Skip         : %d\n", *s.Max)
		fmt.Fprintf(w, "  Mean Skip        : %.2f\n", *s.Mean)
		fmt.Fprintf(w, "  Median Skip      : %.2f\n", *s.Median)
	} else {
		fmt.Fprintf(w, "  Max Skip         : N/A\n")
		fmt.Fprintf(w, "  Mean Skip        : N/A\n")
		fmt.Fprintf(w, "  Median Skip      : N/A\n")
	}
}

func columnStats(name string, values []float64) ColumnStats {
	valid := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}

	stats := ColumnStats{Name: name, Count: len(valid)}
	if len(valid) == 0 {
		return stats
	}

	var sum float64
	stats.Min = valid[0]
	stats.Max = valid[0]
	for _, v := range valid {
		sum += v
		if v < stats.Min {
			stats.Min = v
		}
		if v > stats.Max {
			stats.Max = v
		}
	}
	stats.Mean = sum / float64(len(valid))
	stats.Median = medianLower(valid)

	if len(valid) >= 2 {
		var sumSquares float64
		for _, v := range valid {
			diff := v - stats.Mean
			sumSquares += diff * diff
		}
		stats.StdDev = math.Sqrt(sumSquares / float64(len(valid)-1))
	}

	return stats
}

func summarizeSkips(skips []int) SkipSummary {
	s := SkipSummary{SampleCount: len(skips)}

	affected := make([]float64, 0, len(skips))
	maxSkip := 0
	for _, k := range skips {
		s.Total += k
		if k > 0 {
			affected = append(affected, float64(k))
			if k > maxSkip {
				maxSkip = k
			}
		}
	}
	s.Affected = len(affected)
	if len(skips) > 0 {
		s.AffectedPct = 100 * float64(s.Affected) / float64(len(skips))
	}

	if len(affected) > 0 {
		var sum float64
		for _, k := range affected {
			sum += k
		}
		mean := sum / float64(len(affected))
		median := medianLower(affected)
		s.Max = &maxSkip
		s.Mean = &mean
		s.Median = &median
	}

	return s
}

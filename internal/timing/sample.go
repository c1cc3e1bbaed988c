package timing

import "time"

// Sample is a single observation taken at the timing tap: the presentation
// timestamp carried by a buffer and the monotonic time at which the buffer
// was seen. Both are offsets from the pipeline epoch, nanosecond precision.
type Sample struct {
	// PTS is the presentation timestamp assigned by the source.
	PTS time.Duration
	// Observed is the monotonic time at which the buffer passed the tap.
	Observed time.Duration
}

// Drift returns how far the observation lagged the presentation timestamp.
func (s Sample) Drift() time.Duration {
	return s.Observed - s.PTS
}

// Record is one parsed log observation in milliseconds, the unit the
// emitted log lines use.
type Record struct {
	// PTS is the presentation timestamp in milliseconds.
	PTS float64
	// Drift is the delta vs the monotonic clock in milliseconds.
	Drift float64
}

// Series is an ordered sequence of records, in arrival order.
type Series []Record

// Milliseconds converts a tap sample to a log record.
func (s Sample) Milliseconds() Record {
	return Record{
		PTS:   float64(s.PTS) / 1e6,
		Drift: float64(s.Drift()) / 1e6,
	}
}

package timing

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/e7canasta/video-hub/internal/platform/metrics"
)

// Recorder consumes tap samples: each one is emitted as a log line in the
// exact format the offline analyzer parses, counted, and retained in a
// bounded window so a live report can be produced on demand.
//
// The recorder owns its consuming goroutine (Run); the tap side stays
// non-blocking because it writes into a buffered channel, never into the
// recorder directly.
type Recorder struct {
	out    io.Writer
	window int
	met    *metrics.Metrics // may be nil

	mu      sync.Mutex
	samples []Record
	next    int
	full    bool
	total   uint64
}

// NewRecorder returns a recorder writing log lines to out and retaining the
// most recent window samples. met may be nil to disable metric recording
// (e.g. in tests).
func NewRecorder(out io.Writer, window int, met *metrics.Metrics) *Recorder {
	if window < 2 {
		window = 2
	}
	return &Recorder{
		out:     out,
		window:  window,
		met:     met,
		samples: make([]Record, window),
	}
}

// Run consumes samples until the channel closes or ctx is cancelled.
func (r *Recorder) Run(ctx context.Context, in <-chan Sample) {
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-in:
			if !ok {
				return
			}
			r.Observe(s)
		}
	}
}

// Observe records one sample: emits the log line, updates counters and the
// retained window.
func (r *Recorder) Observe(s Sample) {
	rec := s.Milliseconds()

	if r.out != nil {
		fmt.Fprintf(r.out, "PTS: %.3f ms | Δ vs monotonic: %.3f ms\n", rec.PTS, rec.Drift)
	}
	if r.met != nil {
		r.met.IncSamples()
	}

	r.mu.Lock()
	r.samples[r.next] = rec
	r.next++
	if r.next == r.window {
		r.next = 0
		r.full = true
	}
	r.total++
	r.mu.Unlock()
}

// Snapshot returns the retained samples in arrival order. Safe to call from
// any goroutine; the result is a copy.
func (r *Recorder) Snapshot() Series {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		return append(Series(nil), r.samples[:r.next]...)
	}
	out := make(Series, 0, r.window)
	out = append(out, r.samples[r.next:]...)
	out = append(out, r.samples[:r.next]...)
	return out
}

// Total returns the number of samples observed since start, including ones
// that have since fallen out of the window.
func (r *Recorder) Total() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

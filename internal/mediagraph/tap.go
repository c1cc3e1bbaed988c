package mediagraph

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/e7canasta/video-hub/internal/platform/metrics"
	"github.com/e7canasta/video-hub/internal/timing"
)

// Tap is the instrumented observation point: a buffer probe on a named
// element's src pad that records (presentation timestamp, monotonic now)
// for every buffer passing by.
//
// The probe runs on the streaming thread, so it does the minimum possible:
// read two timestamps and a non-blocking channel send. When the channel is
// full the sample is dropped and counted, never queued.
type Tap struct {
	samples chan timing.Sample
	epoch   time.Time
	met     *metrics.Metrics // may be nil

	observed   uint64
	dropped    uint64
	missingPTS uint64
}

// TapStats is a snapshot of the tap counters.
type TapStats struct {
	Observed   uint64 `json:"observed"`
	Dropped    uint64 `json:"dropped"`
	MissingPTS uint64 `json:"missing_pts"`
}

// NewTap returns a tap buffering up to buffer samples. met may be nil.
func NewTap(buffer int, met *metrics.Metrics) *Tap {
	if buffer < 1 {
		buffer = 1
	}
	return &Tap{
		samples: make(chan timing.Sample, buffer),
		epoch:   time.Now(),
		met:     met,
	}
}

// Samples returns the channel the tap emits on. The channel is never
// closed by the tap; consumers stop via their own context.
func (t *Tap) Samples() <-chan timing.Sample {
	return t.samples
}

// Attach installs the buffer probe on the element's src pad.
func (t *Tap) Attach(element *gst.Element) error {
	srcPad := element.GetStaticPad("src")
	if srcPad == nil {
		return fmt.Errorf("mediagraph: element %q has no src pad to tap", element.GetName())
	}

	srcPad.AddProbe(gst.PadProbeTypeBuffer, func(pad *gst.Pad, info *gst.PadProbeInfo) gst.PadProbeReturn {
		buffer := info.GetBuffer()
		if buffer == nil {
			return gst.PadProbeOK
		}

		pts := buffer.PresentationTimestamp()
		if pts < 0 || pts == gst.ClockTimeNone {
			atomic.AddUint64(&t.missingPTS, 1)
			if t.met != nil {
				t.met.IncMissingPTS()
			}
			return gst.PadProbeOK
		}

		sample := timing.Sample{
			PTS:      pts,
			Observed: time.Since(t.epoch),
		}

		select {
		case t.samples <- sample:
			atomic.AddUint64(&t.observed, 1)
		default:
			atomic.AddUint64(&t.dropped, 1)
			if t.met != nil {
				t.met.IncSamplesDropped()
			}
		}
		return gst.PadProbeOK
	})

	return nil
}

// Stats returns a snapshot of the tap counters. Safe from any goroutine.
func (t *Tap) Stats() TapStats {
	return TapStats{
		Observed:   atomic.LoadUint64(&t.observed),
		Dropped:    atomic.LoadUint64(&t.dropped),
		MissingPTS: atomic.LoadUint64(&t.missingPTS),
	}
}

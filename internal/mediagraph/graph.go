// Package mediagraph adapts the GStreamer runtime for the hub: it builds a
// pipeline from a declarative description, exposes the input-selector as a
// switcher junction, installs the timing tap, and watches the pipeline bus.
package mediagraph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
)

// Graph wraps a GStreamer pipeline built from a gst-launch style
// description. Named elements are resolved from the description; the graph
// never constructs elements itself.
type Graph struct {
	pipeline *gst.Pipeline
	log      *slog.Logger
	started  time.Time

	closeOnce sync.Once
	closeErr  error
}

// New parses the description into a pipeline. The pipeline is configured
// but not started; call Play to start it.
func New(description string, log *slog.Logger) (*Graph, error) {
	// Initialize GStreamer (safe to call multiple times)
	gst.Init(nil)

	if log == nil {
		log = slog.Default()
	}

	pipeline, err := gst.NewPipelineFromString(description)
	if err != nil {
		return nil, fmt.Errorf("mediagraph: failed to parse pipeline description: %w", err)
	}

	log.Debug("mediagraph: pipeline created", "description", description)

	return &Graph{pipeline: pipeline, log: log}, nil
}

// Element resolves a named element from the pipeline.
func (g *Graph) Element(name string) (*gst.Element, error) {
	elem, err := g.pipeline.GetElementByName(name)
	if err != nil || elem == nil {
		return nil, fmt.Errorf("mediagraph: element %q not found in pipeline", name)
	}
	return elem, nil
}

// Selector resolves a named input-selector element and wraps it as a
// switcher junction.
func (g *Graph) Selector(name string) (*InputSelector, error) {
	elem, err := g.Element(name)
	if err != nil {
		return nil, err
	}
	return &InputSelector{element: elem}, nil
}

// Play transitions the pipeline to PLAYING and waits briefly for the state
// change to be reported on the bus.
func (g *Graph) Play() error {
	if err := g.pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("mediagraph: failed to start pipeline: %w", err)
	}
	g.started = time.Now()

	bus := g.pipeline.GetPipelineBus()
	msg := bus.TimedPop(5 * time.Second)
	if msg != nil && msg.Type() == gst.MessageStateChanged {
		_, newState := msg.ParseStateChanged()
		if newState == gst.StatePlaying {
			g.log.Info("mediagraph: pipeline reached PLAYING state")
		}
	}
	return nil
}

// Run monitors the pipeline bus until ctx is cancelled. EOS and pipeline
// errors are returned to the caller; cancellation returns nil.
func (g *Graph) Run(ctx context.Context) error {
	bus := g.pipeline.GetPipelineBus()

	for {
		select {
		case <-ctx.Done():
			g.log.Debug("mediagraph: context cancelled, stopping bus monitor")
			return nil

		default:
			// Poll with a short timeout for responsive shutdown.
			msg := bus.TimedPop(50 * time.Millisecond)
			if msg == nil {
				continue
			}

			switch msg.Type() {
			case gst.MessageEOS:
				g.log.Info("mediagraph: end of stream received",
					"uptime", time.Since(g.started),
				)
				return fmt.Errorf("mediagraph: end of stream")

			case gst.MessageError:
				gerr := msg.ParseError()
				category := ClassifyPipelineError(gerr)
				g.log.Error("mediagraph: pipeline error",
					"error", gerr.Error(),
					"debug", gerr.DebugString(),
					"category", category.String(),
					"uptime", time.Since(g.started),
				)
				return fmt.Errorf("mediagraph: pipeline error [%s]: %s",
					category.String(), gerr.Error())

			case gst.MessageStateChanged:
				if msg.Source() == g.pipeline.GetName() {
					old, next := msg.ParseStateChanged()
					g.log.Debug("mediagraph: pipeline state changed",
						"from", old,
						"to", next,
					)
				}
			}
		}
	}
}

// Close tears the pipeline down exactly once, releasing device handles.
// Safe to call multiple times.
func (g *Graph) Close() error {
	g.closeOnce.Do(func() {
		if err := g.pipeline.SetState(gst.StateNull); err != nil {
			g.closeErr = fmt.Errorf("mediagraph: failed to set pipeline to NULL: %w", err)
			return
		}
		g.log.Info("mediagraph: pipeline stopped")
	})
	return g.closeErr
}

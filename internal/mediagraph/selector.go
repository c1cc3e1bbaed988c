package mediagraph

import (
	"fmt"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/e7canasta/video-hub/internal/switcher"
)

// InputSelector adapts a GStreamer input-selector element to the
// switcher.Junction interface. Endpoints are the selector's sink pads;
// flush events are sent to the element so the downstream chain drops
// in-flight buffers before the active pad is rebound.
type InputSelector struct {
	element *gst.Element
}

// endpoint wraps a selector sink pad.
type endpoint struct {
	pad *gst.Pad
}

func (e endpoint) Name() string {
	return e.pad.GetName()
}

// Endpoint resolves a sink pad by name (e.g. "sink_0").
func (s *InputSelector) Endpoint(name string) (switcher.Endpoint, bool) {
	pad := s.element.GetStaticPad(name)
	if pad == nil {
		return nil, false
	}
	return endpoint{pad: pad}, true
}

// FlushStart tells the chain downstream of the selector to discard
// in-flight buffered state.
func (s *InputSelector) FlushStart() error {
	if !s.element.SendEvent(gst.NewFlushStartEvent()) {
		return fmt.Errorf("mediagraph: selector refused flush-start event")
	}
	return nil
}

// FlushStop resumes flow. resetTime false keeps the running time base, the
// only correct choice during a live switch.
func (s *InputSelector) FlushStop(resetTime bool) error {
	if !s.element.SendEvent(gst.NewFlushStopEvent(resetTime)) {
		return fmt.Errorf("mediagraph: selector refused flush-stop event")
	}
	return nil
}

// SetActive rebinds the selector's active-pad property. The rebind is
// atomic from the chain's point of view: buffers after it originate from
// the new pad, buffers before it from the old one.
func (s *InputSelector) SetActive(ep switcher.Endpoint) error {
	e, ok := ep.(endpoint)
	if !ok {
		return fmt.Errorf("mediagraph: endpoint %q was not resolved by this selector", ep.Name())
	}
	if err := s.element.SetProperty("active-pad", e.pad); err != nil {
		return fmt.Errorf("mediagraph: failed to set active-pad to %q: %w", e.Name(), err)
	}
	return nil
}

// Package switcher implements the active-source state machine and the
// scheduler that drives it. The media graph itself is reached only through
// the Junction interface, so the failover protocol can be exercised against
// a fake junction in tests and against the GStreamer adapter in production.
package switcher

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/e7canasta/video-hub/internal/platform/metrics"
)

var (
	// ErrEndpointUnavailable reports that a source endpoint could not be
	// resolved. The attempted switch does not happen and the active source
	// is unchanged; the process continues.
	ErrEndpointUnavailable = errors.New("endpoint unavailable")

	// ErrSwitchInFlight reports that a switch was requested while another
	// one had not completed. Concurrent requests are rejected, never
	// queued or interleaved.
	ErrSwitchInFlight = errors.New("switch already in flight")
)

// Endpoint is a resolvable input of the shared junction.
type Endpoint interface {
	Name() string
}

// Junction is the shared selection point of the media graph. The switch
// protocol calls it in a fixed order: FlushStart, FlushStop, SetActive.
type Junction interface {
	// Endpoint resolves a source endpoint by name. ok is false when the
	// endpoint does not exist or is not ready.
	Endpoint(name string) (ep Endpoint, ok bool)
	// SetActive atomically rebinds the junction to the given endpoint.
	SetActive(ep Endpoint) error
	// FlushStart tells the downstream chain to discard in-flight state.
	FlushStart() error
	// FlushStop resumes flow. resetTime must be false during a source
	// switch so the chain keeps its time base.
	FlushStop(resetTime bool) error
}

// Switcher holds the switching state: the ordered source set and the index
// of the source currently feeding the shared chain. Sources that are not
// active keep producing in the background; they are simply not forwarded,
// so switching back to them costs nothing.
type Switcher struct {
	junction Junction
	sources  []string
	log      *slog.Logger
	met      *metrics.Metrics // may be nil

	mu       sync.RWMutex
	active   int
	inFlight atomic.Bool
}

// New returns a switcher over the given source endpoint names. At least two
// sources are required; source 0 is active at startup. met may be nil to
// disable metric recording.
func New(junction Junction, sources []string, log *slog.Logger, met *metrics.Metrics) (*Switcher, error) {
	if junction == nil {
		return nil, fmt.Errorf("switcher: junction is required")
	}
	if len(sources) < 2 {
		return nil, fmt.Errorf("switcher: need at least 2 sources, got %d", len(sources))
	}
	if log == nil {
		log = slog.Default()
	}
	return &Switcher{
		junction: junction,
		sources:  append([]string(nil), sources...),
		log:      log,
		met:      met,
	}, nil
}

// ActiveIndex returns the index of the currently active source. A caller
// racing a switch observes either the pre-switch or the post-switch value,
// never an intermediate one: the index is updated once, after the protocol
// has completed.
func (s *Switcher) ActiveIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Sources returns the ordered source endpoint names.
func (s *Switcher) Sources() []string {
	return append([]string(nil), s.sources...)
}

// Next returns the round-robin successor of the active source.
func (s *Switcher) Next() int {
	return (s.ActiveIndex() + 1) % len(s.sources)
}

// Switch makes sources[target] the active source.
//
// The protocol order matters: the downstream chain is flushed first
// (flush-start, then flush-stop without a time-base reset) so it never
// observes stale buffers from the previous source, and only then is the
// junction rebound. On any failure the active index is left unchanged.
//
// Only one switch may be in flight; a concurrent call fails immediately
// with ErrSwitchInFlight.
func (s *Switcher) Switch(target int) error {
	if target < 0 || target >= len(s.sources) {
		return fmt.Errorf("switcher: invalid source index %d (have %d sources)",
			target, len(s.sources))
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		return fmt.Errorf("switcher: %w", ErrSwitchInFlight)
	}
	defer s.inFlight.Store(false)

	traceID := uuid.NewString()
	name := s.sources[target]

	ep, ok := s.junction.Endpoint(name)
	if !ok {
		s.fail(traceID, name)
		return fmt.Errorf("switcher: resolving %q: %w", name, ErrEndpointUnavailable)
	}

	if err := s.junction.FlushStart(); err != nil {
		s.fail(traceID, name)
		return fmt.Errorf("switcher: flush-start before switching to %q: %w", name, err)
	}
	if err := s.junction.FlushStop(false); err != nil {
		s.fail(traceID, name)
		return fmt.Errorf("switcher: flush-stop before switching to %q: %w", name, err)
	}
	if err := s.junction.SetActive(ep); err != nil {
		s.fail(traceID, name)
		return fmt.Errorf("switcher: binding %q: %w", name, err)
	}

	s.mu.Lock()
	from := s.active
	s.active = target
	s.mu.Unlock()

	if s.met != nil {
		s.met.IncSwitches()
		s.met.SetActiveSource(target)
	}
	s.log.Info("switcher: active source changed",
		"from", from,
		"to", target,
		"endpoint", name,
		"trace_id", traceID,
	)
	return nil
}

func (s *Switcher) fail(traceID, endpoint string) {
	if s.met != nil {
		s.met.IncSwitchFailures()
	}
	s.log.Warn("switcher: switch attempt failed, source unchanged",
		"endpoint", endpoint,
		"trace_id", traceID,
	)
}

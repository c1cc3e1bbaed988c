package switcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Scheduler drives the switcher on a fixed cadence: every interval it
// advances the active source round-robin. A failed switch is logged and
// skipped; the next tick tries again. The scheduler owns a single timer
// goroutine and is not re-entrant.
type Scheduler struct {
	sw       *Switcher
	interval time.Duration
	log      *slog.Logger

	kick chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler returns a scheduler switching every interval.
func NewScheduler(sw *Switcher, interval time.Duration, log *slog.Logger) (*Scheduler, error) {
	if sw == nil {
		return nil, fmt.Errorf("switcher: scheduler needs a switcher")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("switcher: invalid switch interval %v", interval)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		sw:       sw,
		interval: interval,
		log:      log,
		kick:     make(chan struct{}, 1),
	}, nil
}

// Start launches the scheduling goroutine. Returns an error if the
// scheduler is already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return fmt.Errorf("switcher: scheduler already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(runCtx)

	s.log.Info("switcher: scheduler started", "interval", s.interval)
	return nil
}

// Kick requests an immediate switch cycle without waiting for the next
// tick. Non-blocking; a cycle request already pending is enough.
func (s *Scheduler) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Stop cancels future switches and waits for the scheduling goroutine to
// finish. A switch already in flight completes or fails on its own; it is
// never aborted midway. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Debug("switcher: scheduler stopped cleanly")
	case <-time.After(3 * time.Second):
		s.log.Warn("switcher: scheduler stop timeout exceeded")
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cycle()
		case <-s.kick:
			s.cycle()
		}
	}
}

// cycle performs one round-robin switch. Errors never stop the loop: an
// unavailable endpoint this tick may well be back before the next one.
func (s *Scheduler) cycle() {
	target := s.sw.Next()
	if err := s.sw.Switch(target); err != nil {
		if errors.Is(err, ErrSwitchInFlight) {
			s.log.Debug("switcher: skipping cycle, switch in flight", "target", target)
			return
		}
		s.log.Error("switcher: scheduled switch failed, retrying next tick",
			"target", target,
			"error", err,
		)
	}
}

package switcher

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeEndpoint is a junction endpoint backed by nothing but a name.
type fakeEndpoint string

func (f fakeEndpoint) Name() string { return string(f) }

// fakeJunction records the protocol calls the switcher makes, in order,
// and can simulate missing endpoints, call failures, and a slow rebind.
type fakeJunction struct {
	mu         sync.Mutex
	missing    map[string]bool
	calls      []string
	active     string
	flushErr   error
	rebindErr  error
	holdRebind chan struct{} // when set, SetActive blocks until it is closed
}

func newFakeJunction() *fakeJunction {
	return &fakeJunction{missing: make(map[string]bool)}
}

func (j *fakeJunction) Endpoint(name string) (Endpoint, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.missing[name] {
		return nil, false
	}
	return fakeEndpoint(name), true
}

func (j *fakeJunction) FlushStart() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.flushErr != nil {
		return j.flushErr
	}
	j.calls = append(j.calls, "flush-start")
	return nil
}

func (j *fakeJunction) FlushStop(resetTime bool) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, fmt.Sprintf("flush-stop(reset=%t)", resetTime))
	return nil
}

func (j *fakeJunction) SetActive(ep Endpoint) error {
	j.mu.Lock()
	hold := j.holdRebind
	j.mu.Unlock()
	if hold != nil {
		<-hold
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.rebindErr != nil {
		return j.rebindErr
	}
	j.calls = append(j.calls, "set-active")
	j.active = ep.Name()
	return nil
}

func (j *fakeJunction) snapshot() (calls []string, active string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.calls...), j.active
}

var testSources = []string{"sink_0", "sink_1"}

func TestSwitcher_ProtocolOrder(t *testing.T) {
	junction := newFakeJunction()
	sw, err := New(junction, testSources, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if sw.ActiveIndex() != 0 {
		t.Fatalf("initial ActiveIndex = %d, want 0", sw.ActiveIndex())
	}

	if err := sw.Switch(1); err != nil {
		t.Fatalf("Switch failed: %v", err)
	}

	calls, active := junction.snapshot()
	// Flush first so the chain drops stale buffers, then rebind. The
	// flush-stop must not reset the chain's time base.
	want := []string{"flush-start", "flush-stop(reset=false)", "set-active"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, calls[i], want[i])
		}
	}
	if active != "sink_1" {
		t.Errorf("bound endpoint = %q, want sink_1", active)
	}
	if sw.ActiveIndex() != 1 {
		t.Errorf("ActiveIndex = %d, want 1", sw.ActiveIndex())
	}
}

func TestSwitcher_RoundRobinProperty(t *testing.T) {
	// After N successful round-robin switches over 2 sources,
	// ActiveIndex == N mod 2 and the junction is bound to that source.
	junction := newFakeJunction()
	sw, err := New(junction, testSources, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for n := 1; n <= 7; n++ {
		if err := sw.Switch(sw.Next()); err != nil {
			t.Fatalf("switch %d failed: %v", n, err)
		}
		if got, want := sw.ActiveIndex(), n%2; got != want {
			t.Errorf("after %d switches ActiveIndex = %d, want %d", n, got, want)
		}
		_, active := junction.snapshot()
		if want := testSources[sw.ActiveIndex()]; active != want {
			t.Errorf("after %d switches bound endpoint = %q, want %q", n, active, want)
		}
	}
}

func TestSwitcher_EndpointUnavailable(t *testing.T) {
	junction := newFakeJunction()
	junction.missing["sink_1"] = true
	sw, err := New(junction, testSources, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	err = sw.Switch(1)
	if !errors.Is(err, ErrEndpointUnavailable) {
		t.Fatalf("Switch error = %v, want ErrEndpointUnavailable", err)
	}

	if sw.ActiveIndex() != 0 {
		t.Errorf("ActiveIndex = %d, want 0 (unchanged)", sw.ActiveIndex())
	}
	calls, active := junction.snapshot()
	if len(calls) != 0 {
		t.Errorf("junction received calls %v, want none (resolve fails before flushing)", calls)
	}
	if active != "" {
		t.Errorf("bound endpoint = %q, want unchanged", active)
	}
}

func TestSwitcher_FailedProtocolLeavesStateUnchanged(t *testing.T) {
	tests := []struct {
		name  string
		setup func(j *fakeJunction)
	}{
		{name: "flush-start fails", setup: func(j *fakeJunction) {
			j.flushErr = errors.New("flushing failed")
		}},
		{name: "rebind fails", setup: func(j *fakeJunction) {
			j.rebindErr = errors.New("selector gone")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			junction := newFakeJunction()
			tt.setup(junction)
			sw, err := New(junction, testSources, nil, nil)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}

			if err := sw.Switch(1); err == nil {
				t.Fatal("Switch succeeded, want error")
			}
			if sw.ActiveIndex() != 0 {
				t.Errorf("ActiveIndex = %d, want 0 (unchanged)", sw.ActiveIndex())
			}
		})
	}
}

func TestSwitcher_ConcurrentSwitchRejected(t *testing.T) {
	junction := newFakeJunction()
	junction.holdRebind = make(chan struct{})
	sw, err := New(junction, testSources, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- sw.Switch(1)
	}()

	// Wait until the first switch is inside the protocol (blocked on the
	// held rebind), then race a second one against it.
	deadline := time.Now().Add(2 * time.Second)
	for !sw.inFlight.Load() {
		if time.Now().After(deadline) {
			t.Fatal("first switch never entered the protocol")
		}
		time.Sleep(time.Millisecond)
	}

	if err := sw.Switch(0); !errors.Is(err, ErrSwitchInFlight) {
		t.Errorf("concurrent Switch error = %v, want ErrSwitchInFlight", err)
	}

	close(junction.holdRebind)
	if err := <-firstDone; err != nil {
		t.Fatalf("first switch failed: %v", err)
	}
	if sw.ActiveIndex() != 1 {
		t.Errorf("ActiveIndex = %d, want 1", sw.ActiveIndex())
	}

	// With the first switch complete, switching is available again.
	if err := sw.Switch(0); err != nil {
		t.Errorf("follow-up Switch failed: %v", err)
	}
}

func TestSwitcher_InvalidTarget(t *testing.T) {
	sw, err := New(newFakeJunction(), testSources, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for _, target := range []int{-1, 2, 99} {
		if err := sw.Switch(target); err == nil {
			t.Errorf("Switch(%d) succeeded, want error", target)
		}
	}
	if sw.ActiveIndex() != 0 {
		t.Errorf("ActiveIndex = %d, want 0", sw.ActiveIndex())
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, testSources, nil, nil); err == nil {
		t.Error("New with nil junction succeeded, want error")
	}
	if _, err := New(newFakeJunction(), []string{"sink_0"}, nil, nil); err == nil {
		t.Error("New with one source succeeded, want error")
	}
}

package control

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/e7canasta/video-hub/internal/switcher"
	"github.com/e7canasta/video-hub/internal/timing"
)

type stubEndpoint string

func (s stubEndpoint) Name() string { return string(s) }

// stubJunction is the minimal junction the control tests need: endpoints
// exist unless removed, and every protocol call succeeds.
type stubJunction struct {
	missing map[string]bool
	active  string
}

func (j *stubJunction) Endpoint(name string) (switcher.Endpoint, bool) {
	if j.missing[name] {
		return nil, false
	}
	return stubEndpoint(name), true
}

func (j *stubJunction) SetActive(ep switcher.Endpoint) error {
	j.active = ep.Name()
	return nil
}

func (j *stubJunction) FlushStart() error              { return nil }
func (j *stubJunction) FlushStop(resetTime bool) error { return nil }

func newTestServer(t *testing.T, junction *stubJunction, rec *timing.Recorder) (*Server, *switcher.Switcher) {
	t.Helper()

	sw, err := switcher.New(junction, []string{"sink_0", "sink_1"}, nil, nil)
	if err != nil {
		t.Fatalf("switcher.New failed: %v", err)
	}
	sched, err := switcher.NewScheduler(sw, time.Hour, nil)
	if err != nil {
		t.Fatalf("switcher.NewScheduler failed: %v", err)
	}

	counters := func() SampleCounters {
		return SampleCounters{Observed: 42, Dropped: 1}
	}
	return NewServer(nil, nil, sw, sched, rec, counters), sw
}

func TestStatus_TimingUnavailableBeforeEnoughSamples(t *testing.T) {
	rec := timing.NewRecorder(nil, 16, nil)
	srv, _ := newTestServer(t, &stubJunction{}, rec)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var status Status
	if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if status.ActiveSource != 0 {
		t.Errorf("ActiveSource = %d, want 0", status.ActiveSource)
	}
	if status.Timing != nil {
		t.Errorf("Timing = %+v, want null while series is degenerate", status.Timing)
	}
	if status.TimingError == "" {
		t.Error("TimingError is empty, want a degenerate-series reason")
	}
	if status.Samples.Observed != 42 {
		t.Errorf("Samples.Observed = %d, want 42", status.Samples.Observed)
	}
}

func TestStatus_IncludesLiveTimingReport(t *testing.T) {
	rec := timing.NewRecorder(nil, 64, nil)
	for i := 0; i < 10; i++ {
		pts := time.Duration(i) * 33 * time.Millisecond
		rec.Observe(timing.Sample{PTS: pts, Observed: pts + 5*time.Millisecond})
	}
	srv, _ := newTestServer(t, &stubJunction{}, rec)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)

	var status Status
	if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if status.Timing == nil {
		t.Fatalf("Timing is null, want a report (timing_error=%q)", status.TimingError)
	}
	if status.Timing.ExpectedInterval != 33.0 {
		t.Errorf("ExpectedInterval = %.3f, want 33.0", status.Timing.ExpectedInterval)
	}
	if status.Timing.Skips.Affected != 0 {
		t.Errorf("Skips.Affected = %d, want 0", status.Timing.Skips.Affected)
	}
}

func TestSwitchTo_Success(t *testing.T) {
	junction := &stubJunction{}
	srv, sw := newTestServer(t, junction, nil)

	req := httptest.NewRequest(http.MethodPost, "/switch/1", nil)
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}
	if sw.ActiveIndex() != 1 {
		t.Errorf("ActiveIndex = %d, want 1", sw.ActiveIndex())
	}
	if junction.active != "sink_1" {
		t.Errorf("bound endpoint = %q, want sink_1", junction.active)
	}
}

func TestSwitchTo_UnavailableEndpoint(t *testing.T) {
	junction := &stubJunction{missing: map[string]bool{"sink_1": true}}
	srv, sw := newTestServer(t, junction, nil)

	req := httptest.NewRequest(http.MethodPost, "/switch/1", nil)
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
	if sw.ActiveIndex() != 0 {
		t.Errorf("ActiveIndex = %d, want 0 (unchanged)", sw.ActiveIndex())
	}
}

func TestSwitchTo_BadIndex(t *testing.T) {
	srv, _ := newTestServer(t, &stubJunction{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/switch/abc", nil)
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestSwitchNext_Accepted(t *testing.T) {
	srv, _ := newTestServer(t, &stubJunction{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/switch/next", nil)
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rr.Code)
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, &stubJunction{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

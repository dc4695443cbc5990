package poller_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/nws-alert-gateway/internal/domain"
	"github.com/couchcryptid/nws-alert-gateway/internal/observability"
	"github.com/couchcryptid/nws-alert-gateway/internal/pipeline"
	"github.com/couchcryptid/nws-alert-gateway/internal/poller"
)

type stubOutcome struct {
	res pipeline.Result
	err error
}

// stubRefresher replays outcomes in order (the last one repeats) and can
// block in-flight calls behind a gate to probe concurrency.
type stubRefresher struct {
	mu          sync.Mutex
	outcomes    []stubOutcome
	calls       int
	inFlight    int
	maxInFlight int
	gate        chan struct{}
}

func (s *stubRefresher) Get(ctx context.Context, _ bool) (pipeline.Result, error) {
	s.mu.Lock()
	idx := s.calls
	s.calls++
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			s.mu.Lock()
			s.inFlight--
			s.mu.Unlock()
			return pipeline.Result{}, ctx.Err()
		}
	}

	s.mu.Lock()
	s.inFlight--
	if idx >= len(s.outcomes) {
		idx = len(s.outcomes) - 1
	}
	out := s.outcomes[idx]
	s.mu.Unlock()
	return out.res, out.err
}

func (s *stubRefresher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubRefresher) currentInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

func okOutcome(ids ...string) stubOutcome {
	alerts := make([]domain.Alert, len(ids))
	for i, id := range ids {
		alerts[i] = domain.Alert{ID: id, Event: "Tornado Warning", Severity: domain.SeverityExtreme}
	}
	return stubOutcome{res: pipeline.Result{Snapshot: domain.Snapshot{
		Alerts:     alerts,
		Geometry:   domain.GeometryMap{},
		TotalCount: len(alerts),
	}}}
}

func newPoller(t *testing.T, stub *stubRefresher, clock clockwork.Clock) *poller.Poller {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := poller.New(stub, time.Minute, clock, logger, observability.NewMetricsForTesting())
	t.Cleanup(p.Stop)
	return p
}

func waitForState(t *testing.T, p *poller.Poller, want poller.State) {
	t.Helper()
	assert.Eventually(t, func() bool {
		return p.Status().State == want
	}, time.Second, 5*time.Millisecond, "expected state %q", want)
}

func TestPoller_InitialLoadReachesReady(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stub := &stubRefresher{outcomes: []stubOutcome{okOutcome("a1", "a2")}}
	p := newPoller(t, stub, clock)

	require.Equal(t, poller.StateIdle, p.Status().State)
	p.Start(context.Background())

	waitForState(t, p, poller.StateReady)

	st := p.Status()
	assert.Len(t, st.Alerts, 2)
	assert.Equal(t, 2, st.TotalCount)
	assert.False(t, st.Loading)
	assert.Empty(t, st.LastError)
	assert.True(t, st.LastUpdated.Equal(clock.Now()))
	assert.Equal(t, 1, stub.callCount())
}

func TestPoller_IntervalTriggersRefresh(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stub := &stubRefresher{outcomes: []stubOutcome{okOutcome("a1")}}
	p := newPoller(t, stub, clock)
	p.Start(context.Background())

	waitForState(t, p, poller.StateReady)
	clock.BlockUntil(1) // the interval timer is armed

	st := p.Status()
	assert.Greater(t, st.NextRefreshIn, time.Duration(0))
	assert.LessOrEqual(t, st.NextRefreshIn, time.Minute)

	clock.Advance(time.Minute)
	assert.Eventually(t, func() bool {
		return stub.callCount() == 2
	}, time.Second, 5*time.Millisecond)
	waitForState(t, p, poller.StateReady)
}

func TestPoller_ManualRefreshDoesNotWaitForTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stub := &stubRefresher{outcomes: []stubOutcome{okOutcome("a1")}}
	p := newPoller(t, stub, clock)
	p.Start(context.Background())

	waitForState(t, p, poller.StateReady)
	clock.BlockUntil(1)

	p.Refresh()
	assert.Eventually(t, func() bool {
		return stub.callCount() == 2
	}, time.Second, 5*time.Millisecond)
	waitForState(t, p, poller.StateReady)
}

func TestPoller_ErrorThenManualRetryRecovers(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stub := &stubRefresher{outcomes: []stubOutcome{
		{err: errors.New("no data available")},
		okOutcome("a1"),
	}}
	p := newPoller(t, stub, clock)
	p.Start(context.Background())

	waitForState(t, p, poller.StateError)
	assert.Contains(t, p.Status().LastError, "no data available")
	assert.Empty(t, p.Status().Alerts)

	p.Refresh()
	waitForState(t, p, poller.StateReady)

	st := p.Status()
	assert.Empty(t, st.LastError)
	assert.Len(t, st.Alerts, 1)
}

func TestPoller_StaleResultKeepsDataAndSurfacesDegradation(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stale := okOutcome("prior")
	stale.res.Cached = true
	stale.res.Stale = true

	stub := &stubRefresher{outcomes: []stubOutcome{stale}}
	p := newPoller(t, stub, clock)
	p.Start(context.Background())

	waitForState(t, p, poller.StateReady)

	st := p.Status()
	assert.True(t, st.Stale)
	assert.Len(t, st.Alerts, 1)
	assert.Contains(t, st.LastError, "upstream unavailable")
	assert.True(t, st.LastUpdated.IsZero(), "stale data does not count as an update")
}

func TestPoller_NeverRunsConcurrentCycles(t *testing.T) {
	clock := clockwork.NewFakeClock()
	gate := make(chan struct{})
	stub := &stubRefresher{outcomes: []stubOutcome{okOutcome("a1")}, gate: gate}
	p := newPoller(t, stub, clock)
	p.Start(context.Background())

	assert.Eventually(t, func() bool {
		return stub.currentInFlight() == 1
	}, time.Second, 5*time.Millisecond)

	// Hammer manual refresh while the first cycle is stuck; requests must
	// coalesce instead of spawning parallel cycles.
	p.Refresh()
	p.Refresh()
	p.Refresh()

	gate <- struct{}{} // release initial load
	gate <- struct{}{} // release the single coalesced refresh

	assert.Eventually(t, func() bool {
		return stub.callCount() == 2
	}, time.Second, 5*time.Millisecond)
	waitForState(t, p, poller.StateReady)

	stub.mu.Lock()
	max := stub.maxInFlight
	stub.mu.Unlock()
	assert.Equal(t, 1, max)

	close(gate)
}

func TestPoller_StopDiscardsInFlightResult(t *testing.T) {
	clock := clockwork.NewFakeClock()
	gate := make(chan struct{})
	stub := &stubRefresher{outcomes: []stubOutcome{okOutcome("a1")}, gate: gate}
	p := newPoller(t, stub, clock)
	p.Start(context.Background())

	assert.Eventually(t, func() bool {
		return stub.currentInFlight() == 1
	}, time.Second, 5*time.Millisecond)

	p.Stop()

	st := p.Status()
	assert.NotEqual(t, poller.StateReady, st.State)
	assert.Empty(t, st.Alerts, "canceled cycle must not commit data")
	assert.Equal(t, 1, stub.callCount())
}

func TestPoller_RefreshAfterStopIsNoOp(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stub := &stubRefresher{outcomes: []stubOutcome{okOutcome("a1")}}
	p := newPoller(t, stub, clock)
	p.Start(context.Background())

	waitForState(t, p, poller.StateReady)
	p.Stop()

	before := stub.callCount()
	p.Refresh()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, before, stub.callCount())
}

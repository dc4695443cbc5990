// Package poller keeps the alert snapshot warm. It performs the initial
// load, schedules recurring refreshes, exposes manual refresh, and
// guarantees at most one fetch cycle in flight at a time while surfacing
// loading, error, and staleness state to consumers.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/nws-alert-gateway/internal/domain"
	"github.com/couchcryptid/nws-alert-gateway/internal/observability"
	"github.com/couchcryptid/nws-alert-gateway/internal/pipeline"
)

// Refresher runs one fetch cycle. Implemented by pipeline.Refresher.
type Refresher interface {
	Get(ctx context.Context, refresh bool) (pipeline.Result, error)
}

// State is the poller's lifecycle state.
type State string

// States. Loading covers only the first fetch; subsequent cycles are
// Refreshing. Error permits a transition back to Loading on retry.
const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateRefreshing State = "refreshing"
	StateError      State = "error"
)

// Status is a point-in-time view for consumers.
type Status struct {
	State       State
	Alerts      []domain.Alert
	Geometry    domain.GeometryMap
	Loading     bool
	LastError   string
	LastUpdated time.Time
	TotalCount  int
	Stale       bool

	// NextRefreshIn is the time remaining until the next automatic
	// refresh, zero while a cycle is in flight or the poller is stopped.
	NextRefreshIn time.Duration
}

// Poller drives refresh cycles on a fixed interval. All cycles run on one
// goroutine, so two cycles can never be in flight together; a manual
// refresh during a cycle is queued and supersedes the pending timer.
type Poller struct {
	refresher Refresher
	clock     clockwork.Clock
	interval  time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics

	refreshCh chan struct{}
	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once

	mu          sync.Mutex
	state       State
	snap        domain.Snapshot
	stale       bool
	lastErr     error
	lastUpdated time.Time
	nextAt      time.Time

	// generation invalidates results of superseded cycles: a cycle
	// started before Stop (or before a newer cycle's result landed) must
	// not overwrite state when it finally completes.
	generation int
}

// New creates a Poller. It does nothing until Start.
func New(refresher Refresher, interval time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Poller {
	return &Poller{
		refresher: refresher,
		clock:     clock,
		interval:  interval,
		logger:    logger,
		metrics:   metrics,
		refreshCh: make(chan struct{}, 1),
		done:      make(chan struct{}),
		state:     StateIdle,
	}
}

// Start launches the poll loop: one initial load, then a cycle per
// interval tick or manual refresh. Subsequent calls are no-ops.
func (p *Poller) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		p.cancel = cancel
		go p.run(runCtx)
	})
}

// Refresh requests a manual cycle. Non-blocking; if a refresh is already
// queued or in flight the request coalesces into it.
func (p *Poller) Refresh() {
	select {
	case p.refreshCh <- struct{}{}:
	default:
	}
}

// Stop tears the poller down: the pending timer is dropped, and a cycle
// already in flight has its result discarded. Safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.generation++ // invalidate any in-flight cycle
		p.mu.Unlock()
		if p.cancel != nil {
			p.cancel()
			<-p.done
		} else {
			close(p.done)
		}
	})
}

// Status reports the current view. The returned slices are the live
// snapshot's; callers must treat them as read-only.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Status{
		State:       p.state,
		Alerts:      p.snap.Alerts,
		Geometry:    p.snap.Geometry,
		Loading:     p.state == StateLoading,
		LastUpdated: p.lastUpdated,
		TotalCount:  p.snap.TotalCount,
		Stale:       p.stale,
	}
	if p.lastErr != nil {
		s.LastError = p.lastErr.Error()
	}
	if (p.state == StateReady || p.state == StateError) && !p.nextAt.IsZero() {
		if remaining := p.nextAt.Sub(p.clock.Now()); remaining > 0 {
			s.NextRefreshIn = remaining
		}
	}
	return s
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	p.metrics.PollerRunning.Set(1)
	defer p.metrics.PollerRunning.Set(0)

	p.setState(StateLoading)
	p.cycle(ctx, false)

	for {
		p.mu.Lock()
		p.nextAt = p.clock.Now().Add(p.interval)
		p.mu.Unlock()

		timer := p.clock.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
			p.beginRefresh(ctx)
		case <-p.refreshCh:
			timer.Stop()
			p.beginRefresh(ctx)
		}
	}
}

func (p *Poller) beginRefresh(ctx context.Context) {
	p.mu.Lock()
	if p.state == StateError {
		// Retry path re-enters Loading rather than Refreshing.
		p.state = StateLoading
	} else {
		p.state = StateRefreshing
	}
	p.mu.Unlock()

	p.cycle(ctx, true)
}

func (p *Poller) cycle(ctx context.Context, refresh bool) {
	p.mu.Lock()
	p.generation++
	gen := p.generation
	p.mu.Unlock()

	res, err := p.refresher.Get(ctx, refresh)
	p.apply(gen, res, err)
}

// apply commits a cycle's outcome unless a newer cycle (or Stop) has
// superseded it.
func (p *Poller) apply(gen int, res pipeline.Result, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation {
		p.logger.Debug("discarding superseded cycle result", "generation", gen)
		return
	}

	if err != nil {
		p.state = StateError
		p.lastErr = err
		p.logger.Error("fetch cycle failed", "error", err)
		return
	}

	p.state = StateReady
	p.snap = res.Snapshot
	p.stale = res.Stale
	if res.Stale {
		// Keep the degradation visible alongside the data.
		p.lastErr = errors.New("upstream unavailable, serving last snapshot")
	} else {
		p.lastErr = nil
		p.lastUpdated = p.clock.Now()
	}
}

func (p *Poller) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

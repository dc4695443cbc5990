// Package pipeline orchestrates one fetch-resolve-snapshot cycle and
// decides between the snapshot fast path, a fresh refresh, and the
// stale-fallback degradation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/nws-alert-gateway/internal/domain"
	"github.com/couchcryptid/nws-alert-gateway/internal/observability"
)

// AlertFetcher retrieves the active alert collection from upstream.
type AlertFetcher interface {
	FetchActiveAlerts(ctx context.Context) (domain.AlertCollection, error)
}

// GeometryResolver produces the geometry map needed to render alerts.
type GeometryResolver interface {
	Resolve(ctx context.Context, alerts []domain.Alert) (domain.GeometryMap, error)
}

// SnapshotStore persists and recalls the last good bundle.
type SnapshotStore interface {
	Load() (domain.Snapshot, bool, error)
	Save(domain.Snapshot) error
}

// AlertPublisher pushes newly-seen alerts to downstream consumers.
// Optional; a nil publisher disables publishing.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, alerts []domain.Alert) error
}

// Result is what a caller gets back from Get. Cached means the bundle came
// from the snapshot store rather than a fresh cycle; Stale additionally
// means a fresh cycle was attempted and failed.
type Result struct {
	Snapshot domain.Snapshot
	Cached   bool
	Stale    bool
}

// Refresher coordinates the acquisition pipeline. Availability wins over
// freshness: a refresh failure degrades to the last snapshot, and only
// total unavailability with no snapshot surfaces an error.
type Refresher struct {
	fetcher   AlertFetcher
	resolver  GeometryResolver
	snapshots SnapshotStore
	publisher AlertPublisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool

	// seenIDs holds the previous cycle's alert IDs so only newly-seen
	// alerts are published downstream.
	seenMu  sync.Mutex
	seenIDs map[string]struct{}
}

// New creates a Refresher. publisher may be nil.
func New(fetcher AlertFetcher, resolver GeometryResolver, snapshots SnapshotStore, publisher AlertPublisher, logger *slog.Logger, metrics *observability.Metrics) *Refresher {
	return &Refresher{
		fetcher:   fetcher,
		resolver:  resolver,
		snapshots: snapshots,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once any request has been served with data.
func (r *Refresher) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no alert data served yet")
	}
	return nil
}

// Get serves an alert bundle. Without refresh it prefers the stored
// snapshot and only runs a cycle on cold start. With refresh it always
// runs a cycle, falling back to the snapshot (marked stale) on failure.
func (r *Refresher) Get(ctx context.Context, refresh bool) (Result, error) {
	if !refresh {
		if snap, ok := r.loadSnapshot(); ok {
			r.metrics.SnapshotFastPath.Inc()
			r.ready.Store(true)
			return Result{Snapshot: snap, Cached: true}, nil
		}
	}

	snap, err := r.runCycle(ctx)
	if err == nil {
		return Result{Snapshot: snap}, nil
	}

	if prior, ok := r.loadSnapshot(); ok {
		r.metrics.RefreshCycles.WithLabelValues("stale_fallback").Inc()
		r.logger.Warn("refresh failed, serving stale snapshot",
			"error", err, "snapshot_age", domain.Now().Sub(prior.FetchedAt).String())
		r.ready.Store(true)
		return Result{Snapshot: prior, Cached: true, Stale: true}, nil
	}

	r.metrics.RefreshCycles.WithLabelValues("no_data").Inc()
	return Result{}, fmt.Errorf("%w: %v", domain.ErrNoData, err)
}

// runCycle executes fetch → resolve → sort → snapshot → publish.
func (r *Refresher) runCycle(ctx context.Context) (domain.Snapshot, error) {
	start := time.Now()

	coll, err := r.fetcher.FetchActiveAlerts(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}

	geometry, err := r.resolver.Resolve(ctx, coll.Alerts)
	if err != nil {
		// Resolution is fault-tolerant by contract; an error here still
		// leaves the alerts renderable without polygons.
		r.logger.Warn("geometry resolution failed, continuing without polygons", "error", err)
		geometry = domain.GeometryMap{}
	}

	domain.SortAlerts(coll.Alerts)
	snap := domain.NewSnapshot(coll.Alerts, geometry, coll.TotalCount)

	if err := r.snapshots.Save(snap); err != nil {
		// The cycle still succeeded; only the fast path loses out until
		// the next save.
		r.logger.Error("snapshot save failed", "error", err)
	}

	if r.publisher != nil {
		if fresh := r.newlySeen(snap.Alerts); len(fresh) > 0 {
			if err := r.publisher.PublishAlerts(ctx, fresh); err != nil {
				r.metrics.PublishErrors.Inc()
				r.logger.Warn("alert publish failed", "error", err)
			} else {
				r.metrics.AlertsPublished.Add(float64(len(fresh)))
			}
		}
	}

	r.metrics.RefreshCycles.WithLabelValues("success").Inc()
	r.metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	r.metrics.ActiveAlerts.Set(float64(len(snap.Alerts)))
	r.ready.Store(true)

	r.logger.Info("refresh cycle complete",
		"alerts", len(snap.Alerts),
		"geometries", len(snap.Geometry),
		"total_reported", snap.TotalCount,
		"duration", time.Since(start).String(),
	)
	return snap, nil
}

// newlySeen returns the alerts absent from the previous cycle and replaces
// the seen set wholesale, so an alert that lapses and is re-issued
// publishes again.
func (r *Refresher) newlySeen(alerts []domain.Alert) []domain.Alert {
	r.seenMu.Lock()
	defer r.seenMu.Unlock()

	fresh := make([]domain.Alert, 0, len(alerts))
	current := make(map[string]struct{}, len(alerts))
	for _, a := range alerts {
		current[a.ID] = struct{}{}
		if _, ok := r.seenIDs[a.ID]; !ok {
			fresh = append(fresh, a)
		}
	}
	r.seenIDs = current
	return fresh
}

func (r *Refresher) loadSnapshot() (domain.Snapshot, bool) {
	snap, ok, err := r.snapshots.Load()
	if err != nil {
		r.logger.Warn("snapshot load failed", "error", err)
		return domain.Snapshot{}, false
	}
	return snap, ok
}

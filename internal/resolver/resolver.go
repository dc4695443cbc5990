// Package resolver reconciles alerts that carry zone references instead of
// inline polygons. It computes the minimal set of missing UGC codes,
// fetches them in bounded parallel batches, merges the results into the
// persistent cache, and hands back a complete code → geometry map for the
// cycle.
package resolver

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/nws-alert-gateway/internal/cache"
	"github.com/couchcryptid/nws-alert-gateway/internal/config"
	"github.com/couchcryptid/nws-alert-gateway/internal/domain"
	"github.com/couchcryptid/nws-alert-gateway/internal/observability"
)

// ZoneFetcher fetches boundary geometry for one batch of UGC codes.
// Implemented by the NWS client.
type ZoneFetcher interface {
	FetchZoneGeometry(ctx context.Context, codes []string) (domain.GeometryMap, error)
}

// Resolver turns reference codes into polygons, cache-first.
type Resolver struct {
	fetcher     ZoneFetcher
	store       cache.Store
	batchSize   int
	concurrency int
	logger      *slog.Logger
	metrics     *observability.Metrics

	// inflight tracks codes a fetch is currently out for, so overlapping
	// resolution cycles (poller plus a manual HTTP refresh) never issue
	// duplicate requests. Entries are removed on every exit path.
	mu       sync.Mutex
	inflight map[string]struct{}
}

// New creates a Resolver over the given fetcher and cache.
func New(fetcher ZoneFetcher, store cache.Store, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Resolver {
	return &Resolver{
		fetcher:     fetcher,
		store:       store,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.BatchConcurrency,
		logger:      logger,
		metrics:     metrics,
		inflight:    make(map[string]struct{}),
	}
}

// Resolve returns the geometry map needed to render alerts. Codes already
// cached cost nothing; missing codes are fetched in batches of at most
// batchSize with at most concurrency batches in flight. A failed batch
// contributes nothing and its codes stay fetchable next cycle; the cycle
// itself always completes. Codes that remain unresolved are absent from the
// result.
func (r *Resolver) Resolve(ctx context.Context, alerts []domain.Alert) (domain.GeometryMap, error) {
	needed := neededCodes(alerts)
	if len(needed) == 0 {
		return domain.GeometryMap{}, nil
	}

	cached := r.store.GetMany(ctx, needed)
	missing := make([]string, 0, len(needed))
	for _, code := range needed {
		if g, ok := cached[code]; ok {
			if g == nil {
				r.metrics.CacheLookups.WithLabelValues("marker").Inc()
			} else {
				r.metrics.CacheLookups.WithLabelValues("hit").Inc()
			}
			continue
		}
		r.metrics.CacheLookups.WithLabelValues("miss").Inc()
		missing = append(missing, code)
	}

	fetched := r.fetchMissing(ctx, missing)

	if len(fetched) > 0 {
		for code, g := range fetched {
			r.store.Put(code, g)
			if g == nil {
				r.metrics.ZonesUnresolved.Inc()
			} else {
				r.metrics.ZonesResolved.Inc()
			}
		}
		if err := r.store.PersistAll(ctx); err != nil {
			// The entries are live in memory for this cycle; durability
			// catches up on the next successful persist.
			r.logger.Error("geometry cache persist failed", "error", err)
		}
	}

	result := cached.Resolved()
	for code, g := range fetched {
		if g != nil {
			result[code] = g
		}
	}
	return result, nil
}

// fetchMissing claims codes not already in flight and fetches them in
// bounded parallel batches. The per-cycle budget is batchSize*concurrency
// codes; anything beyond that waits for a later cycle.
func (r *Resolver) fetchMissing(ctx context.Context, missing []string) domain.GeometryMap {
	if len(missing) == 0 {
		return nil
	}

	claimed := r.claim(missing)
	if len(claimed) == 0 {
		return nil
	}
	defer r.release(claimed)

	if budget := r.batchSize * r.concurrency; len(claimed) > budget {
		r.logger.Info("missing zones exceed cycle budget, deferring remainder",
			"missing", len(claimed), "budget", budget)
		claimed = claimed[:budget]
	}

	fetched := make(domain.GeometryMap, len(claimed))
	var fetchedMu sync.Mutex

	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for start := 0; start < len(claimed); start += r.batchSize {
		batch := claimed[start:min(start+r.batchSize, len(claimed))]
		g.Go(func() error {
			got, err := r.fetcher.FetchZoneGeometry(ctx, batch)
			if err != nil {
				// Partial-failure semantics: this batch contributes
				// nothing and is not marked, so its codes retry next
				// cycle. The cycle still completes.
				r.metrics.ZoneBatches.WithLabelValues("error").Inc()
				r.logger.Warn("zone batch fetch failed", "codes", len(batch), "error", err)
				return nil
			}
			r.metrics.ZoneBatches.WithLabelValues("success").Inc()

			fetchedMu.Lock()
			defer fetchedMu.Unlock()
			for _, code := range batch {
				// A successful batch that omits a code means upstream has
				// no geometry for it: mark it so it is never re-fetched.
				fetched[code] = got[code]
			}
			return nil
		})
	}
	_ = g.Wait()

	return fetched
}

func (r *Resolver) claim(codes []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	claimed := make([]string, 0, len(codes))
	for _, code := range codes {
		if _, busy := r.inflight[code]; busy {
			continue
		}
		r.inflight[code] = struct{}{}
		claimed = append(claimed, code)
	}
	return claimed
}

func (r *Resolver) release(codes []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, code := range codes {
		delete(r.inflight, code)
	}
}

// neededCodes collects the sorted union of valid UGC codes across alerts
// lacking inline geometry. Malformed codes cannot map to a fetch path and
// are silently excluded.
func neededCodes(alerts []domain.Alert) []string {
	seen := make(map[string]struct{})
	for _, a := range alerts {
		if a.HasInlineGeometry() {
			continue
		}
		for _, code := range a.UGC {
			if domain.ValidUGC(code) {
				seen[code] = struct{}{}
			}
		}
	}

	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

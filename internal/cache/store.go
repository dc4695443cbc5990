// Package cache is the persistent zone-geometry store. Entries map a UGC
// code to its boundary polygon and are written once, the first time a code
// is resolved; zone and county boundaries are treated as immutable, so
// there is no eviction and no invalidation. A nil entry is the explicit
// "unresolvable" marker that prevents repeated re-fetch attempts.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	geojson "github.com/paulmach/go.geojson"

	"github.com/couchcryptid/nws-alert-gateway/internal/domain"
)

// Store is the geometry cache contract shared by the disk-file and Redis
// backends. Concurrent same-process writers are prevented by the sync
// client's single-flight discipline; cross-process writers may race, but
// every write is a pure function of its code, so last-write-wins is safe.
type Store interface {
	// Get returns the entry for code. ok is false when the code has never
	// been seen; a present nil geometry means "known unresolvable".
	Get(ctx context.Context, code string) (g *geojson.Geometry, ok bool)

	// GetMany returns the partial map of entries present for codes,
	// including unresolvable markers.
	GetMany(ctx context.Context, codes []string) domain.GeometryMap

	// Put stages an entry. It becomes durable on the next PersistAll.
	Put(code string, g *geojson.Geometry)

	// PersistAll makes staged entries durable. A crash between Put and
	// PersistAll may lose the staged batch but never corrupts what was
	// persisted before.
	PersistAll(ctx context.Context) error

	// LoadAll reads the full persisted map. Idempotent; missing or corrupt
	// storage yields an empty map, not an error.
	LoadAll(ctx context.Context) (domain.GeometryMap, error)
}

func encodeGeometry(g *geojson.Geometry) ([]byte, error) {
	if g == nil {
		return []byte("null"), nil
	}
	b, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode geometry: %w", err)
	}
	return b, nil
}

func decodeGeometry(b []byte) (*geojson.Geometry, error) {
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}
	var g geojson.Geometry
	if err := json.Unmarshal(b, &g); err != nil {
		return nil, fmt.Errorf("decode geometry: %w", err)
	}
	return &g, nil
}

package domain

import "time"

// Snapshot is the last successfully resolved alert+geometry bundle. It is
// built once per refresh cycle and superseded wholesale by the next one,
// never merged.
type Snapshot struct {
	Alerts     []Alert     `json:"alerts"`
	Geometry   GeometryMap `json:"zoneGeometries"`
	TotalCount int         `json:"totalCount"`
	FetchedAt  time.Time   `json:"fetchedAt"`
}

// NewSnapshot stamps a bundle with the package clock.
func NewSnapshot(alerts []Alert, geometry GeometryMap, totalCount int) Snapshot {
	return Snapshot{
		Alerts:     alerts,
		Geometry:   geometry,
		TotalCount: totalCount,
		FetchedAt:  Now(),
	}
}

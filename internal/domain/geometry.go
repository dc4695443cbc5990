package domain

import (
	"encoding/json"
	"fmt"
	"regexp"

	geojson "github.com/paulmach/go.geojson"
)

// GeometryMap maps a UGC code to its boundary polygon. A nil value is the
// explicit "unresolvable" marker: the code was requested from upstream and
// nothing came back, so it must not be fetched again.
type GeometryMap map[string]*geojson.Geometry

// ugcPattern matches well-formed UGC zone/county codes (see package doc).
var ugcPattern = regexp.MustCompile(`^[A-Z]{2}[CZ][0-9]{3}$`)

// ValidUGC reports whether code can map to a zone fetch path. Malformed
// codes are excluded from resolution rather than raised as errors.
func ValidUGC(code string) bool {
	return ugcPattern.MatchString(code)
}

// ParseGeometry decodes raw GeoJSON into a Polygon or MultiPolygon.
// Anything else, including undecodable input, is ErrMalformedGeometry; the
// caller skips the record and keeps the batch.
func ParseGeometry(raw json.RawMessage) (*geojson.Geometry, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedGeometry, err)
	}
	if !g.IsPolygon() && !g.IsMultiPolygon() {
		return nil, fmt.Errorf("%w: unsupported type %q", ErrMalformedGeometry, g.Type)
	}
	return g, nil
}

// Resolved returns the subset of codes whose entries carry actual polygons,
// dropping unresolvable markers. Consumers treat an absent code as "no
// polygon available".
func (m GeometryMap) Resolved() GeometryMap {
	out := make(GeometryMap, len(m))
	for code, g := range m {
		if g != nil {
			out[code] = g
		}
	}
	return out
}

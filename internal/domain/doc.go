// Package domain models National Weather Service (NWS) alert data.
//
// # Data Source
//
// Alerts come from the NWS public API (https://api.weather.gov), endpoint
// /alerts/active, which returns a GeoJSON feature collection of active
// warnings, watches, and advisories. The API requires a descriptive
// User-Agent header (https://www.weather.gov/documentation/services-web-api).
//
// # Geometry Conventions
//
// Most alerts carry no inline polygon. Instead they reference the affected
// area through UGC (Universal Geographic Code) identifiers in
// properties.geocode.UGC:
//
//	SSFNNN  →  e.g. "CAZ001", "TXC113"
//	SS  = two-letter state/territory code
//	F   = format: Z (public forecast zone) or C (county, FIPS-based)
//	NNN = three-digit zone or county number
//
// Zone and county boundary polygons are fetched separately from
// /zones?id=...&include_geometry=true (at most 100 ids per request) and
// treated as immutable: once a code has been resolved it is never
// re-fetched. SAME codes (properties.geocode.SAME) are carried through for
// consumers but are not used for geometry resolution.
//
// # Severity
//
// NWS severity is an enumerated string. Display order is fixed:
//
//	Extreme < Severe < Moderate < Minor < Unknown
//
// Collections are sorted by severity rank ascending, ties broken by the
// Sent timestamp descending (newest first). See [SortAlerts].
//
// # Timestamps
//
// Effective, Onset, Expires, and Ends are nullable in the feed and modeled
// as *time.Time. Sent is always present on real alerts; a missing Sent
// parses to the zero time and sorts last within its severity rank.
package domain

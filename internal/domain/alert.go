package domain

import (
	"sort"
	"time"

	geojson "github.com/paulmach/go.geojson"
)

// Severity is the NWS severity classification of an alert.
type Severity string

// Severity levels in display order.
const (
	SeverityExtreme  Severity = "Extreme"
	SeveritySevere   Severity = "Severe"
	SeverityModerate Severity = "Moderate"
	SeverityMinor    Severity = "Minor"
	SeverityUnknown  Severity = "Unknown"
)

var severityRanks = map[Severity]int{
	SeverityExtreme:  0,
	SeveritySevere:   1,
	SeverityModerate: 2,
	SeverityMinor:    3,
	SeverityUnknown:  4,
}

// Rank returns the sort position of the severity. Unrecognized values rank
// after Unknown so malformed feed data never floats to the top.
func (s Severity) Rank() int {
	if r, ok := severityRanks[s]; ok {
		return r
	}
	return len(severityRanks)
}

// Alert is one normalized NWS warning/watch/advisory record. Alerts are
// immutable once parsed; a refresh replaces the whole collection.
type Alert struct {
	ID          string   `json:"id"`
	Event       string   `json:"event"`
	Severity    Severity `json:"severity"`
	Urgency     string   `json:"urgency"`
	Certainty   string   `json:"certainty"`
	Status      string   `json:"status"`
	MessageType string   `json:"messageType,omitempty"`
	Headline    string   `json:"headline,omitempty"`
	Description string   `json:"description,omitempty"`
	Instruction string   `json:"instruction,omitempty"`
	AreaDesc    string   `json:"areaDesc"`
	SenderName  string   `json:"senderName,omitempty"`

	Sent      time.Time  `json:"sent"`
	Effective *time.Time `json:"effective,omitempty"`
	Onset     *time.Time `json:"onset,omitempty"`
	Expires   *time.Time `json:"expires,omitempty"`
	Ends      *time.Time `json:"ends,omitempty"`

	// UGC zone/county codes used to resolve geometry when Geometry is nil.
	UGC  []string `json:"ugc,omitempty"`
	SAME []string `json:"same,omitempty"`

	// Inline polygon, present on a minority of alerts.
	Geometry *geojson.Geometry `json:"geometry,omitempty"`
}

// HasInlineGeometry reports whether the alert carries its own polygon and
// therefore needs no zone lookup.
func (a Alert) HasInlineGeometry() bool {
	return a.Geometry != nil
}

// AlertCollection is the result of one upstream fetch. TotalCount is the
// count reported by the API, which can exceed len(Alerts) when upstream
// paginates; it is a lower-bound display figure, not an enumeration promise.
type AlertCollection struct {
	Alerts     []Alert
	TotalCount int
}

// SortAlerts orders alerts by severity rank ascending, then by Sent
// descending. The sort is stable so equal records keep feed order.
func SortAlerts(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		ri, rj := alerts[i].Severity.Rank(), alerts[j].Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		return alerts[i].Sent.After(alerts[j].Sent)
	})
}

// EventTypes returns the deduplicated, sorted event strings in the collection.
func EventTypes(alerts []Alert) []string {
	seen := make(map[string]struct{}, len(alerts))
	types := make([]string, 0, len(alerts))
	for _, a := range alerts {
		if a.Event == "" {
			continue
		}
		if _, ok := seen[a.Event]; ok {
			continue
		}
		seen[a.Event] = struct{}{}
		types = append(types, a.Event)
	}
	sort.Strings(types)
	return types
}

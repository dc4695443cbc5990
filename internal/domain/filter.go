package domain

import "strings"

// Filter selects a subset of an alert collection for display. Axes compose
// conjunctively; an empty set or field places no restriction on its axis.
type Filter struct {
	Severities map[Severity]struct{}
	EventTypes map[string]struct{}
	Region     string // matched against UGC state prefix and areaDesc
	Keyword    string // case-insensitive free text
}

// Apply returns the alerts matching every populated axis. The input slice
// is never mutated.
func (f Filter) Apply(alerts []Alert) []Alert {
	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		if f.matches(a) {
			out = append(out, a)
		}
	}
	return out
}

func (f Filter) matches(a Alert) bool {
	if len(f.Severities) > 0 {
		if _, ok := f.Severities[a.Severity]; !ok {
			return false
		}
	}
	if len(f.EventTypes) > 0 {
		if _, ok := f.EventTypes[a.Event]; !ok {
			return false
		}
	}
	if f.Region != "" && !f.matchesRegion(a) {
		return false
	}
	if f.Keyword != "" && !matchesKeyword(a, f.Keyword) {
		return false
	}
	return true
}

func (f Filter) matchesRegion(a Alert) bool {
	region := strings.ToUpper(f.Region)
	for _, code := range a.UGC {
		if strings.HasPrefix(code, region) {
			return true
		}
	}
	return strings.Contains(strings.ToUpper(a.AreaDesc), region)
}

func matchesKeyword(a Alert, keyword string) bool {
	kw := strings.ToLower(keyword)
	for _, field := range []string{a.Event, a.Headline, a.Description, a.AreaDesc} {
		if strings.Contains(strings.ToLower(field), kw) {
			return true
		}
	}
	return false
}

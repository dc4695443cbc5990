package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func filterFixture() []Alert {
	return []Alert{
		{ID: "1", Event: "Tornado Warning", Severity: SeverityExtreme, AreaDesc: "Travis County, TX", UGC: []string{"TXC453"}, Headline: "Tornado spotted near Austin"},
		{ID: "2", Event: "Flood Watch", Severity: SeverityModerate, AreaDesc: "Sacramento Valley, CA", UGC: []string{"CAZ017"}, Headline: "Minor flooding possible"},
		{ID: "3", Event: "Winter Storm Warning", Severity: SeveritySevere, AreaDesc: "Denver Metro, CO", UGC: []string{"COZ040"}, Description: "Heavy snow expected"},
	}
}

func TestFilter_EmptyMatchesEverything(t *testing.T) {
	alerts := filterFixture()
	assert.Len(t, Filter{}.Apply(alerts), len(alerts))
}

func TestFilter_BySeverity(t *testing.T) {
	f := Filter{Severities: map[Severity]struct{}{SeverityExtreme: {}, SeveritySevere: {}}}
	got := f.Apply(filterFixture())
	assert.Len(t, got, 2)
	for _, a := range got {
		assert.NotEqual(t, SeverityModerate, a.Severity)
	}
}

func TestFilter_ByEventType(t *testing.T) {
	f := Filter{EventTypes: map[string]struct{}{"Flood Watch": {}}}
	got := f.Apply(filterFixture())
	assert.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestFilter_ByRegionUGCPrefix(t *testing.T) {
	f := Filter{Region: "CA"}
	got := f.Apply(filterFixture())
	assert.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestFilter_ByKeyword(t *testing.T) {
	f := Filter{Keyword: "snow"}
	got := f.Apply(filterFixture())
	assert.Len(t, got, 1)
	assert.Equal(t, "3", got[0].ID)
}

func TestFilter_AxesAreConjunctive(t *testing.T) {
	f := Filter{
		Severities: map[Severity]struct{}{SeverityExtreme: {}},
		Region:     "CA",
	}
	assert.Empty(t, f.Apply(filterFixture()), "no alert is both Extreme and in CA")

	f.Region = "TX"
	got := f.Apply(filterFixture())
	assert.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	alerts := filterFixture()
	Filter{Region: "CA"}.Apply(alerts)
	assert.Len(t, alerts, 3)
	assert.Equal(t, "1", alerts[0].ID)
}

// Command mocknws serves a deterministic stand-in for the NWS API on
// localhost, for developing and demoing the gateway without hitting the
// real service. It generates a fixed set of active alerts and answers
// zone geometry batch lookups for the codes those alerts reference.
//
// Usage:
//
//	go run ./cmd/mocknws -addr :9090 -count 40
//
// then point the gateway at it with NWS_BASE_URL=http://localhost:9090.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

var baseTime = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

type alertDef struct {
	event    string
	severity string
	urgency  string
}

// A small rotation of realistic event types; index order drives which
// severity each generated alert gets.
var alertDefs = []alertDef{
	{event: "Tornado Warning", severity: "Extreme", urgency: "Immediate"},
	{event: "Severe Thunderstorm Warning", severity: "Severe", urgency: "Immediate"},
	{event: "Flood Watch", severity: "Moderate", urgency: "Expected"},
	{event: "Frost Advisory", severity: "Minor", urgency: "Expected"},
	{event: "Special Weather Statement", severity: "", urgency: ""},
}

var states = []string{"OK", "TX", "KS", "MO", "AR"}

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	count := flag.Int("count", 40, "number of active alerts to generate")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /alerts/active", handleAlerts(*count))
	mux.HandleFunc("GET /zones", handleZones)

	log.Printf("mock NWS API listening on %s (%d alerts)", *addr, *count)
	log.Fatal(http.ListenAndServe(*addr, mux))
}

// zoneCode derives a stable UGC zone code from an alert index.
func zoneCode(i int) string {
	return fmt.Sprintf("%sZ%03d", states[i%len(states)], i%200)
}

// zonePolygon builds a small deterministic square for a zone index.
func zonePolygon(i int) map[string]any {
	lon := -103.0 + float64(i%40)*0.5
	lat := 31.0 + float64(i/40)*0.5
	return map[string]any{
		"type": "Polygon",
		"coordinates": [][][]float64{{
			{lon, lat},
			{lon + 0.4, lat},
			{lon + 0.4, lat + 0.4},
			{lon, lat + 0.4},
			{lon, lat},
		}},
	}
}

func handleAlerts(count int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		features := make([]map[string]any, 0, count)
		for i := 0; i < count; i++ {
			def := alertDefs[i%len(alertDefs)]
			id := fmt.Sprintf("urn:oid:2.49.0.1.840.0.mock-%04d", i)
			sent := baseTime.Add(-time.Duration(i) * time.Minute)
			expires := sent.Add(2 * time.Hour)

			props := map[string]any{
				"id":          id,
				"event":       def.event,
				"severity":    def.severity,
				"urgency":     def.urgency,
				"certainty":   "Likely",
				"status":      "Actual",
				"messageType": "Alert",
				"headline":    fmt.Sprintf("%s issued %s", def.event, sent.Format("January 2 at 3:04PM MST")),
				"areaDesc":    fmt.Sprintf("%s zone %d", states[i%len(states)], i%200),
				"senderName":  "NWS Norman OK",
				"sent":        sent.Format(time.RFC3339),
				"effective":   sent.Format(time.RFC3339),
				"expires":     expires.Format(time.RFC3339),
				"geocode": map[string]any{
					"UGC": []string{zoneCode(i)},
				},
			}

			// Every third alert carries an inline polygon, mirroring the
			// real feed where most alerts only reference zones.
			var geometry any
			if i%3 == 0 {
				geometry = zonePolygon(i)
			}

			features = append(features, map[string]any{
				"id":         id,
				"geometry":   geometry,
				"properties": props,
			})
		}

		writeJSON(w, map[string]any{
			"features":   features,
			"pagination": map[string]any{"total": count},
		})
	}
}

func handleZones(w http.ResponseWriter, r *http.Request) {
	ids := strings.Split(r.URL.Query().Get("id"), ",")

	features := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if len(id) < 6 {
			continue
		}
		// Leave every seventh zone out of the response entirely, so the
		// gateway exercises its unresolvable-zone marker path.
		var idx int
		fmt.Sscanf(id[3:], "%d", &idx)
		if idx%7 == 6 {
			continue
		}
		features = append(features, map[string]any{
			"geometry": zonePolygon(idx),
			"properties": map[string]any{
				"id":   id,
				"name": fmt.Sprintf("Zone %s", id),
			},
		})
	}

	writeJSON(w, map[string]any{"features": features})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/geo+json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

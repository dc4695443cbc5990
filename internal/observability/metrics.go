package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// alert gateway.
type Metrics struct {
	UpstreamRequests *prometheus.CounterVec   // labels: endpoint={alerts,zones}, outcome={success,error}
	UpstreamDuration *prometheus.HistogramVec // labels: endpoint={alerts,zones}

	// Geometry resolution metrics.
	CacheLookups    *prometheus.CounterVec // labels: result={hit,miss,marker}
	ZoneBatches     *prometheus.CounterVec // labels: outcome={success,error}
	ZonesResolved   prometheus.Counter
	ZonesUnresolved prometheus.Counter

	// Refresh cycle metrics.
	RefreshCycles     *prometheus.CounterVec // labels: outcome={success,stale_fallback,no_data}
	RefreshDuration   prometheus.Histogram
	SnapshotFastPath  prometheus.Counter
	ActiveAlerts      prometheus.Gauge
	MalformedGeometry prometheus.Counter

	// Alert-update publishing metrics.
	AlertsPublished prometheus.Counter
	PublishErrors   prometheus.Counter

	PollerRunning prometheus.Gauge
}

// NewMetrics creates and registers all gateway metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.CacheLookups,
		m.ZoneBatches,
		m.ZonesResolved,
		m.ZonesUnresolved,
		m.RefreshCycles,
		m.RefreshDuration,
		m.SnapshotFastPath,
		m.ActiveAlerts,
		m.MalformedGeometry,
		m.AlertsPublished,
		m.PublishErrors,
		m.PollerRunning,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nws_gateway",
			Name:      "upstream_requests_total",
			Help:      "NWS API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nws_gateway",
			Name:      "upstream_request_duration_seconds",
			Help:      "NWS API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 8, 15},
		}, []string{"endpoint"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nws_gateway",
			Name:      "geometry_cache_lookups_total",
			Help:      "Geometry cache lookups by result; marker means a cached unresolvable code.",
		}, []string{"result"}),
		ZoneBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nws_gateway",
			Name:      "zone_batches_total",
			Help:      "Zone geometry batch fetches by outcome.",
		}, []string{"outcome"}),
		ZonesResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nws_gateway",
			Name:      "zones_resolved_total",
			Help:      "Zone codes resolved to a polygon across all cycles.",
		}),
		ZonesUnresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nws_gateway",
			Name:      "zones_unresolved_total",
			Help:      "Zone codes marked unresolvable after a successful batch omitted them.",
		}),
		RefreshCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nws_gateway",
			Name:      "refresh_cycles_total",
			Help:      "Refresh cycles by outcome.",
		}, []string{"outcome"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nws_gateway",
			Name:      "refresh_cycle_duration_seconds",
			Help:      "Duration of a complete fetch-resolve-snapshot cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30},
		}),
		SnapshotFastPath: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nws_gateway",
			Name:      "snapshot_fast_path_total",
			Help:      "Requests served from the stored snapshot without an upstream call.",
		}),
		ActiveAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nws_gateway",
			Name:      "active_alerts",
			Help:      "Alerts in the most recent snapshot.",
		}),
		MalformedGeometry: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nws_gateway",
			Name:      "malformed_geometry_total",
			Help:      "Records whose geometry failed to parse and was dropped.",
		}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nws_gateway",
			Name:      "alerts_published_total",
			Help:      "Alert updates published to Kafka.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nws_gateway",
			Name:      "publish_errors_total",
			Help:      "Failed Kafka publish attempts.",
		}),
		PollerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nws_gateway",
			Name:      "poller_running",
			Help:      "1 when the sync poller is active, 0 when stopped.",
		}),
	}
}

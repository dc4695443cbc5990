// Package nws is the upstream client for the National Weather Service API.
// It fetches active alert collections and zone/county geometry batches; it
// never caches and never retries — retry and fallback policy belong to the
// caller.
package nws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/nws-alert-gateway/internal/config"
	"github.com/couchcryptid/nws-alert-gateway/internal/domain"
	"github.com/couchcryptid/nws-alert-gateway/internal/observability"
)

// Client calls the NWS API with the fixed identification headers the
// provider's usage policy requires.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an NWS API client with the configured per-call timeout.
func NewClient(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.NWSBaseURL, "/"),
		userAgent: cfg.NWSUserAgent,
		httpClient: &http.Client{
			Timeout: cfg.NWSTimeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// FetchActiveAlerts retrieves the active alert feed and normalizes each
// feature. A record with undecodable inline geometry keeps its place in the
// collection without a polygon; it can still resolve through its UGC codes.
func (c *Client) FetchActiveAlerts(ctx context.Context) (domain.AlertCollection, error) {
	var resp alertResponse
	if err := c.doGet(ctx, c.baseURL+"/alerts/active", "alerts", &resp); err != nil {
		return domain.AlertCollection{}, err
	}

	alerts := make([]domain.Alert, 0, len(resp.Features))
	for _, f := range resp.Features {
		alerts = append(alerts, c.normalizeAlert(f))
	}

	total := len(alerts)
	if resp.Pagination != nil && resp.Pagination.Total > total {
		total = resp.Pagination.Total
	}

	return domain.AlertCollection{Alerts: alerts, TotalCount: total}, nil
}

// FetchZoneGeometry retrieves boundary polygons for up to
// config.MaxZoneBatchSize UGC codes in one call. Codes upstream does not
// return are simply absent from the result.
func (c *Client) FetchZoneGeometry(ctx context.Context, codes []string) (domain.GeometryMap, error) {
	if len(codes) == 0 {
		return domain.GeometryMap{}, nil
	}
	if len(codes) > config.MaxZoneBatchSize {
		return nil, fmt.Errorf("zone batch of %d exceeds upstream cap of %d", len(codes), config.MaxZoneBatchSize)
	}

	params := url.Values{
		"id":               {strings.Join(codes, ",")},
		"include_geometry": {"true"},
	}

	var resp zoneResponse
	if err := c.doGet(ctx, c.baseURL+"/zones?"+params.Encode(), "zones", &resp); err != nil {
		return nil, err
	}

	result := make(domain.GeometryMap, len(resp.Features))
	for _, f := range resp.Features {
		id := f.Properties.ID
		if id == "" {
			continue
		}
		g, err := domain.ParseGeometry(f.Geometry)
		if err != nil {
			c.metrics.MalformedGeometry.Inc()
			c.logger.Warn("zone geometry unparseable, skipping", "zone", id, "error", err)
			continue
		}
		if g != nil {
			result[id] = g
		}
	}
	return result, nil
}

func (c *Client) doGet(ctx context.Context, fullURL, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/geo+json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("%w: %s request: %v", domain.ErrUpstreamUnavailable, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s returned status %d: %s", domain.ErrUpstreamUnavailable, endpoint, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("%w: decode %s response: %v", domain.ErrUpstreamUnavailable, endpoint, err)
	}

	c.metrics.UpstreamRequests.WithLabelValues(endpoint, "success").Inc()
	return nil
}

func (c *Client) normalizeAlert(f alertFeature) domain.Alert {
	p := f.Properties

	id := f.ID
	if id == "" {
		id = p.ID
	}
	event := p.Event
	if event == "" {
		event = "Unknown Event"
	}
	severity := domain.Severity(p.Severity)
	if p.Severity == "" {
		severity = domain.SeverityUnknown
	}

	a := domain.Alert{
		ID:          id,
		Event:       event,
		Severity:    severity,
		Urgency:     p.Urgency,
		Certainty:   p.Certainty,
		Status:      p.Status,
		MessageType: p.MessageType,
		Headline:    p.Headline,
		Description: p.Description,
		Instruction: p.Instruction,
		AreaDesc:    p.AreaDesc,
		SenderName:  p.SenderName,
		Sent:        parseTime(p.Sent),
		Effective:   parseTimePtr(p.Effective),
		Onset:       parseTimePtr(p.Onset),
		Expires:     parseTimePtr(p.Expires),
		Ends:        parseTimePtr(p.Ends),
		UGC:         p.Geocode.UGC,
		SAME:        p.Geocode.SAME,
	}

	g, err := domain.ParseGeometry(f.Geometry)
	if err != nil {
		c.metrics.MalformedGeometry.Inc()
		c.logger.Warn("inline geometry unparseable, alert kept without polygon", "alert_id", id, "error", err)
		return a
	}
	a.Geometry = g
	return a
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTimePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

// NWS API response types. Geometry stays raw so one bad record cannot fail
// the whole decode.

type alertResponse struct {
	Features   []alertFeature `json:"features"`
	Pagination *pagination    `json:"pagination"`
}

type alertFeature struct {
	ID         string          `json:"id"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties alertProperties `json:"properties"`
}

type alertProperties struct {
	ID          string  `json:"id"`
	Event       string  `json:"event"`
	Severity    string  `json:"severity"`
	Urgency     string  `json:"urgency"`
	Certainty   string  `json:"certainty"`
	Status      string  `json:"status"`
	MessageType string  `json:"messageType"`
	Headline    string  `json:"headline"`
	Description string  `json:"description"`
	Instruction string  `json:"instruction"`
	AreaDesc    string  `json:"areaDesc"`
	SenderName  string  `json:"senderName"`
	Sent        string  `json:"sent"`
	Effective   string  `json:"effective"`
	Onset       string  `json:"onset"`
	Expires     string  `json:"expires"`
	Ends        string  `json:"ends"`
	Geocode     geocode `json:"geocode"`
}

type geocode struct {
	UGC  []string `json:"UGC"`
	SAME []string `json:"SAME"`
}

type pagination struct {
	Total int `json:"total"`
}

type zoneResponse struct {
	Features []zoneFeature `json:"features"`
}

type zoneFeature struct {
	Geometry   json.RawMessage `json:"geometry"`
	Properties struct {
		ID string `json:"id"`
	} `json:"properties"`
}

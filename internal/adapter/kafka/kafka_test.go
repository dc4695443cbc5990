package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/nws-alert-gateway/internal/domain"
)

func TestSerializeAlert(t *testing.T) {
	sent := time.Date(2026, 3, 1, 15, 10, 0, 0, time.UTC)
	alert := domain.Alert{
		ID:       "urn:oid:2.49.0.1.840.0.abc",
		Event:    "Tornado Warning",
		Severity: domain.SeverityExtreme,
		AreaDesc: "Cleveland County, OK",
		Sent:     sent,
		UGC:      []string{"OKC027"},
	}

	msg, err := serializeAlert(alert)
	require.NoError(t, err)

	assert.Equal(t, []byte("urn:oid:2.49.0.1.840.0.abc"), msg.Key)
	assert.Contains(t, string(msg.Value), `"event":"Tornado Warning"`)
	assert.Contains(t, string(msg.Value), `"ugc":["OKC027"]`)

	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "event", msg.Headers[0].Key)
	assert.Equal(t, []byte("Tornado Warning"), msg.Headers[0].Value)
	assert.Equal(t, "severity", msg.Headers[1].Key)
	assert.Equal(t, []byte("Extreme"), msg.Headers[1].Value)
	assert.Equal(t, "sent", msg.Headers[2].Key)
	assert.Equal(t, []byte(sent.Format(time.RFC3339)), msg.Headers[2].Value)
}

func TestSerializeAlertOmitsEmptyOptionalFields(t *testing.T) {
	msg, err := serializeAlert(domain.Alert{ID: "a1", Event: "Flood Watch", Severity: domain.SeverityModerate})
	require.NoError(t, err)

	assert.NotContains(t, string(msg.Value), `"headline"`)
	assert.NotContains(t, string(msg.Value), `"geometry"`)
}

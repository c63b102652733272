package observability

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	routingKey string
	event      any
	err        error
}

func (p *capturePublisher) Publish(ctx context.Context, routingKey string, event any) error {
	p.routingKey = routingKey
	p.event = event
	return p.err
}

func TestEventMirrorWrapsPayload(t *testing.T) {
	pub := &capturePublisher{}
	mirror := NewEventMirror(pub)
	mirror.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	ctx := WithRequestID(context.Background(), "req-1")
	require.NoError(t, mirror.PublishEvent(ctx, "notifications.created", "notification:new", map[string]string{"id": "n1"}))

	assert.Equal(t, "notifications.created", pub.routingKey)
	env, ok := pub.event.(EventEnvelope)
	require.True(t, ok)
	assert.Equal(t, "domain_event", env.EventType)
	assert.Equal(t, "notification:new", env.EventName)
	assert.Equal(t, "req-1", env.RequestID)
	assert.Equal(t, "2026-03-01T12:00:00Z", env.OccurredAt)
}

func TestEventMirrorReturnsPublishError(t *testing.T) {
	pub := &capturePublisher{err: errors.New("channel closed")}
	err := NewEventMirror(pub).PublishEvent(context.Background(), "k", "e", nil)
	assert.EqualError(t, err, "channel closed")
}

func TestNilMirrorIsNoop(t *testing.T) {
	var mirror *EventMirror
	assert.NoError(t, mirror.PublishEvent(context.Background(), "k", "e", nil))
}

func TestIPFromRequestPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	assert.Equal(t, "10.0.0.1", IPFromRequest(req))

	req = httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.168.1.5:5555"
	assert.Equal(t, "192.168.1.5", IPFromRequest(req))
}

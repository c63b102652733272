package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Publisher sends a JSON-encodable event to a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

type requestIDKey struct{}

// WithRequestID stores the request id for envelopes built from ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the id stored by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// EventMirror forwards domain events to the bus inside an EventEnvelope.
type EventMirror struct {
	publisher Publisher
	now       func() time.Time
}

// NewEventMirror returns a mirror over publisher.
func NewEventMirror(publisher Publisher) *EventMirror {
	return &EventMirror{publisher: publisher, now: time.Now}
}

// PublishEvent wraps payload and publishes it under routingKey.
func (m *EventMirror) PublishEvent(ctx context.Context, routingKey, eventName string, payload any) error {
	if m == nil || m.publisher == nil {
		return nil
	}
	envelope := EventEnvelope{
		EventType:  "domain_event",
		EventName:  eventName,
		OccurredAt: m.now().UTC().Format(time.RFC3339Nano),
		RequestID:  RequestIDFromContext(ctx),
		Payload:    payload,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		envelope.TraceID = sc.TraceID().String()
	}
	err := m.publisher.Publish(ctx, routingKey, envelope)
	if err != nil {
		IncAMQPPublishError()
	}
	return err
}

package eventing

import "context"

type contextKey string

const (
	contextKeyEventID contextKey = "eventing.event_id"
	contextKeyCorr    contextKey = "eventing.correlation_id"
)

// WithEventID sets the event id in context.
func WithEventID(ctx context.Context, eventID string) context.Context {
	return context.WithValue(ctx, contextKeyEventID, eventID)
}

// EventIDFromContext returns the id of the event being handled.
func EventIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKeyEventID).(string)
	return id, ok && id != ""
}

// WithCorrelationID sets the correlation id in context.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, contextKeyCorr, correlationID)
}

// CorrelationIDFromContext returns the correlation id, if any.
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyCorr).(string)
	return id
}

package otel

import (
	"context"
	"encoding/json"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"task-tracker/backend/internal/identity/domain"
	"task-tracker/backend/internal/telemetry"
)

// RecordEmitter is the part of otellog.Logger the adapter needs.
type RecordEmitter interface {
	Emit(ctx context.Context, record otellog.Record)
}

// NewEventEmitter returns an EventEmitter that sends auth events as OTel log records via the given LoggerProvider.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger("task-tracker.auth")}
}

// NewEventEmitterWithLogger wraps an existing logger. Nil yields a no-op emitter.
func NewEventEmitterWithLogger(logger RecordEmitter) telemetry.EventEmitter {
	if logger == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *domain.AuthEvent) error { return nil }

type otelEmitter struct {
	logger RecordEmitter
}

// Emit converts the auth event to an OTel log record: identifiers become attributes, the JSON event is the body.
func (e *otelEmitter) Emit(ctx context.Context, event *domain.AuthEvent) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	if !event.CreatedAt.IsZero() {
		rec.SetTimestamp(event.CreatedAt)
	} else {
		rec.SetTimestamp(time.Now().UTC())
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	rec.SetBody(otellog.BytesValue(body))
	rec.SetEventName(string(event.Type))
	if event.Type == domain.EventLoginFailure || event.Type == domain.EventRefreshFailure {
		rec.SetSeverity(otellog.SeverityWarn)
	} else {
		rec.SetSeverity(otellog.SeverityInfo)
	}

	attrs := []struct{ key, value string }{
		{"event_type", string(event.Type)},
		{"user_id", event.UserID},
		{"session_id", event.SessionID},
		{"reason", event.Reason},
		{"client_ip", event.IP},
	}
	for _, a := range attrs {
		if a.value != "" {
			rec.AddAttributes(otellog.String(a.key, a.value))
		}
	}
	e.logger.Emit(ctx, rec)
	return nil
}

package otel

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"task-tracker/backend/internal/identity/domain"
)

func TestNewEventEmitter_NilProvider_ReturnsNoop(t *testing.T) {
	em := NewEventEmitter(nil)
	if em == nil {
		t.Fatal("NewEventEmitter(nil) returned nil")
	}
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("noop Emit(ctx, nil): %v", err)
	}
	if err := em.Emit(context.Background(), &domain.AuthEvent{UserID: "u1"}); err != nil {
		t.Errorf("noop Emit(ctx, event): %v", err)
	}
}

func TestEmit_NilEvent_ReturnsNil(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	em := NewEventEmitter(provider)
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(ctx, nil): %v", err)
	}
}

// recordCapture stores the last Record passed to Emit for assertion.
type recordCapture struct {
	rec   otellog.Record
	calls int
}

func (r *recordCapture) Emit(ctx context.Context, rec otellog.Record) {
	r.rec = rec
	r.calls++
}

func attributes(rec otellog.Record) map[string]string {
	attrs := make(map[string]string)
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})
	return attrs
}

func TestEmit_AttributeAndBodyMapping(t *testing.T) {
	cap := &recordCapture{}
	em := NewEventEmitterWithLogger(cap)
	now := time.Now().UTC().Truncate(time.Millisecond)
	event := &domain.AuthEvent{
		ID:        "ev1",
		Type:      domain.EventLoginSuccess,
		UserID:    "user1",
		Email:     "alice@x.io",
		SessionID: "sess1",
		IP:        "10.0.0.1",
		UserAgent: "curl/8",
		CreatedAt: now,
	}
	if err := em.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	rec := cap.rec

	if !rec.Timestamp().Equal(now) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp(), now)
	}
	if rec.EventName() != "login_success" {
		t.Errorf("event name = %q", rec.EventName())
	}
	if rec.Severity() != otellog.SeverityInfo {
		t.Errorf("severity = %v, want info", rec.Severity())
	}

	var body domain.AuthEvent
	if err := json.Unmarshal(rec.Body().AsBytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body.Email != "alice@x.io" || body.UserAgent != "curl/8" {
		t.Errorf("body = %+v", body)
	}

	want := map[string]string{
		"event_type": "login_success",
		"user_id":    "user1",
		"session_id": "sess1",
		"client_ip":  "10.0.0.1",
	}
	attrs := attributes(rec)
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("attr %q = %q, want %q", k, attrs[k], v)
		}
	}
	if _, ok := attrs["reason"]; ok {
		t.Error("empty reason should not be set as an attribute")
	}
}

func TestEmit_FailureIsWarn(t *testing.T) {
	cap := &recordCapture{}
	em := NewEventEmitterWithLogger(cap)
	err := em.Emit(context.Background(), &domain.AuthEvent{
		Type:   domain.EventLoginFailure,
		Email:  "bob@x.io",
		Reason: "invalid_credentials",
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if cap.rec.Severity() != otellog.SeverityWarn {
		t.Errorf("severity = %v, want warn", cap.rec.Severity())
	}
	attrs := attributes(cap.rec)
	if attrs["reason"] != "invalid_credentials" {
		t.Errorf("reason = %q", attrs["reason"])
	}
	if attrs["user_id"] != "" {
		t.Errorf("user_id should not be set, got %q", attrs["user_id"])
	}
}

func TestEmit_ZeroTimestamp_SetsCurrentTime(t *testing.T) {
	cap := &recordCapture{}
	em := NewEventEmitterWithLogger(cap)
	before := time.Now().UTC()
	if err := em.Emit(context.Background(), &domain.AuthEvent{Type: domain.EventLogout}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	after := time.Now().UTC()
	ts := cap.rec.Timestamp()
	if ts.Before(before) || ts.After(after) {
		t.Errorf("timestamp = %v, should be between %v and %v", ts, before, after)
	}
}

func TestNewEventEmitterWithLogger_Nil(t *testing.T) {
	if err := NewEventEmitterWithLogger(nil).Emit(context.Background(), &domain.AuthEvent{}); err != nil {
		t.Errorf("noop: %v", err)
	}
}

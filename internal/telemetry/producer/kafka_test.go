package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"task-tracker/backend/internal/identity/domain"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed int
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("write without deadline")
	}
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error {
	w.closed++
	return nil
}

func TestNewKafkaProducer_Disabled(t *testing.T) {
	if p := NewKafkaProducer(nil, "topic"); p != nil {
		t.Error("no brokers should disable the producer")
	}
	if p := NewKafkaProducer([]string{"localhost:9092"}, ""); p != nil {
		t.Error("empty topic should disable the producer")
	}
	var p *KafkaProducer
	if err := p.Emit(context.Background(), &domain.AuthEvent{}); err != nil {
		t.Errorf("nil producer Emit: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("nil producer Close: %v", err)
	}
}

func TestKafkaProducer_Emit(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaProducer{writer: w, topic: "auth-events"}
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	event := &domain.AuthEvent{ID: "e1", Type: domain.EventLoginSuccess, UserID: "u1", SessionID: "s1", CreatedAt: at}

	if err := p.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("wrote %d messages, want 1", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "u1" {
		t.Errorf("key = %q, want u1", msg.Key)
	}
	if !msg.Time.Equal(at) {
		t.Errorf("time = %v, want %v", msg.Time, at)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != "login_success" {
		t.Errorf("headers = %+v", msg.Headers)
	}
	var got domain.AuthEvent
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("value: %v", err)
	}
	if got.ID != "e1" || got.SessionID != "s1" || got.Type != domain.EventLoginSuccess {
		t.Errorf("value = %+v", got)
	}
}

func TestKafkaProducer_EmitWithoutUserHasNoKey(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaProducer{writer: w, topic: "auth-events"}
	if err := p.Emit(context.Background(), &domain.AuthEvent{Type: domain.EventLoginFailure, Email: "x@y.z"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if w.msgs[0].Key != nil {
		t.Errorf("key = %q, want nil", w.msgs[0].Key)
	}
}

func TestKafkaProducer_EmitError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := &KafkaProducer{writer: w, topic: "auth-events"}
	if err := p.Emit(context.Background(), &domain.AuthEvent{Type: domain.EventLogout}); err == nil {
		t.Fatal("Emit should surface writer errors")
	}
	if err := p.Close(); err != nil || w.closed != 1 {
		t.Errorf("Close: err=%v closed=%d", err, w.closed)
	}
}

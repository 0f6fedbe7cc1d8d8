// Package telemetry fans authentication events out to best-effort sinks (OTel logs, Kafka, audit log).
package telemetry

import (
	"context"
	"errors"

	"task-tracker/backend/internal/identity/domain"
)

// EventEmitter emits auth events. Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.AuthEvent) error
}

// Fanout emits every event to each non-nil emitter in order.
// All emitters are tried; their errors are joined.
type Fanout []EventEmitter

// Emit implements EventEmitter.
func (f Fanout) Emit(ctx context.Context, event *domain.AuthEvent) error {
	if event == nil {
		return nil
	}
	var errs []error
	for _, em := range f {
		if em == nil {
			continue
		}
		if err := em.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewFanout drops nil emitters. It returns nil when nothing is left, so callers can skip emitting entirely.
func NewFanout(emitters ...EventEmitter) EventEmitter {
	out := make(Fanout, 0, len(emitters))
	for _, em := range emitters {
		if em != nil {
			out = append(out, em)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

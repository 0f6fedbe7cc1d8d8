// Package producer publishes auth events to a message broker (Kafka) for the worker to forward.
package producer

import (
	"context"

	"task-tracker/backend/internal/identity/domain"
)

// Producer emits auth events. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Emit sends a single event. Implementations may block briefly; call via telemetry.EmitAsync from handlers.
	Emit(ctx context.Context, event *domain.AuthEvent) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}

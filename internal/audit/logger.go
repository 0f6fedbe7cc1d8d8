// Package audit persists authentication events so users and operators can review account activity.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"task-tracker/backend/internal/audit/domain"
	auditrepo "task-tracker/backend/internal/audit/repository"
	identitydomain "task-tracker/backend/internal/identity/domain"
)

// UnknownIP is recorded when the event carries no client address.
const UnknownIP = "unknown"

const (
	ResourceUser    = "user"
	ResourceSession = "session"
)

// Logger writes auth events to the audit repository. It implements telemetry.EventEmitter
// so it can sit in the same fanout as the Kafka and OTel sinks.
type Logger struct {
	repo auditrepo.Repository
}

// NewLogger returns a Logger that persists to repo.
func NewLogger(repo auditrepo.Repository) *Logger {
	return &Logger{repo: repo}
}

// Emit writes one audit log entry for event. A nil repo or event is a no-op.
func (l *Logger) Emit(ctx context.Context, event *identitydomain.AuthEvent) error {
	if l == nil || l.repo == nil || event == nil {
		return nil
	}
	entry, err := FromEvent(event)
	if err != nil {
		return err
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("audit: log %s: %w", event.Type, err)
	}
	return nil
}

type eventMetadata struct {
	Email     string `json:"email,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// FromEvent maps an auth event to an audit row. Registration is recorded against the user
// resource; everything else against the session.
func FromEvent(event *identitydomain.AuthEvent) (*domain.AuditLog, error) {
	resource := ResourceSession
	if event.Type == identitydomain.EventRegister {
		resource = ResourceUser
	}
	ip := event.IP
	if ip == "" {
		ip = UnknownIP
	}
	var metadata string
	meta := eventMetadata{Email: event.Email, SessionID: event.SessionID, Reason: event.Reason}
	if meta != (eventMetadata{}) {
		b, err := json.Marshal(meta)
		if err != nil {
			return nil, err
		}
		metadata = string(b)
	}
	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return &domain.AuditLog{
		ID:        id,
		UserID:    event.UserID,
		Action:    string(event.Type),
		Resource:  resource,
		IP:        ip,
		UserAgent: event.UserAgent,
		Metadata:  metadata,
		CreatedAt: createdAt,
	}, nil
}

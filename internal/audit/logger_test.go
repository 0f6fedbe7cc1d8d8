package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"task-tracker/backend/internal/audit/domain"
	identitydomain "task-tracker/backend/internal/identity/domain"
)

// mockAuditRepo implements the audit repository interface for tests.
type mockAuditRepo struct {
	entries   []*domain.AuditLog
	createErr error
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) ListByUser(ctx context.Context, userID string, limit, offset int32) ([]*domain.AuditLog, error) {
	return nil, nil
}

func TestLogger_Emit_Login(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo)
	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	err := logger.Emit(context.Background(), &identitydomain.AuthEvent{
		ID:        "ev-1",
		Type:      identitydomain.EventLoginSuccess,
		UserID:    "user-1",
		SessionID: "sess-1",
		IP:        "192.168.1.1",
		UserAgent: "curl/8",
		CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.ID != "ev-1" || entry.UserID != "user-1" {
		t.Errorf("entry ids = %q/%q", entry.ID, entry.UserID)
	}
	if entry.Action != "login_success" || entry.Resource != ResourceSession {
		t.Errorf("action/resource = %q/%q", entry.Action, entry.Resource)
	}
	if entry.IP != "192.168.1.1" || entry.UserAgent != "curl/8" {
		t.Errorf("client = %q/%q", entry.IP, entry.UserAgent)
	}
	if entry.Metadata != `{"sessionId":"sess-1"}` {
		t.Errorf("metadata = %s", entry.Metadata)
	}
	if !entry.CreatedAt.Equal(at) {
		t.Errorf("created_at = %v, want %v", entry.CreatedAt, at)
	}
}

func TestLogger_Emit_RegisterAndDefaults(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo)
	if err := logger.Emit(context.Background(), &identitydomain.AuthEvent{Type: identitydomain.EventRegister, UserID: "u1"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	entry := repo.entries[0]
	if entry.Resource != ResourceUser {
		t.Errorf("resource = %q, want user", entry.Resource)
	}
	if entry.IP != UnknownIP {
		t.Errorf("ip = %q, want unknown", entry.IP)
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Error("id and created_at should be generated")
	}
	if entry.Metadata != "" {
		t.Errorf("metadata = %q, want empty", entry.Metadata)
	}
}

func TestLogger_Emit_FailureWithoutUser(t *testing.T) {
	repo := &mockAuditRepo{}
	err := NewLogger(repo).Emit(context.Background(), &identitydomain.AuthEvent{
		Type:   identitydomain.EventLoginFailure,
		Email:  "ghost@x.io",
		Reason: "invalid_credentials",
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	entry := repo.entries[0]
	if entry.UserID != "" {
		t.Errorf("user_id = %q, want empty", entry.UserID)
	}
	if entry.Metadata != `{"email":"ghost@x.io","reason":"invalid_credentials"}` {
		t.Errorf("metadata = %s", entry.Metadata)
	}
}

func TestLogger_Emit_RepoError(t *testing.T) {
	repo := &mockAuditRepo{createErr: errors.New("db down")}
	err := NewLogger(repo).Emit(context.Background(), &identitydomain.AuthEvent{Type: identitydomain.EventLogout})
	if err == nil {
		t.Fatal("Emit should return the repository error for the caller to log")
	}
}

func TestLogger_Emit_NilSafe(t *testing.T) {
	var l *Logger
	if err := l.Emit(context.Background(), &identitydomain.AuthEvent{}); err != nil {
		t.Errorf("nil logger: %v", err)
	}
	if err := NewLogger(nil).Emit(context.Background(), &identitydomain.AuthEvent{}); err != nil {
		t.Errorf("nil repo: %v", err)
	}
	if err := NewLogger(&mockAuditRepo{}).Emit(context.Background(), nil); err != nil {
		t.Errorf("nil event: %v", err)
	}
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"task-tracker/backend/internal/logging"
	"task-tracker/backend/internal/server/middleware"
	"task-tracker/backend/internal/session/domain"
)

type fakeLister struct {
	list []*domain.Session
	err  error
	got  string
}

func (f *fakeLister) ListSessions(ctx context.Context, userID string) ([]*domain.Session, error) {
	f.got = userID
	return f.list, f.err
}

func serve(h *Handler, ctx context.Context) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/auth/sessions", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.Routes()[0].Handler.ServeHTTP(rec, req)
	return rec
}

func TestHandler_List(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	lister := &fakeLister{list: []*domain.Session{
		domain.NewSession("u1", "rt", time.Hour, domain.Metadata{UserAgent: "curl/8", IPAddress: "10.0.0.1"}, now),
	}}
	h := NewHandler(lister, logging.Discard())
	if !h.Routes()[0].Protected {
		t.Fatal("session list must be protected")
	}

	rec := serve(h, middleware.WithIdentity(context.Background(), "u1", "alice"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if lister.got != "u1" {
		t.Errorf("listed for %q", lister.got)
	}
	var body struct {
		Sessions []map[string]any `json:"sessions"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Sessions) != 1 || body.Sessions[0]["userAgent"] != "curl/8" {
		t.Errorf("sessions = %v", body.Sessions)
	}
	if _, leaked := body.Sessions[0]["refreshTokenHash"]; leaked {
		t.Error("token hash must not be exposed")
	}
}

func TestHandler_ListErrors(t *testing.T) {
	h := NewHandler(&fakeLister{err: errors.New("db down")}, logging.Discard())
	if rec := serve(h, context.Background()); rec.Code != http.StatusUnauthorized {
		t.Errorf("no identity: status = %d", rec.Code)
	}
	if rec := serve(h, middleware.WithIdentity(context.Background(), "u1", "alice")); rec.Code != http.StatusInternalServerError {
		t.Errorf("store error: status = %d", rec.Code)
	}
}

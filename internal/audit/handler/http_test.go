package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"task-tracker/backend/internal/audit/domain"
	"task-tracker/backend/internal/logging"
	"task-tracker/backend/internal/server/middleware"
)

type fakeRepo struct {
	logs          []*domain.AuditLog
	user          string
	limit, offset int32
}

func (f *fakeRepo) ListByUser(ctx context.Context, userID string, limit, offset int32) ([]*domain.AuditLog, error) {
	f.user, f.limit, f.offset = userID, limit, offset
	return f.logs, nil
}

func get(h *Handler, target string, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if authed {
		req = req.WithContext(middleware.WithIdentity(req.Context(), "u1", "alice"))
	}
	rec := httptest.NewRecorder()
	h.Routes()[0].Handler.ServeHTTP(rec, req)
	return rec
}

func TestHandler_ListActivity(t *testing.T) {
	repo := &fakeRepo{logs: []*domain.AuditLog{{
		ID: "a1", UserID: "u1", Action: "login_success", Resource: "session", IP: "10.0.0.1",
		Metadata: `{"sessionId":"s1"}`, CreatedAt: time.Now(),
	}}}
	h := NewHandler(repo, logging.Discard())

	rec := get(h, "/auth/activity", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if repo.user != "u1" || repo.limit != 50 || repo.offset != 0 {
		t.Errorf("ListByUser(%q, %d, %d)", repo.user, repo.limit, repo.offset)
	}
	var body struct {
		Entries []struct {
			Action   string         `json:"action"`
			Metadata map[string]any `json:"metadata"`
		} `json:"entries"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Entries) != 1 || body.Entries[0].Metadata["sessionId"] != "s1" {
		t.Errorf("entries = %+v", body.Entries)
	}
}

func TestHandler_Pagination(t *testing.T) {
	repo := &fakeRepo{}
	h := NewHandler(repo, logging.Discard())

	if rec := get(h, "/auth/activity?limit=1000&offset=20", true); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if repo.limit != 200 || repo.offset != 20 {
		t.Errorf("limit/offset = %d/%d, want 200/20", repo.limit, repo.offset)
	}
	for _, q := range []string{"?limit=0", "?limit=abc", "?offset=-1"} {
		if rec := get(h, "/auth/activity"+q, true); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", q, rec.Code)
		}
	}
	if rec := get(h, "/auth/activity", false); rec.Code != http.StatusUnauthorized {
		t.Errorf("no identity: status = %d", rec.Code)
	}
}

// Package handler serves the caller's authentication activity from the audit log.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"task-tracker/backend/internal/audit/domain"
	"task-tracker/backend/internal/server/httpx"
	"task-tracker/backend/internal/server/middleware"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Lister reads a user's audit entries, newest first.
type Lister interface {
	ListByUser(ctx context.Context, userID string, limit, offset int32) ([]*domain.AuditLog, error)
}

// Handler serves GET /auth/activity.
type Handler struct {
	repo Lister
	log  *slog.Logger
}

// NewHandler returns a Handler reading from repo.
func NewHandler(repo Lister, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{repo: repo, log: log}
}

// Routes lists the activity endpoints.
func (h *Handler) Routes() []httpx.Route {
	return []httpx.Route{
		{Pattern: "GET /auth/activity", Handler: http.HandlerFunc(h.list), Protected: true},
	}
}

type entryView struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	Resource  string          `json:"resource"`
	IP        string          `json:"ip"`
	UserAgent string          `json:"userAgent,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

type listResponse struct {
	Entries []entryView `json:"entries"`
	Limit   int32       `json:"limit"`
	Offset  int32       `json:"offset"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok || userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authorization", nil)
		return
	}
	limit, offset, fields := pagination(r)
	if fields != nil {
		httpx.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", fields)
		return
	}
	logs, err := h.repo.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		h.log.ErrorContext(r.Context(), "list activity failed", "user_id", userID, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An unexpected error occurred", nil)
		return
	}
	out := listResponse{Entries: make([]entryView, 0, len(logs)), Limit: limit, Offset: offset}
	for _, l := range logs {
		v := entryView{
			ID:        l.ID,
			Action:    l.Action,
			Resource:  l.Resource,
			IP:        l.IP,
			UserAgent: l.UserAgent,
			CreatedAt: l.CreatedAt,
		}
		if l.Metadata != "" && json.Valid([]byte(l.Metadata)) {
			v.Metadata = json.RawMessage(l.Metadata)
		}
		out.Entries = append(out.Entries, v)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// pagination reads limit (default 50, capped at 200) and offset from the query.
func pagination(r *http.Request) (limit, offset int32, fields map[string]string) {
	limit = defaultLimit
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 1 {
			fields = map[string]string{"limit": "limit must be a positive integer"}
			return 0, 0, fields
		}
		limit = int32(min(n, maxLimit))
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			fields = map[string]string{"offset": "offset must not be negative"}
			return 0, 0, fields
		}
		offset = int32(n)
	}
	return limit, offset, nil
}

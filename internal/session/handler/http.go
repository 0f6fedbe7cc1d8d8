// Package handler serves the caller's session list.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"task-tracker/backend/internal/server/httpx"
	"task-tracker/backend/internal/server/middleware"
	"task-tracker/backend/internal/session/domain"
)

// Lister returns a user's valid sessions.
type Lister interface {
	ListSessions(ctx context.Context, userID string) ([]*domain.Session, error)
}

// Handler serves GET /auth/sessions.
type Handler struct {
	sessions Lister
	log      *slog.Logger
}

// NewHandler returns a Handler backed by sessions.
func NewHandler(sessions Lister, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{sessions: sessions, log: log}
}

// Routes lists the session endpoints. All require an access token.
func (h *Handler) Routes() []httpx.Route {
	return []httpx.Route{
		{Pattern: "GET /auth/sessions", Handler: http.HandlerFunc(h.list), Protected: true},
	}
}

type sessionView struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	LastUsedAt time.Time `json:"lastUsedAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	UserAgent  string    `json:"userAgent,omitempty"`
	IPAddress  string    `json:"ipAddress,omitempty"`
}

type listResponse struct {
	Sessions []sessionView `json:"sessions"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok || userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authorization", nil)
		return
	}
	list, err := h.sessions.ListSessions(r.Context(), userID)
	if err != nil {
		h.log.ErrorContext(r.Context(), "list sessions failed", "user_id", userID, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An unexpected error occurred", nil)
		return
	}
	out := listResponse{Sessions: make([]sessionView, 0, len(list))}
	for _, s := range list {
		out.Sessions = append(out.Sessions, sessionView{
			ID:         s.ID,
			CreatedAt:  s.CreatedAt,
			LastUsedAt: s.LastUsedAt,
			ExpiresAt:  s.ExpiresAt,
			UserAgent:  s.UserAgent,
			IPAddress:  s.IPAddress,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

package repository

import (
	"context"
	"errors"
	"time"

	"task-tracker/backend/internal/session/domain"
)

// ErrStaleRefreshToken is returned by Rotate when the session no longer holds the
// presented refresh token or is no longer active.
var ErrStaleRefreshToken = errors.New("session no longer holds the presented refresh token")

// Repository defines persistence for sessions. Lookups return (nil, nil) when no row matches.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// GetByRefreshToken returns the session holding refreshToken for userID, active or not.
	GetByRefreshToken(ctx context.Context, refreshToken, userID string) (*domain.Session, error)
	// Rotate swaps the session's refresh token from presented to next only if it still holds
	// presented and is active; otherwise it returns ErrStaleRefreshToken.
	Rotate(ctx context.Context, sessionID, presented, next string, expiresAt, usedAt time.Time) error
	// InvalidateAllByUser deactivates every active session of userID and returns how many changed.
	InvalidateAllByUser(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id string) error
	// DeleteExpiredBefore removes sessions whose expiry is before t.
	DeleteExpiredBefore(ctx context.Context, t time.Time) (int64, error)
	// ListActiveByUser returns the user's sessions valid at now, most recently used first.
	ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error)
}

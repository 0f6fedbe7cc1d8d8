package domain

import (
	"time"

	"github.com/google/uuid"

	"task-tracker/backend/internal/security"
)

// Metadata describes the client a session was opened from.
type Metadata struct {
	UserAgent string
	IPAddress string
}

// Session binds one refresh token to a user. Only the SHA-256 of the token is kept;
// at most one session holds a given token hash at any time.
type Session struct {
	ID               string
	UserID           string
	RefreshTokenHash string
	ExpiresAt        time.Time
	Active           bool
	LastUsedAt       time.Time
	CreatedAt        time.Time
	UserAgent        string
	IPAddress        string
}

// NewSession returns an active session for userID holding refreshToken until now+ttl.
func NewSession(userID, refreshToken string, ttl time.Duration, meta Metadata, now time.Time) *Session {
	now = now.UTC()
	return &Session{
		ID:               uuid.NewString(),
		UserID:           userID,
		RefreshTokenHash: security.HashRefreshToken(refreshToken),
		ExpiresAt:        now.Add(ttl),
		Active:           true,
		LastUsedAt:       now,
		CreatedAt:        now,
		UserAgent:        truncate(meta.UserAgent, 512),
		IPAddress:        truncate(meta.IPAddress, 64),
	}
}

// IsExpired reports whether the session has passed its expiry at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// IsValid reports whether the session is active and unexpired at now.
func (s *Session) IsValid(now time.Time) bool {
	return s.Active && !s.IsExpired(now)
}

// Holds reports whether the session currently stores refreshToken.
func (s *Session) Holds(refreshToken string) bool {
	return security.RefreshTokenHashEqual(refreshToken, s.RefreshTokenHash)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

package domain

import "time"

// EventType names an authentication event.
type EventType string

const (
	EventRegister       EventType = "register"
	EventLoginSuccess   EventType = "login_success"
	EventLoginFailure   EventType = "login_failure"
	EventRefresh        EventType = "token_refresh"
	EventRefreshFailure EventType = "token_refresh_failure"
	EventLogout         EventType = "logout"
	EventSessionRevoked EventType = "session_revoked"
)

// AuthEvent is one authentication outcome, fanned out to the audit log and telemetry sinks.
// It never carries passwords or token values.
type AuthEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"eventType"`
	UserID    string    `json:"userId,omitempty"`
	Email     string    `json:"email,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Client describes the caller of an auth operation.
type Client struct {
	IP        string
	UserAgent string
}

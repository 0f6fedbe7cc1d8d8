package domain

import "time"

// AuditLog represents one persisted authentication event.
type AuditLog struct {
	ID        string
	UserID    string // empty for failed logins of unknown accounts
	Action    string
	Resource  string
	IP        string
	UserAgent string
	Metadata  string // JSON object, may be empty
	CreatedAt time.Time
}

package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrEmailTaken is returned by repositories when the e-mail unique index rejects an insert.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUsernameTaken is returned by repositories when the username unique index rejects an insert.
	ErrUsernameTaken = errors.New("username already taken")
)

// User is the account entity. Username and Email are globally unique.
type User struct {
	ID             string
	Username       string
	Email          string
	FirstName      string
	LastName       string
	PasswordHash   string
	ProfilePicture string // optional URL
	Active         bool
	EmailVerified  bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastLoginAt    *time.Time // nil until first login
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.ID == "" {
		return errors.New("id is required")
	}
	if u.Username == "" {
		return errors.New("username is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	return nil
}

// LastLoginOlderThan reports whether the last login is unset or more than d before now.
func (u *User) LastLoginOlderThan(now time.Time, d time.Duration) bool {
	return u.LastLoginAt == nil || now.Sub(*u.LastLoginAt) > d
}

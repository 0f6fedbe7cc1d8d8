package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"task-tracker/backend/internal/security"
)

// Reasons carried by optional-auth outcomes.
const (
	ReasonNoToken          = "no token"
	ReasonInvalidToken     = "invalid token"
	ReasonTokenExpired     = "token expired"
	ReasonWrongTokenType   = "wrong token type"
	ReasonUserNotFound     = "user not found"
	ReasonTokenMismatch    = "token validation failed"
	ReasonAccountInactive  = "account inactive"
	ReasonCheckFailed      = "authentication check failed"
	msgOptionalAuthSuccess = MsgAuthenticated
)

// Outcome is the result of OptionalAuth. It is one of Authenticated, Unauthenticated,
// BadRequest, NotFound or Failed.
type Outcome interface {
	Reason() string
	outcome()
}

// Authenticated carries the caller's profile.
type Authenticated struct{ User Profile }

// Unauthenticated means no usable identity was presented.
type Unauthenticated struct{ Why string }

// BadRequest means a token of the wrong kind was presented.
type BadRequest struct{ Why string }

// NotFound means the token names a user that no longer exists.
type NotFound struct{ Why string }

// Failed means the check itself broke.
type Failed struct{ Why string }

func (Authenticated) Reason() string     { return msgOptionalAuthSuccess }
func (o Unauthenticated) Reason() string { return o.Why }
func (o BadRequest) Reason() string      { return o.Why }
func (o NotFound) Reason() string        { return o.Why }
func (o Failed) Reason() string          { return o.Why }

func (Authenticated) outcome()   {}
func (Unauthenticated) outcome() {}
func (BadRequest) outcome()      {}
func (NotFound) outcome()        {}
func (Failed) outcome()          {}

// OptionalAuth classifies the Authorization header value without requiring it to be present.
// It never returns an error; panics and store failures become Failed.
func (s *AuthService) OptionalAuth(ctx context.Context, authorization string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.log.ErrorContext(ctx, "auth: optional auth panic", "panic", fmt.Sprint(r))
			out = Failed{Why: ReasonCheckFailed}
		}
	}()

	token := security.BearerToken(authorization)
	if strings.TrimSpace(token) == "" {
		return Unauthenticated{Why: ReasonNoToken}
	}
	claims, err := s.tokens.Parse(token)
	switch {
	case errors.Is(err, security.ErrExpiredToken):
		return Unauthenticated{Why: ReasonTokenExpired}
	case err != nil:
		return Unauthenticated{Why: ReasonInvalidToken}
	}
	if claims.Kind() != security.KindAccess {
		return BadRequest{Why: ReasonWrongTokenType}
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		s.log.ErrorContext(ctx, "auth: optional auth user lookup failed", "user_id", claims.UserID, "error", err)
		return Failed{Why: ReasonCheckFailed}
	}
	if user == nil {
		return NotFound{Why: ReasonUserNotFound}
	}
	if user.Username != claims.Subject {
		return Unauthenticated{Why: ReasonTokenMismatch}
	}
	if !user.Active {
		return Unauthenticated{Why: ReasonAccountInactive}
	}
	now := s.now()
	if user.LastLoginOlderThan(now, s.debounce) {
		if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
			s.log.ErrorContext(ctx, "auth: optional auth last login update failed", "user_id", user.ID, "error", err)
			return Failed{Why: ReasonCheckFailed}
		}
		user.LastLoginAt = &now
	}
	return Authenticated{User: ProfileOf(user)}
}

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"task-tracker/backend/internal/identity/service"
	"task-tracker/backend/internal/server/httpx"
)

// Error codes written in error bodies.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeUserAlreadyExists   = "USER_ALREADY_EXISTS"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeAccountInactive     = "ACCOUNT_INACTIVE"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	CodeInvalidTokenType    = "INVALID_TOKEN_TYPE"
	CodeRefreshNotFound     = "REFRESH_TOKEN_NOT_FOUND"
	CodeRefreshExpired      = "REFRESH_TOKEN_EXPIRED"
	CodeInternal            = "INTERNAL_SERVER_ERROR"
)

const msgInternal = "An unexpected error occurred"

type errorMapping struct {
	status int
	code   string
}

var kindMappings = []struct {
	kind error
	errorMapping
}{
	{service.ErrValidation, errorMapping{http.StatusBadRequest, CodeValidation}},
	{service.ErrUserAlreadyExists, errorMapping{http.StatusConflict, CodeUserAlreadyExists}},
	{service.ErrInvalidCredentials, errorMapping{http.StatusUnauthorized, CodeInvalidCredentials}},
	{service.ErrAccountInactive, errorMapping{http.StatusForbidden, CodeAccountInactive}},
	{service.ErrUserNotFound, errorMapping{http.StatusNotFound, CodeUserNotFound}},
	{service.ErrUnauthorizedAccess, errorMapping{http.StatusUnauthorized, CodeUnauthorized}},
	{service.ErrInvalidRefreshToken, errorMapping{http.StatusUnauthorized, CodeInvalidRefreshToken}},
	{service.ErrInvalidTokenType, errorMapping{http.StatusBadRequest, CodeInvalidTokenType}},
	{service.ErrRefreshTokenNotFound, errorMapping{http.StatusUnauthorized, CodeRefreshNotFound}},
	{service.ErrRefreshTokenExpired, errorMapping{http.StatusUnauthorized, CodeRefreshExpired}},
}

// mapError returns the status and code for err. Unknown errors map to 500.
func mapError(err error) (int, string) {
	for _, m := range kindMappings {
		if errors.Is(err, m.kind) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

// writeServiceError writes err as an error body and returns the code written.
// Internal errors are logged and never echoed.
func writeServiceError(ctx context.Context, w http.ResponseWriter, log *slog.Logger, err error) string {
	status, code := mapError(err)
	if status == http.StatusInternalServerError {
		log.ErrorContext(ctx, "auth handler: internal error", "error", err)
		httpx.WriteError(w, status, code, msgInternal, nil)
		return code
	}
	var fields map[string]string
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		fields = ve.Fields
	}
	httpx.WriteError(w, status, code, service.Message(err), fields)
	return code
}

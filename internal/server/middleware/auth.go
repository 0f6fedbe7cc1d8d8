package middleware

import (
	"errors"
	"net/http"

	"task-tracker/backend/internal/security"
	"task-tracker/backend/internal/server/httpx"
)

// AccessTokenParser validates a token and returns its claims.
type AccessTokenParser interface {
	Parse(token string) (*security.Claims, error)
}

// RequireAccessToken validates the Bearer access token from the Authorization header and sets
// user_id and username in the request context. Missing, invalid, expired or refresh-kind tokens get 401.
func RequireAccessToken(tokens AccessTokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := security.BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				httpx.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authorization", nil)
				return
			}
			claims, err := tokens.Parse(token)
			if err != nil {
				msg := "Missing or invalid authorization"
				if errors.Is(err, security.ErrExpiredToken) {
					msg = "Token expired"
				}
				httpx.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", msg, nil)
				return
			}
			if claims.Kind() != security.KindAccess {
				httpx.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Access token required", nil)
				return
			}
			ctx := WithIdentity(r.Context(), claims.UserID, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Package handler exposes the auth operations over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	identitydomain "task-tracker/backend/internal/identity/domain"
	"task-tracker/backend/internal/identity/service"
	"task-tracker/backend/internal/metrics"
	"task-tracker/backend/internal/security"
	"task-tracker/backend/internal/server/httpx"
	"task-tracker/backend/internal/server/middleware"
)

// AuthService is the slice of service.AuthService the handler calls.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.RegisterResult, error)
	Login(ctx context.Context, in service.LoginInput) (*service.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string, client identitydomain.Client) (*service.TokenPair, error)
	Logout(ctx context.Context, accessToken string, client identitydomain.Client) *service.LogoutResult
	CurrentUser(ctx context.Context, userID string) (*service.Profile, error)
	OptionalAuth(ctx context.Context, authorization string) service.Outcome
}

// Handler serves /auth/*.
type Handler struct {
	auth    AuthService
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewHandler returns a Handler. metrics may be nil.
func NewHandler(auth AuthService, m *metrics.Metrics, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{auth: auth, metrics: m, log: log}
}

// Routes lists the auth endpoints.
func (h *Handler) Routes() []httpx.Route {
	return []httpx.Route{
		{Pattern: "POST /auth/register", Handler: http.HandlerFunc(h.register)},
		{Pattern: "POST /auth/login", Handler: http.HandlerFunc(h.login)},
		{Pattern: "POST /auth/refresh", Handler: http.HandlerFunc(h.refresh)},
		{Pattern: "POST /auth/logout", Handler: http.HandlerFunc(h.logout)},
		{Pattern: "GET /auth/me", Handler: http.HandlerFunc(h.me), Protected: true},
		{Pattern: "GET /auth/me/optional", Handler: http.HandlerFunc(h.meOptional)},
	}
}

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type registerResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
	Success bool   `json:"success"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken"`
	TokenType        string `json:"tokenType"`
	ExpiresIn        int64  `json:"expiresIn"`
	RefreshExpiresIn int64  `json:"refreshExpiresIn"`
}

type loginResponse struct {
	tokenResponse
	User service.Profile `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

type optionalAuthResponse struct {
	Authenticated bool             `json:"authenticated"`
	User          *service.Profile `json:"user"`
	Message       string           `json:"message"`
	Status        int              `json:"status"`
}

func tokensOf(p *service.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		TokenType:        p.TokenType,
		ExpiresIn:        p.ExpiresIn,
		RefreshExpiresIn: p.RefreshExpiresIn,
	}
}

func clientOf(r *http.Request) identitydomain.Client {
	return identitydomain.Client{IP: middleware.ClientIP(r), UserAgent: r.UserAgent()}
}

func (h *Handler) badBody(w http.ResponseWriter, op string) {
	h.metrics.AuthOutcome(op, CodeValidation)
	httpx.WriteError(w, http.StatusBadRequest, CodeValidation, "Malformed request body", nil)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	code := writeServiceError(r.Context(), w, h.log, err)
	h.metrics.AuthOutcome(op, code)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		h.badBody(w, "register")
		return
	}
	res, err := h.auth.Register(r.Context(), service.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
		Client:    clientOf(r),
	})
	if err != nil {
		h.fail(w, r, "register", err)
		return
	}
	h.metrics.AuthOutcome("register", "OK")
	httpx.WriteJSON(w, http.StatusCreated, registerResponse{Message: res.Message, UserID: res.UserID, Success: true})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		h.badBody(w, "login")
		return
	}
	res, err := h.auth.Login(r.Context(), service.LoginInput{Email: req.Email, Password: req.Password, Client: clientOf(r)})
	if err != nil {
		h.fail(w, r, "login", err)
		return
	}
	h.metrics.AuthOutcome("login", "OK")
	httpx.WriteJSON(w, http.StatusOK, loginResponse{tokenResponse: tokensOf(&res.TokenPair), User: res.User})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		h.badBody(w, "refresh")
		return
	}
	if req.RefreshToken == "" {
		h.metrics.AuthOutcome("refresh", CodeValidation)
		httpx.WriteError(w, http.StatusBadRequest, CodeValidation, "Validation failed",
			map[string]string{"refreshToken": "Refresh token is required"})
		return
	}
	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken, clientOf(r))
	if err != nil {
		h.fail(w, r, "refresh", err)
		return
	}
	h.metrics.AuthOutcome("refresh", "OK")
	httpx.WriteJSON(w, http.StatusOK, tokensOf(pair))
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	res := h.auth.Logout(r.Context(), bearer(r), clientOf(r))
	h.metrics.AuthOutcome("logout", "OK")
	httpx.WriteJSON(w, http.StatusOK, messageResponse{Message: res.Message, Success: true})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.fail(w, r, "me", service.ErrUnauthorizedAccess)
		return
	}
	p, err := h.auth.CurrentUser(r.Context(), userID)
	if err != nil {
		h.fail(w, r, "me", err)
		return
	}
	h.metrics.AuthOutcome("me", "OK")
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) meOptional(w http.ResponseWriter, r *http.Request) {
	out := h.auth.OptionalAuth(r.Context(), r.Header.Get("Authorization"))
	resp := optionalAuthResponse{Message: out.Reason()}
	switch o := out.(type) {
	case service.Authenticated:
		resp.Authenticated = true
		resp.User = &o.User
		resp.Status = http.StatusOK
	case service.Unauthenticated:
		resp.Status = http.StatusUnauthorized
		if o.Why == service.ReasonAccountInactive {
			resp.Status = http.StatusForbidden
		}
	case service.BadRequest:
		resp.Status = http.StatusBadRequest
	case service.NotFound:
		resp.Status = http.StatusNotFound
	case service.Failed:
		resp.Status = http.StatusInternalServerError
	default:
		resp.Status = http.StatusInternalServerError
		resp.Message = service.ReasonCheckFailed
	}
	h.metrics.AuthOutcome("me_optional", http.StatusText(resp.Status))
	httpx.WriteJSON(w, resp.Status, resp)
}

func bearer(r *http.Request) string {
	return security.BearerToken(r.Header.Get("Authorization"))
}

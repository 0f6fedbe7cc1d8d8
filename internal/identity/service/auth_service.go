package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	identitydomain "task-tracker/backend/internal/identity/domain"
	"task-tracker/backend/internal/security"
	sessiondomain "task-tracker/backend/internal/session/domain"
	sessionrepo "task-tracker/backend/internal/session/repository"
	"task-tracker/backend/internal/telemetry"
	userdomain "task-tracker/backend/internal/user/domain"
)

// Client-facing messages.
const (
	MsgRegistered       = "User registered successfully"
	MsgLoggedOut        = "Logged out successfully"
	MsgAuthenticated    = "User authenticated successfully"
	msgEmailTaken       = "Email already registered"
	msgUsernameTaken    = "Username already taken"
	msgInvalidCreds     = "Invalid credentials"
	msgInactive         = "Account is inactive"
	msgInvalidRefresh   = "Invalid refresh token"
	msgInvalidTokenType = "Invalid token type"
	msgUserNotFound     = "User not found"
	msgRefreshNotFound  = "Refresh token not found"
	msgRefreshExpired   = "Refresh token expired"
	msgUnauthorized     = "Unauthorized"
)

// TokenType is the scheme clients must use when presenting access tokens.
const TokenType = "Bearer"

// DefaultLastLoginDebounce is how stale last_login_at must be before optional auth refreshes it.
const DefaultLastLoginDebounce = 5 * time.Minute

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	GetByUsername(ctx context.Context, username string) (*userdomain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, u *userdomain.User) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	GetByRefreshToken(ctx context.Context, refreshToken, userID string) (*sessiondomain.Session, error)
	Rotate(ctx context.Context, sessionID, presented, next string, expiresAt, usedAt time.Time) error
	InvalidateAllByUser(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id string) error
	DeleteExpiredBefore(ctx context.Context, t time.Time) (int64, error)
	ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]*sessiondomain.Session, error)
}

// PasswordHasher hashes and verifies passwords off the request path.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, hash, password string) (bool, error)
	VerifyDummy(ctx context.Context, password string) error
}

// Profile is the public projection of a user.
type Profile struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	FullName       string     `json:"fullName"`
	ProfilePicture string     `json:"profilePicture,omitempty"`
	Active         bool       `json:"isActive"`
	EmailVerified  bool       `json:"emailVerified"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastLoginAt    *time.Time `json:"lastLoginAt,omitempty"`
}

// ProfileOf projects u. It never exposes the password hash.
func ProfileOf(u *userdomain.User) Profile {
	return Profile{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		FullName:       u.FullName(),
		ProfilePicture: u.ProfilePicture,
		Active:         u.Active,
		EmailVerified:  u.EmailVerified,
		CreatedAt:      u.CreatedAt,
		LastLoginAt:    u.LastLoginAt,
	}
}

// RegisterInput is the registration request.
type RegisterInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
	Client    identitydomain.Client
}

// RegisterResult acknowledges a registration. No tokens are issued.
type RegisterResult struct {
	UserID  string
	Message string
}

// LoginInput is the login request.
type LoginInput struct {
	Email    string
	Password string
	Client   identitydomain.Client
}

// TokenPair is returned by Login and Refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	TokenType        string
	ExpiresIn        int64 // access token lifetime in seconds
	RefreshExpiresIn int64 // refresh token lifetime in seconds
	AccessExpiresAt  time.Time
	SessionID        string
}

// LoginResult is a token pair plus the caller's profile.
type LoginResult struct {
	TokenPair
	User Profile
}

// LogoutResult always reports success.
type LogoutResult struct {
	Message         string
	SessionsRevoked int64
}

// Option configures an AuthService.
type Option func(*AuthService)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *AuthService) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides time.Now for tests.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithEvents sets the sink auth events are emitted to asynchronously.
func WithEvents(e telemetry.EventEmitter) Option {
	return func(s *AuthService) { s.events = e }
}

// WithLastLoginDebounce sets how stale last_login_at must be before optional auth refreshes it.
func WithLastLoginDebounce(d time.Duration) Option {
	return func(s *AuthService) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// AuthService implements register, login, refresh, logout, current-user and the optional-auth probe.
type AuthService struct {
	users    UserRepo
	sessions SessionRepo
	hasher   PasswordHasher
	tokens   *security.TokenProvider
	events   telemetry.EventEmitter
	log      *slog.Logger
	now      func() time.Time
	debounce time.Duration
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(users UserRepo, sessions SessionRepo, hasher PasswordHasher, tokens *security.TokenProvider, opts ...Option) *AuthService {
	s := &AuthService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		tokens:   tokens,
		log:      slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
		debounce: DefaultLastLoginDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register validates the input, rejects taken e-mails (checked first) and usernames, hashes the
// password and stores an active, unverified user.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := validateRegister(&in); err != nil {
		return nil, err
	}
	taken, err := s.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, newError(ErrUserAlreadyExists, msgEmailTaken)
	}
	taken, err = s.users.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, newError(ErrUserAlreadyExists, msgUsernameTaken)
	}
	hashed, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	user := &userdomain.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hashed,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, userdomain.ErrEmailTaken):
			return nil, newError(ErrUserAlreadyExists, msgEmailTaken)
		case errors.Is(err, userdomain.ErrUsernameTaken):
			return nil, newError(ErrUserAlreadyExists, msgUsernameTaken)
		}
		return nil, err
	}
	s.log.InfoContext(ctx, "auth: user registered", "user_id", user.ID)
	s.emit(ctx, identitydomain.EventRegister, in.Client, func(e *identitydomain.AuthEvent) {
		e.UserID = user.ID
		e.Email = user.Email
	})
	return &RegisterResult{UserID: user.ID, Message: MsgRegistered}, nil
}

// Login verifies the credentials, issues an access and refresh token and opens a session holding
// the refresh token. Unknown e-mail and wrong password fail identically.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateLogin(&in); err != nil {
		return nil, err
	}
	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		if err := s.hasher.VerifyDummy(ctx, in.Password); err != nil {
			return nil, err
		}
		s.loginFailed(ctx, in, "", "invalid_credentials")
		return nil, newError(ErrInvalidCredentials, msgInvalidCreds)
	}
	ok, err := s.hasher.Verify(ctx, user.PasswordHash, in.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.loginFailed(ctx, in, user.ID, "invalid_credentials")
		return nil, newError(ErrInvalidCredentials, msgInvalidCreds)
	}
	if !user.Active {
		s.loginFailed(ctx, in, user.ID, "account_inactive")
		return nil, newError(ErrAccountInactive, msgInactive)
	}

	pair, refreshToken, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}
	now := s.now()
	sess := sessiondomain.NewSession(user.ID, refreshToken, s.tokens.RefreshTTL(), sessiondomain.Metadata{
		UserAgent: in.Client.UserAgent,
		IPAddress: in.Client.IP,
	}, now)
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	pair.SessionID = sess.ID
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.log.WarnContext(ctx, "auth: update last login failed", "user_id", user.ID, "error", err)
	} else {
		user.LastLoginAt = &now
	}
	s.log.InfoContext(ctx, "auth: login", "user_id", user.ID, "session_id", sess.ID)
	s.emit(ctx, identitydomain.EventLoginSuccess, in.Client, func(e *identitydomain.AuthEvent) {
		e.UserID = user.ID
		e.SessionID = sess.ID
	})
	return &LoginResult{TokenPair: *pair, User: ProfileOf(user)}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, in LoginInput, userID, reason string) {
	s.log.InfoContext(ctx, "auth: login failed", "reason", reason)
	s.emit(ctx, identitydomain.EventLoginFailure, in.Client, func(e *identitydomain.AuthEvent) {
		e.UserID = userID
		e.Email = in.Email
		e.Reason = reason
	})
}

// Refresh exchanges a refresh token for a new pair and rotates the session row that holds it.
// The checks run in order and each has its own error kind; the rotation is a compare-and-swap,
// so of two concurrent refreshes with the same token only one succeeds.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client identitydomain.Client) (*TokenPair, error) {
	pair, sessionID, userID, err := s.refresh(ctx, refreshToken)
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			s.emit(ctx, identitydomain.EventRefreshFailure, client, func(e *identitydomain.AuthEvent) {
				e.UserID = userID
				e.SessionID = sessionID
				e.Reason = se.Kind.Error()
			})
		}
		return nil, err
	}
	s.emit(ctx, identitydomain.EventRefresh, client, func(e *identitydomain.AuthEvent) {
		e.UserID = userID
		e.SessionID = sessionID
	})
	return pair, nil
}

func (s *AuthService) refresh(ctx context.Context, refreshToken string) (pair *TokenPair, sessionID, userID string, err error) {
	claims, err := s.tokens.Parse(refreshToken)
	if err != nil {
		return nil, "", "", newError(ErrInvalidRefreshToken, msgInvalidRefresh)
	}
	if claims.Kind() != security.KindRefresh {
		return nil, "", "", newError(ErrInvalidTokenType, msgInvalidTokenType)
	}
	user, err := s.users.GetByUsername(ctx, claims.Subject)
	if err != nil {
		return nil, "", "", err
	}
	if user == nil {
		return nil, "", "", newError(ErrUserNotFound, msgUserNotFound)
	}
	if !user.Active {
		return nil, "", user.ID, newError(ErrAccountInactive, msgInactive)
	}
	sess, err := s.sessions.GetByRefreshToken(ctx, refreshToken, user.ID)
	if err != nil {
		return nil, "", user.ID, err
	}
	if sess == nil || sess.UserID != user.ID || !sess.Holds(refreshToken) {
		return nil, "", user.ID, newError(ErrRefreshTokenNotFound, msgRefreshNotFound)
	}
	now := s.now()
	if !sess.IsValid(now) {
		if err := s.sessions.Delete(ctx, sess.ID); err != nil {
			s.log.WarnContext(ctx, "auth: delete expired session failed", "session_id", sess.ID, "error", err)
		}
		return nil, sess.ID, user.ID, newError(ErrRefreshTokenExpired, msgRefreshExpired)
	}

	pair, next, err := s.issuePair(user)
	if err != nil {
		return nil, sess.ID, user.ID, err
	}
	err = s.sessions.Rotate(ctx, sess.ID, refreshToken, next, now.Add(s.tokens.RefreshTTL()), now)
	if errors.Is(err, sessionrepo.ErrStaleRefreshToken) {
		s.log.WarnContext(ctx, "auth: refresh lost rotation race", "session_id", sess.ID, "user_id", user.ID)
		return nil, sess.ID, user.ID, newError(ErrRefreshTokenNotFound, msgRefreshNotFound)
	}
	if err != nil {
		return nil, sess.ID, user.ID, err
	}
	pair.SessionID = sess.ID
	return pair, sess.ID, user.ID, nil
}

// Logout invalidates every session of the user named by a valid access token. It always succeeds:
// a missing, invalid or non-access token is treated as already logged out, and store errors are only logged.
func (s *AuthService) Logout(ctx context.Context, accessToken string, client identitydomain.Client) *LogoutResult {
	res := &LogoutResult{Message: MsgLoggedOut}
	if strings.TrimSpace(accessToken) == "" {
		return res
	}
	claims, err := s.tokens.Parse(accessToken)
	if err != nil || claims.Kind() != security.KindAccess {
		return res
	}
	n, err := s.sessions.InvalidateAllByUser(ctx, claims.UserID)
	if err != nil {
		s.log.ErrorContext(ctx, "auth: logout invalidation failed", "user_id", claims.UserID, "error", err)
		return res
	}
	res.SessionsRevoked = n
	s.log.InfoContext(ctx, "auth: logout", "user_id", claims.UserID, "sessions", n)
	s.emit(ctx, identitydomain.EventLogout, client, func(e *identitydomain.AuthEvent) {
		e.UserID = claims.UserID
	})
	return res
}

// CurrentUser returns the profile of an authenticated caller and records the access as last login.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*Profile, error) {
	if userID == "" {
		return nil, newError(ErrUnauthorizedAccess, msgUnauthorized)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, newError(ErrUserNotFound, msgUserNotFound)
	}
	if !user.Active {
		return nil, newError(ErrAccountInactive, "User account is inactive")
	}
	if !user.EmailVerified {
		s.log.WarnContext(ctx, "auth: unverified user accessing current user", "user_id", user.ID)
	}
	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now
	p := ProfileOf(user)
	return &p, nil
}

// ListSessions returns the caller's currently valid sessions.
func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]*sessiondomain.Session, error) {
	if userID == "" {
		return nil, newError(ErrUnauthorizedAccess, msgUnauthorized)
	}
	return s.sessions.ListActiveByUser(ctx, userID, s.now())
}

// SweepExpiredSessions deletes sessions that expired before now.
func (s *AuthService) SweepExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpiredBefore(ctx, s.now())
}

func (s *AuthService) issuePair(user *userdomain.User) (*TokenPair, string, error) {
	subject := security.Subject{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName(),
	}
	access, accessExp, err := s.tokens.IssueAccess(subject)
	if err != nil {
		return nil, "", err
	}
	refresh, _, _, err := s.tokens.IssueRefresh(subject)
	if err != nil {
		return nil, "", err
	}
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        TokenType,
		ExpiresIn:        int64(s.tokens.AccessTTL() / time.Second),
		RefreshExpiresIn: int64(s.tokens.RefreshTTL() / time.Second),
		AccessExpiresAt:  accessExp,
	}, refresh, nil
}

func (s *AuthService) emit(ctx context.Context, typ identitydomain.EventType, client identitydomain.Client, fill func(*identitydomain.AuthEvent)) {
	if s.events == nil {
		return
	}
	e := &identitydomain.AuthEvent{
		ID:        uuid.NewString(),
		Type:      typ,
		IP:        client.IP,
		UserAgent: client.UserAgent,
		CreatedAt: s.now(),
	}
	fill(e)
	telemetry.EmitAsync(s.events, ctx, e, s.log)
}

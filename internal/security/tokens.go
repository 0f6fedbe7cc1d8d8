package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidArgument is returned when the token string is empty or blank.
	ErrInvalidArgument = errors.New("token is empty")
	// ErrMalformedToken is returned for tokens that are structurally invalid, carry a bad
	// signature, a foreign issuer, or are missing required claims.
	ErrMalformedToken = errors.New("malformed token")
	// ErrExpiredToken is returned for authentic tokens whose exp has passed.
	ErrExpiredToken = errors.New("token expired")
	// ErrUnsupportedToken is returned when the token is signed with an algorithm other than HS512.
	ErrUnsupportedToken = errors.New("unsupported token")
)

// Kind is the token type carried in the "type" claim.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
	KindUnknown Kind = "unknown"
)

// Subject is the identity a token is issued for.
type Subject struct {
	UserID   string
	Username string
	Email    string
	FullName string
}

// Claims holds the JWT claims for both token kinds. Subject is the username.
// Access tokens carry Email and FullName; refresh tokens carry a jti.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"userId"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"fullName,omitempty"`
	Type     string `json:"type"`
}

// Kind returns the token kind, KindUnknown for anything but access or refresh.
func (c *Claims) Kind() Kind {
	switch Kind(c.Type) {
	case KindAccess:
		return KindAccess
	case KindRefresh:
		return KindRefresh
	default:
		return KindUnknown
	}
}

// TokenOption configures a TokenProvider.
type TokenOption func(*TokenProvider)

// WithClock overrides the time source used for iat/exp and for validation.
func WithClock(now func() time.Time) TokenOption {
	return func(p *TokenProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// TokenProvider issues and validates HS512-signed access and refresh tokens with a
// single symmetric key that is fixed for the lifetime of the process.
type TokenProvider struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenProvider returns a TokenProvider signing with secret. The secret is copied.
func NewTokenProvider(secret []byte, issuer string, accessTTL, refreshTTL time.Duration, opts ...TokenOption) *TokenProvider {
	p := &TokenProvider{
		secret:     append([]byte(nil), secret...),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AccessTTL returns the lifetime of issued access tokens.
func (p *TokenProvider) AccessTTL() time.Duration { return p.accessTTL }

// RefreshTTL returns the lifetime of issued refresh tokens.
func (p *TokenProvider) RefreshTTL() time.Duration { return p.refreshTTL }

// IssueAccess issues a short-lived access token for s. Returns the token and its expiry.
func (p *TokenProvider) IssueAccess(s Subject) (token string, expiresAt time.Time, err error) {
	if s.UserID == "" || s.Username == "" {
		return "", time.Time{}, ErrInvalidArgument
	}
	now := p.now().UTC()
	expiresAt = now.Add(p.accessTTL)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.Username,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:   s.UserID,
		Email:    s.Email,
		FullName: s.FullName,
		Type:     string(KindAccess),
	}
	token, err = p.sign(claims)
	return token, expiresAt, err
}

// IssueRefresh issues a long-lived refresh token for s and returns the token, its jti
// and expiration time. The caller binds the token to a session row.
func (p *TokenProvider) IssueRefresh(s Subject) (token, jti string, expiresAt time.Time, err error) {
	if s.UserID == "" || s.Username == "" {
		return "", "", time.Time{}, ErrInvalidArgument
	}
	jti = uuid.NewString()
	now := p.now().UTC()
	expiresAt = now.Add(p.refreshTTL)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   s.Username,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: s.UserID,
		Type:   string(KindRefresh),
	}
	token, err = p.sign(claims)
	return token, jti, expiresAt, err
}

func (p *TokenProvider) sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	s, err := t.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

func (p *TokenProvider) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method == nil || t.Method.Alg() != jwt.SigningMethodHS512.Alg() {
		return nil, ErrUnsupportedToken
	}
	return p.secret, nil
}

// Validate reports whether tokenString is authentic, unexpired and issued by this
// provider. It returns nil or one of ErrInvalidArgument, ErrMalformedToken,
// ErrExpiredToken, ErrUnsupportedToken.
func (p *TokenProvider) Validate(tokenString string) error {
	_, err := p.Parse(tokenString)
	return err
}

// Parse validates tokenString and returns its claims.
func (p *TokenProvider) Parse(tokenString string) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, ErrInvalidArgument
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, p.keyFunc,
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, classify(err)
	}
	if claims.Subject == "" || claims.UserID == "" {
		return nil, ErrMalformedToken
	}
	return claims, nil
}

// classify maps jwt parser errors onto the package's error taxonomy. The parser checks
// the signature before the registered claims, so ErrExpiredToken implies authenticity.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrUnsupportedToken), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrUnsupportedToken
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpiredToken
	default:
		return ErrMalformedToken
	}
}

// KindOf returns the kind of a valid token.
func (p *TokenProvider) KindOf(tokenString string) (Kind, error) {
	c, err := p.Parse(tokenString)
	if err != nil {
		return KindUnknown, err
	}
	return c.Kind(), nil
}

// SubjectOf returns the username a valid token was issued for.
func (p *TokenProvider) SubjectOf(tokenString string) (string, error) {
	c, err := p.Parse(tokenString)
	if err != nil {
		return "", err
	}
	return c.Subject, nil
}

// UserIDOf returns the user id claim of a valid token.
func (p *TokenProvider) UserIDOf(tokenString string) (string, error) {
	c, err := p.Parse(tokenString)
	if err != nil {
		return "", err
	}
	return c.UserID, nil
}

// ExpiryOf returns the expiration time of a valid token.
func (p *TokenProvider) ExpiryOf(tokenString string) (time.Time, error) {
	c, err := p.Parse(tokenString)
	if err != nil {
		return time.Time{}, err
	}
	return c.ExpiresAt.Time, nil
}

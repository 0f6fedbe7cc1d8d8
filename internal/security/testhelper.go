package security

import "time"

// testSecret is a fixed HS512 key for unit tests only. Do not use in production.
const testSecret = "test-secret-for-unit-tests-only-0123456789abcdef"

// NewTestTokenProvider returns a TokenProvider using the fixed test secret.
// For unit tests only. Callers must not use in production.
func NewTestTokenProvider(opts ...TokenOption) *TokenProvider {
	return NewTokenProvider([]byte(testSecret), "test-issuer", 15*time.Minute, 24*time.Hour, opts...)
}

package security

import "time"

// testSecret is the HMAC key used by unit tests only. Do not use in production.
const testSecret = "o-monitor-test-secret"

// NewTestTokenCodec returns a TokenCodec using the test secret.
// For unit tests only. Callers must not use in production.
func NewTestTokenCodec() *TokenCodec {
	c, _ := NewTokenCodec(testSecret)
	return c
}

// WithClock returns a copy of c that reads the current time from now. For tests that need to
// issue or verify tokens at a fixed instant.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	return &TokenCodec{secret: c.secret, now: now}
}

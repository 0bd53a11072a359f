package security

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	userdomain "github.com/kodacci/o-monitor-rest/internal/user/domain"
)

var (
	// ErrInvalidToken is returned when a token fails signature, algorithm, structure or expiry checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMalformedToken is returned when a correctly signed token carries a payload of the wrong shape.
	ErrMalformedToken = errors.New("malformed token payload")
	// ErrEmptySecret is returned by NewTokenCodec when no signing secret is configured.
	ErrEmptySecret = errors.New("token signing secret is empty")
)

// TokenType discriminates access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "ACCESS"
	TokenTypeRefresh TokenType = "REFRESH"
)

// Payload is the application data signed into every token.
type Payload struct {
	// ID is the session identifier; it must match the user's stored token id.
	ID   string              `json:"id"`
	Type TokenType           `json:"type"`
	User userdomain.Identity `json:"user"`
}

// Validate checks the payload shape. Returns ErrMalformedToken on the first violation.
func (p *Payload) Validate() error {
	if _, err := uuid.Parse(p.ID); err != nil {
		return ErrMalformedToken
	}
	if p.Type != TokenTypeAccess && p.Type != TokenTypeRefresh {
		return ErrMalformedToken
	}
	if p.User.ID <= 0 {
		return ErrMalformedToken
	}
	if n := len(p.User.Login); n == 0 || n > userdomain.MaxLoginLen {
		return ErrMalformedToken
	}
	if !p.User.Privilege.Valid() {
		return ErrMalformedToken
	}
	return nil
}

// Claims is the JWT body. Payload is kept raw so that shape errors stay distinguishable from signature errors.
type Claims struct {
	jwt.RegisteredClaims
	Payload json.RawMessage `json:"payload"`
}

// TokenCodec signs and verifies HS256 tokens with a shared secret. It is stateless and safe for concurrent use.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

// NewTokenCodec returns a TokenCodec using secret as the HMAC key.
func NewTokenCodec(secret string) (*TokenCodec, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &TokenCodec{secret: []byte(secret), now: time.Now}, nil
}

// Sign returns a compact token carrying payload that expires ttl from now.
func (c *TokenCodec) Sign(payload Payload, ttl time.Duration) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	now := c.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Payload: raw,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify checks signature, algorithm and expiry and returns the raw claims.
// Every failure collapses to ErrInvalidToken.
func (c *TokenCodec) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Decode verifies tokenString and decodes its payload.
// Returns ErrInvalidToken for verification failures and ErrMalformedToken when the payload has the wrong shape.
func (c *TokenCodec) Decode(tokenString string) (*Payload, error) {
	claims, err := c.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	return ParsePayload(claims.Payload)
}

// ParsePayload decodes and validates a raw payload.
func ParsePayload(raw json.RawMessage) (*Payload, error) {
	if len(raw) == 0 {
		return nil, ErrMalformedToken
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, ErrMalformedToken
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

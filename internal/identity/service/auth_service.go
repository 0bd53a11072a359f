package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kodacci/o-monitor-rest/internal/apperr"
	"github.com/kodacci/o-monitor-rest/internal/security"
	"github.com/kodacci/o-monitor-rest/internal/telemetry"
	userdomain "github.com/kodacci/o-monitor-rest/internal/user/domain"
)

// Sentinel errors for auth service; the HTTP handler maps them to status codes.
var (
	// ErrUnauthorized covers bad credentials and every rejected token. The cause is never exposed.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMalformedToken is returned by RefreshToken for a correctly signed token whose payload has the wrong shape.
	ErrMalformedToken = security.ErrMalformedToken
)

// Token lifetimes.
const (
	AccessTokenTTL  = 10 * time.Minute
	RefreshTokenTTL = time.Hour
)

// TokenPair is the result of Authenticate and RefreshToken.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// CredentialRepo is the minimal user repository needed by the auth service.
type CredentialRepo interface {
	GetByID(ctx context.Context, id int64) (*userdomain.User, error)
	GetByLogin(ctx context.Context, login string) (*userdomain.User, error)
	GetTokenID(ctx context.Context, id int64) (string, error)
	SetTokenID(ctx context.Context, id int64, tokenID string) error
}

// AuthService issues, rotates and resolves access/refresh token pairs. Only the most recently
// issued pair of a user is valid: its session identifier is stored on the user record.
type AuthService struct {
	users      CredentialRepo
	hasher     security.PasswordHasher
	codec      *security.TokenCodec
	events     telemetry.EventEmitter
	logger     *slog.Logger
	newTokenID func() string

	decoyOnce sync.Once
	decoyHash string
}

// decoyPassword is hashed once and compared against on the unknown-login path.
const decoyPassword = "o-monitor-decoy-password"

// NewAuthService returns an AuthService with the given dependencies. events may be nil.
func NewAuthService(
	users CredentialRepo,
	hasher security.PasswordHasher,
	codec *security.TokenCodec,
	events telemetry.EventEmitter,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		hasher:     hasher,
		codec:      codec,
		events:     events,
		logger:     logger.With("component", "auth"),
		newTokenID: uuid.NewString,
	}
}

// Authenticate checks login and password and, on success, starts a new session.
// Unknown logins and wrong passwords both fail with ErrUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, login, password string) (*TokenPair, error) {
	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUserRepository, "find user by login")
	}
	if user == nil {
		s.compareDecoy(password)
		s.emit(&telemetry.Event{Type: telemetry.EventLoginFailed, Login: login, Reason: "unknown login"})
		return nil, ErrUnauthorized
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		s.emit(&telemetry.Event{Type: telemetry.EventLoginFailed, UserID: user.ID, Login: login, Reason: "wrong password"})
		return nil, ErrUnauthorized
	}

	pair, err := s.issue(ctx, user.Identity())
	if err != nil {
		return nil, err
	}
	s.emit(&telemetry.Event{Type: telemetry.EventLoginSucceeded, UserID: user.ID, Login: user.Login})
	return pair, nil
}

// RefreshToken exchanges a refresh token for a new pair. The presented token is consumed:
// it and every access token issued with it stop working.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	payload, err := s.codec.Decode(refreshToken)
	if err != nil {
		if errors.Is(err, security.ErrMalformedToken) {
			s.logger.Error("refresh token with invalid payload", "error", err)
			s.emit(&telemetry.Event{Type: telemetry.EventRefreshRejected, Reason: "malformed payload"})
			return nil, ErrMalformedToken
		}
		s.emit(&telemetry.Event{Type: telemetry.EventRefreshRejected, Reason: "invalid token"})
		return nil, ErrUnauthorized
	}
	if payload.Type != security.TokenTypeRefresh {
		s.emit(&telemetry.Event{Type: telemetry.EventRefreshRejected, UserID: payload.User.ID, Reason: "wrong token type"})
		return nil, ErrUnauthorized
	}

	current, err := s.users.GetTokenID(ctx, payload.User.ID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUserRepository, "get token id")
	}
	if current != payload.ID {
		s.emit(&telemetry.Event{Type: telemetry.EventRefreshRejected, UserID: payload.User.ID, Reason: "superseded session"})
		return nil, ErrUnauthorized
	}

	// The new pair carries the stored identity, not the snapshot from the presented token.
	user, err := s.users.GetByID(ctx, payload.User.ID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUserRepository, "find user by id")
	}
	if user == nil {
		s.emit(&telemetry.Event{Type: telemetry.EventRefreshRejected, UserID: payload.User.ID, Reason: "user gone"})
		return nil, ErrUnauthorized
	}

	pair, err := s.issue(ctx, user.Identity())
	if err != nil {
		return nil, err
	}
	s.emit(&telemetry.Event{Type: telemetry.EventRefreshSucceeded, UserID: user.ID, Login: user.Login})
	return pair, nil
}

// ResolveUser returns the identity behind an access token, or nil for anonymous requests.
// Token problems of any kind yield (nil, nil); only store failures are returned as errors.
func (s *AuthService) ResolveUser(ctx context.Context, accessToken string) (*userdomain.Identity, error) {
	if accessToken == "" {
		return nil, nil
	}
	payload, err := s.codec.Decode(accessToken)
	if err != nil {
		s.logger.Debug("access token rejected", "error", err)
		return nil, nil
	}
	if payload.Type != security.TokenTypeAccess {
		s.logger.Debug("access token rejected", "type", payload.Type)
		return nil, nil
	}

	user, err := s.users.GetByLogin(ctx, payload.User.Login)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUserRepository, "find user by login")
	}
	if user == nil || user.TokenID == nil || *user.TokenID != payload.ID {
		return nil, nil
	}
	id := user.Identity()
	return &id, nil
}

// issue signs a new pair around a fresh session identifier and stores that identifier,
// which invalidates every previously issued pair of the user.
func (s *AuthService) issue(ctx context.Context, user userdomain.Identity) (*TokenPair, error) {
	tokenID := s.newTokenID()
	access, err := s.codec.Sign(security.Payload{ID: tokenID, Type: security.TokenTypeAccess, User: user}, AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.Sign(security.Payload{ID: tokenID, Type: security.TokenTypeRefresh, User: user}, RefreshTokenTTL)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetTokenID(ctx, user.ID, tokenID); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUserRepository, "set token id")
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) compareDecoy(password string) {
	s.decoyOnce.Do(func() {
		hash, err := s.hasher.Hash([]byte(decoyPassword))
		if err != nil {
			s.logger.Warn("decoy hash unavailable", "error", err)
			return
		}
		s.decoyHash = hash
	})
	if s.decoyHash != "" {
		_ = s.hasher.Compare(s.decoyHash, []byte(password))
	}
}

func (s *AuthService) emit(event *telemetry.Event) {
	event.Source = "auth"
	telemetry.EmitAsync(s.events, s.logger, event)
}

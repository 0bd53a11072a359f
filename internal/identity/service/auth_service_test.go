package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/kodacci/o-monitor-rest/internal/apperr"
	"github.com/kodacci/o-monitor-rest/internal/logging"
	"github.com/kodacci/o-monitor-rest/internal/security"
	userdomain "github.com/kodacci/o-monitor-rest/internal/user/domain"
)

type memUserRepo struct {
	mu      sync.Mutex
	byID    map[int64]*userdomain.User
	byLogin map[string]*userdomain.User
	err     error
	sets    int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[int64]*userdomain.User{}, byLogin: map[string]*userdomain.User{}}
}

func (r *memUserRepo) add(u *userdomain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[u.ID] = u
	r.byLogin[u.Login] = u
}

func (r *memUserRepo) rename(id int64, login string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.byID[id]
	delete(r.byLogin, u.Login)
	u.Login = login
	r.byLogin[login] = u
}

func (r *memUserRepo) GetByID(ctx context.Context, id int64) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	u2 := *u
	return &u2, nil
}

func (r *memUserRepo) GetByLogin(ctx context.Context, login string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.byLogin[login]
	if !ok {
		return nil, nil
	}
	u2 := *u
	return &u2, nil
}

func (r *memUserRepo) GetTokenID(ctx context.Context, id int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	u, ok := r.byID[id]
	if !ok || u.TokenID == nil {
		return "", nil
	}
	return *u.TokenID, nil
}

func (r *memUserRepo) SetTokenID(ctx context.Context, id int64, tokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sets++
	if u, ok := r.byID[id]; ok {
		t := tokenID
		u.TokenID = &t
	}
	return nil
}

func (r *memUserRepo) tokenID(id int64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.byID[id]; u != nil && u.TokenID != nil {
		return *u.TokenID
	}
	return ""
}

const testPassword = "abc12345"

func newTestAuthService(t *testing.T) (*AuthService, *memUserRepo, *security.TokenCodec) {
	t.Helper()
	hasher := security.NewHasher(bcrypt.MinCost)
	hash, err := hasher.Hash([]byte(testPassword))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	repo := newMemUserRepo()
	repo.add(&userdomain.User{ID: 1, Login: "alice", PasswordHash: hash, Privilege: userdomain.PrivilegeAdmin})
	repo.add(&userdomain.User{ID: 2, Login: "bob", PasswordHash: hash, Privilege: userdomain.PrivilegeUser})
	codec := security.NewTestTokenCodec()
	return NewAuthService(repo, hasher, codec, nil, logging.Discard()), repo, codec
}

func TestAuthenticate_Success(t *testing.T) {
	svc, repo, codec := newTestAuthService(t)
	ctx := context.Background()

	pair, err := svc.Authenticate(ctx, "alice", testPassword)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("tokens should be set")
	}

	access, err := codec.Decode(pair.AccessToken)
	if err != nil {
		t.Fatalf("decode access: %v", err)
	}
	refresh, err := codec.Decode(pair.RefreshToken)
	if err != nil {
		t.Fatalf("decode refresh: %v", err)
	}
	if access.Type != security.TokenTypeAccess || refresh.Type != security.TokenTypeRefresh {
		t.Errorf("types = %s/%s", access.Type, refresh.Type)
	}
	if access.ID != refresh.ID {
		t.Error("access and refresh must share the session identifier")
	}
	if got := repo.tokenID(1); got != access.ID {
		t.Errorf("stored token id = %q, want %q", got, access.ID)
	}
	if access.User.Login != "alice" || access.User.ID != 1 || access.User.Privilege != userdomain.PrivilegeAdmin {
		t.Errorf("payload user = %+v", access.User)
	}

	id, err := svc.ResolveUser(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("ResolveUser: %v", err)
	}
	if id == nil || id.Login != "alice" {
		t.Fatalf("ResolveUser = %+v, want alice", id)
	}
}

func TestAuthenticate_TokenLifetimes(t *testing.T) {
	svc, _, codec := newTestAuthService(t)
	pair, err := svc.Authenticate(context.Background(), "alice", testPassword)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	check := func(token string, want time.Duration) {
		t.Helper()
		claims, err := codec.Verify(token)
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != want {
			t.Errorf("lifetime = %v, want %v", got, want)
		}
	}
	check(pair.AccessToken, AccessTokenTTL)
	check(pair.RefreshToken, RefreshTokenTTL)
}

func TestAuthenticate_Unauthorized(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	ctx := context.Background()

	_, errWrong := svc.Authenticate(ctx, "alice", "wrong")
	_, errMissing := svc.Authenticate(ctx, "missing", testPassword)
	if !errors.Is(errWrong, ErrUnauthorized) || !errors.Is(errMissing, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v / %v", errWrong, errMissing)
	}
	if errWrong != errMissing {
		t.Error("wrong password and unknown login must be indistinguishable")
	}
	if repo.sets != 0 {
		t.Errorf("failed logins must not touch the session, SetTokenID called %d times", repo.sets)
	}
}

type countingHasher struct {
	security.PasswordHasher
	mu       sync.Mutex
	compares int
}

func (h *countingHasher) Compare(hash string, password []byte) error {
	h.mu.Lock()
	h.compares++
	h.mu.Unlock()
	return h.PasswordHasher.Compare(hash, password)
}

func TestAuthenticate_UnknownLoginStillCompares(t *testing.T) {
	hasher := &countingHasher{PasswordHasher: security.NewHasher(bcrypt.MinCost)}
	svc := NewAuthService(newMemUserRepo(), hasher, security.NewTestTokenCodec(), nil, logging.Discard())

	for i := 0; i < 2; i++ {
		if _, err := svc.Authenticate(context.Background(), "nobody", testPassword); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("want ErrUnauthorized, got %v", err)
		}
	}
	if hasher.compares != 2 {
		t.Errorf("Compare called %d times, want one per unknown-login attempt", hasher.compares)
	}
}

func TestAuthenticate_ShortLogin(t *testing.T) {
	hasher := security.NewHasher(bcrypt.MinCost)
	hash, err := hasher.Hash([]byte("p"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	repo := newMemUserRepo()
	repo.add(&userdomain.User{ID: 7, Login: "a", PasswordHash: hash, Privilege: userdomain.PrivilegeUser})
	svc := NewAuthService(repo, hasher, security.NewTestTokenCodec(), nil, logging.Discard())
	ctx := context.Background()

	pair, err := svc.Authenticate(ctx, "a", "p")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	id, err := svc.ResolveUser(ctx, pair.AccessToken)
	if err != nil || id == nil || id.Login != "a" {
		t.Fatalf("ResolveUser = (%+v, %v), want login a", id, err)
	}
	next, err := svc.RefreshToken(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if id, _ := svc.ResolveUser(ctx, next.AccessToken); id == nil || id.ID != 7 {
		t.Errorf("refreshed access token: ResolveUser = %+v", id)
	}
}

func TestAuthenticate_RepoError(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	repo.err = errors.New("connection reset")
	_, err := svc.Authenticate(context.Background(), "alice", testPassword)
	if err == nil || errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want store error, got %v", err)
	}
	if !apperr.IsCode(err, apperr.CodeUserRepository) {
		t.Errorf("code = %s", apperr.CodeOf(err))
	}
}

func TestAuthenticate_InvalidatesPreviousSession(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	first, err := svc.Authenticate(ctx, "alice", testPassword)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	second, err := svc.Authenticate(ctx, "alice", testPassword)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	if id, _ := svc.ResolveUser(ctx, first.AccessToken); id != nil {
		t.Error("access token of a superseded session must not resolve")
	}
	if _, err := svc.RefreshToken(ctx, first.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("refresh of a superseded session: want ErrUnauthorized, got %v", err)
	}
	if id, _ := svc.ResolveUser(ctx, second.AccessToken); id == nil {
		t.Error("latest access token must resolve")
	}
}

func TestRefreshToken_SingleUse(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	pair, err := svc.Authenticate(ctx, "alice", testPassword)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	next, err := svc.RefreshToken(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if next.AccessToken == pair.AccessToken || next.RefreshToken == pair.RefreshToken {
		t.Error("refresh must issue new tokens")
	}

	if _, err := svc.RefreshToken(ctx, pair.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("reused refresh token: want ErrUnauthorized, got %v", err)
	}
	if id, _ := svc.ResolveUser(ctx, pair.AccessToken); id != nil {
		t.Error("old access token must stop resolving after refresh")
	}
	if id, _ := svc.ResolveUser(ctx, next.AccessToken); id == nil || id.Login != "alice" {
		t.Errorf("new access token: ResolveUser = %+v", id)
	}
}

func TestRefreshToken_SignsCurrentRecord(t *testing.T) {
	svc, repo, codec := newTestAuthService(t)
	ctx := context.Background()
	pair, err := svc.Authenticate(ctx, "bob", testPassword)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	repo.rename(2, "robert")
	repo.mu.Lock()
	repo.byID[2].Privilege = userdomain.PrivilegeAdmin
	repo.mu.Unlock()

	next, err := svc.RefreshToken(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	payload, err := codec.Decode(next.AccessToken)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.User.Login != "robert" || payload.User.Privilege != userdomain.PrivilegeAdmin {
		t.Errorf("refreshed payload user = %+v, want the stored record", payload.User)
	}
	id, err := svc.ResolveUser(ctx, next.AccessToken)
	if err != nil || id == nil || id.Login != "robert" {
		t.Errorf("ResolveUser = (%+v, %v), want robert", id, err)
	}
}

func TestRefreshToken_TypeEnforcement(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	pair, err := svc.Authenticate(ctx, "alice", testPassword)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if _, err := svc.RefreshToken(ctx, pair.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("access token on refresh: want ErrUnauthorized, got %v", err)
	}
	id, err := svc.ResolveUser(ctx, pair.RefreshToken)
	if err != nil || id != nil {
		t.Errorf("refresh token on resolve: want (nil, nil), got (%+v, %v)", id, err)
	}
	// The rejected attempts must not have consumed the session.
	if _, err := svc.RefreshToken(ctx, pair.RefreshToken); err != nil {
		t.Errorf("RefreshToken after rejected attempts: %v", err)
	}
}

func TestRefreshToken_InvalidToken(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	other, _ := security.NewTokenCodec("someone-else")
	foreign, _ := other.Sign(security.Payload{
		ID:   "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		Type: security.TokenTypeRefresh,
		User: userdomain.Identity{ID: 1, Login: "alice", Privilege: userdomain.PrivilegeAdmin},
	}, time.Hour)

	for _, token := range []string{"", "garbage", foreign} {
		if _, err := svc.RefreshToken(context.Background(), token); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("RefreshToken(%q): want ErrUnauthorized, got %v", token, err)
		}
	}
}

func signMalformed(t *testing.T, payload string) string {
	t.Helper()
	claims := security.Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Payload:          []byte(payload),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("o-monitor-test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestRefreshToken_MalformedPayload(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	token := signMalformed(t, `{"id":"not-a-uuid","type":"REFRESH","user":{"id":1,"login":"alice","privilege":"ADMIN"}}`)

	_, err := svc.RefreshToken(context.Background(), token)
	if !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("want ErrMalformedToken, got %v", err)
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Error("malformed payload must be distinct from unauthorized")
	}
}

func TestResolveUser_MalformedPayloadIsAnonymous(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	token := signMalformed(t, `{"id":"not-a-uuid","type":"ACCESS","user":{"id":1,"login":"alice","privilege":"ADMIN"}}`)

	id, err := svc.ResolveUser(context.Background(), token)
	if err != nil || id != nil {
		t.Errorf("want (nil, nil), got (%+v, %v)", id, err)
	}
}

func TestResolveUser_Anonymous(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	for _, token := range []string{"", "garbage"} {
		id, err := svc.ResolveUser(context.Background(), token)
		if err != nil || id != nil {
			t.Errorf("ResolveUser(%q) = (%+v, %v), want (nil, nil)", token, id, err)
		}
	}
}

func TestResolveUser_UsesCurrentRecord(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	ctx := context.Background()
	pair, err := svc.Authenticate(ctx, "bob", testPassword)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	repo.mu.Lock()
	repo.byID[2].Privilege = userdomain.PrivilegeAdmin
	repo.mu.Unlock()

	id, err := svc.ResolveUser(ctx, pair.AccessToken)
	if err != nil || id == nil {
		t.Fatalf("ResolveUser = (%+v, %v)", id, err)
	}
	if id.Privilege != userdomain.PrivilegeAdmin {
		t.Errorf("privilege = %s, want the stored ADMIN", id.Privilege)
	}
}

func TestResolveUser_RepoError(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	ctx := context.Background()
	pair, err := svc.Authenticate(ctx, "alice", testPassword)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	repo.err = errors.New("timeout")
	if _, err := svc.ResolveUser(ctx, pair.AccessToken); err == nil {
		t.Fatal("store failure should be returned")
	}
}

package security

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	userdomain "github.com/kodacci/o-monitor-rest/internal/user/domain"
)

func testPayload(typ TokenType) Payload {
	return Payload{
		ID:   uuid.NewString(),
		Type: typ,
		User: userdomain.Identity{ID: 1, Login: "admin", Privilege: userdomain.PrivilegeAdmin},
	}
}

// signRaw signs arbitrary claims with the test secret, bypassing payload marshalling.
func signRaw(t *testing.T, method jwt.SigningMethod, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestNewTokenCodec_EmptySecret(t *testing.T) {
	if _, err := NewTokenCodec(""); !errors.Is(err, ErrEmptySecret) {
		t.Fatalf("want ErrEmptySecret, got %v", err)
	}
}

func TestTokenCodec_SignAndDecode(t *testing.T) {
	c := NewTestTokenCodec()
	want := testPayload(TokenTypeAccess)

	token, err := c.Sign(want, 10*time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("token is not a compact JWT: %q", token)
	}

	got, err := c.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if *got != want {
		t.Errorf("Decode = %+v, want %+v", *got, want)
	}
}

func TestTokenCodec_SingleCharLogin(t *testing.T) {
	codec := NewTestTokenCodec()
	p := testPayload(TokenTypeAccess)
	p.User.Login = "a"
	token, err := codec.Sign(p, time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	got, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.User.Login != "a" {
		t.Errorf("login = %q, want a", got.User.Login)
	}
}

func TestTokenCodec_ClaimsLayout(t *testing.T) {
	c := NewTestTokenCodec()
	token, err := c.Sign(testPayload(TokenTypeRefresh), time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	claims, err := c.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(claims.Payload, &body); err != nil {
		t.Fatalf("payload: %v", err)
	}
	for _, key := range []string{"id", "type", "user"} {
		if _, ok := body[key]; !ok {
			t.Errorf("payload missing %q", key)
		}
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		t.Fatal("exp and iat must be set")
	}
	if d := claims.ExpiresAt.Sub(claims.IssuedAt.Time); d != time.Hour {
		t.Errorf("exp - iat = %v, want 1h", d)
	}
}

func TestTokenCodec_Expired(t *testing.T) {
	issuedAt := time.Now().Add(-2 * time.Hour)
	c := NewTestTokenCodec().WithClock(func() time.Time { return issuedAt })
	token, err := c.Sign(testPayload(TokenTypeAccess), 10*time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := NewTestTokenCodec().Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenCodec_RejectsInvalid(t *testing.T) {
	c := NewTestTokenCodec()
	good, _ := c.Sign(testPayload(TokenTypeAccess), time.Minute)
	other, _ := NewTokenCodec("another-secret")
	foreign, _ := other.Sign(testPayload(TokenTypeAccess), time.Minute)

	parts := strings.Split(good, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	raw, _ := json.Marshal(testPayload(TokenTypeAccess))
	exp := jwt.NewNumericDate(time.Now().Add(time.Minute))
	hs512 := signRaw(t, jwt.SigningMethodHS512, Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp}, Payload: raw})
	noExp := signRaw(t, jwt.SigningMethodHS256, Claims{Payload: raw})
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp}, Payload: raw}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"tampered", tampered},
		{"foreign secret", foreign},
		{"wrong algorithm", hs512},
		{"alg none", none},
		{"missing exp", noExp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify: want ErrInvalidToken, got %v", err)
			}
			if _, err := c.Decode(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Decode: want ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestTokenCodec_MalformedPayload(t *testing.T) {
	c := NewTestTokenCodec()
	exp := jwt.NewNumericDate(time.Now().Add(time.Minute))
	valid := testPayload(TokenTypeAccess)

	mutate := func(f func(p *Payload)) json.RawMessage {
		p := valid
		f(&p)
		b, _ := json.Marshal(p)
		return b
	}

	tests := []struct {
		name    string
		payload json.RawMessage
	}{
		{"missing payload", nil},
		{"not an object", json.RawMessage(`"hello"`)},
		{"wrong field type", json.RawMessage(`{"id":"x","type":"ACCESS","user":{"id":"one"}}`)},
		{"id not uuid", mutate(func(p *Payload) { p.ID = "abc" })},
		{"unknown type", mutate(func(p *Payload) { p.Type = "SESSION" })},
		{"lowercase type", mutate(func(p *Payload) { p.Type = "access" })},
		{"zero user id", mutate(func(p *Payload) { p.User.ID = 0 })},
		{"empty login", mutate(func(p *Payload) { p.User.Login = "" })},
		{"login too long", mutate(func(p *Payload) { p.User.Login = strings.Repeat("x", userdomain.MaxLoginLen+1) })},
		{"bad privilege", mutate(func(p *Payload) { p.User.Privilege = "ROOT" })},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := signRaw(t, jwt.SigningMethodHS256, Claims{
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp},
				Payload:          tt.payload,
			})
			if _, err := c.Verify(token); err != nil {
				t.Fatalf("Verify should accept a correctly signed token: %v", err)
			}
			if _, err := c.Decode(token); !errors.Is(err, ErrMalformedToken) {
				t.Errorf("Decode: want ErrMalformedToken, got %v", err)
			}
		})
	}
}

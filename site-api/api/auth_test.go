package api

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func TestBearerTokenSuccess(t *testing.T) {
	token, err := bearerToken("Bearer header.payload.signature")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "header.payload.signature" {
		t.Fatalf("unexpected token content: %s", token)
	}
}

func TestBearerTokenMissing(t *testing.T) {
	if _, err := bearerToken("   "); err == nil || err.Error() != "missing authorization header" {
		t.Fatalf("expected missing header error, got %v", err)
	}
}

func TestBearerTokenMalformed(t *testing.T) {
	for _, header := range []string{"Basic abc", "Bearer ", "Bearer " + strings.Repeat(".", 1000), "Bearer a.b"} {
		if _, err := bearerToken(header); err == nil || err.Error() != "bad auth header" {
			t.Fatalf("%q: expected bad auth header error, got %v", header, err)
		}
	}
}

func signHS256(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func testAuth(secret []byte) *Auth {
	return &Auth{
		Audience:   "api://aud",
		Issuer:     "https://issuer/",
		TestMode:   true,
		TestSecret: secret,
		parser:     jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

func TestIdentityFromBearerHS256(t *testing.T) {
	secret := []byte("test-secret")
	signed := signHS256(t, secret, jwt.MapClaims{
		"sub":   "user-123",
		"email": "ada@example.com",
		"name":  "Ada",
		"aud":   "api://aud",
		"iss":   "https://issuer/",
		"exp":   time.Now().Add(5 * time.Minute).Unix(),
		"nbf":   time.Now().Add(-time.Minute).Unix(),
		"iat":   time.Now().Add(-time.Minute).Unix(),
	})

	id, err := testAuth(secret).IdentityFromAuthHeader("Bearer " + signed)
	if err != nil {
		t.Fatalf("unexpected error verifying token: %v", err)
	}
	if id.Subject != "user-123" || id.Email != "ada@example.com" || id.Name != "Ada" {
		t.Fatalf("unexpected identity: %#v", id)
	}
}

func TestIdentityFromBearerRejects(t *testing.T) {
	secret := []byte("test-secret")
	valid := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub": "user-123",
			"aud": "api://aud",
			"iss": "https://issuer/",
			"exp": time.Now().Add(5 * time.Minute).Unix(),
		}
	}

	cases := map[string]func() string{
		"wrong_secret": func() string { return signHS256(t, []byte("other"), valid()) },
		"expired": func() string {
			c := valid()
			c["exp"] = time.Now().Add(-time.Hour).Unix()
			return signHS256(t, secret, c)
		},
		"wrong_audience": func() string {
			c := valid()
			c["aud"] = "api://other"
			return signHS256(t, secret, c)
		},
		"wrong_issuer": func() string {
			c := valid()
			c["iss"] = "https://evil/"
			return signHS256(t, secret, c)
		},
		"missing_sub": func() string {
			c := valid()
			delete(c, "sub")
			return signHS256(t, secret, c)
		},
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := testAuth(secret).IdentityFromBearer(token()); err == nil {
				t.Fatalf("expected %s token to be rejected", name)
			}
		})
	}
}

func TestNewAuthLocalMode(t *testing.T) {
	t.Setenv(envLocalAuthMode, "hs256")
	t.Setenv(envLocalAuthSecret, "")
	if _, err := NewAuth(nil, "", ""); err == nil {
		t.Fatalf("expected missing shared secret to fail")
	}

	t.Setenv(envLocalAuthSecret, "shared")
	a, err := NewAuth(nil, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.TestMode || string(a.TestSecret) != "shared" {
		t.Fatalf("expected local HS256 mode, got %#v", a)
	}

	t.Setenv(envJWKSCacheTTL, "-1s")
	if _, err := NewAuth(nil, "", ""); err == nil {
		t.Fatalf("expected invalid cache TTL to fail")
	}
}

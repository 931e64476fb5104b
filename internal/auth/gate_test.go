package auth

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cbanluta2700/agrismart--sub002/internal/config"
)

func newGate(secret string, allowClaimed bool) *Gate {
	return NewGate(config.AuthConfig{JWTSecret: secret, JWTIssuer: "chat-test", AllowClaimedID: allowClaimed})
}

func TestAuthenticate_ClaimedIDSources(t *testing.T) {
	g := newGate("", true)

	r := httptest.NewRequest("GET", "/ws?userId=buyer-1", nil)
	id, err := g.Authenticate(r)
	if err != nil || id.UserID != "buyer-1" || id.Verified {
		t.Fatalf("query userId: got %+v, %v", id, err)
	}

	r = httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("X-User-ID", "  seller-2 ")
	id, err = g.Authenticate(r)
	if err != nil || id.UserID != "seller-2" {
		t.Fatalf("X-User-ID header: got %+v, %v", id, err)
	}

	// Query parameter wins over header.
	r = httptest.NewRequest("GET", "/ws?userId=q", nil)
	r.Header.Set("X-User-ID", "h")
	if id, _ = g.Authenticate(r); id.UserID != "q" {
		t.Fatalf("expected query to win, got %q", id.UserID)
	}
}

func TestAuthenticate_RejectsMissingOrBadClaims(t *testing.T) {
	g := newGate("", true)
	for name, target := range map[string]string{
		"absent":   "/ws",
		"empty":    "/ws?userId=",
		"spaces":   "/ws?userId=%20%20",
		"too long": "/ws?userId=" + strings.Repeat("x", MaxUserIDLen+1),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := g.Authenticate(httptest.NewRequest("GET", target, nil))
			if !errors.Is(err, ErrUnauthenticated) {
				t.Fatalf("expected ErrUnauthenticated, got %v", err)
			}
		})
	}
}

func TestAuthenticate_ClaimedIDsDisabled(t *testing.T) {
	g := newGate("s3cret", false)
	_, err := g.Authenticate(httptest.NewRequest("GET", "/ws?userId=buyer-1", nil))
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("claimed id must be refused, got %v", err)
	}
}

func TestIssueAndVerifyToken(t *testing.T) {
	g := newGate("s3cret", false)
	tok, exp, err := g.IssueToken("buyer-1", "Ana", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expiry in the past: %v", exp)
	}

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer "+tok)
	id, err := g.Authenticate(r)
	if err != nil {
		t.Fatalf("header token: %v", err)
	}
	if id.UserID != "buyer-1" || id.Name != "Ana" || !id.Verified {
		t.Fatalf("unexpected identity: %+v", id)
	}

	// Browsers cannot set headers on upgrades, so the query form is accepted too.
	id, err = g.Authenticate(httptest.NewRequest("GET", "/ws?token="+tok, nil))
	if err != nil || id.UserID != "buyer-1" {
		t.Fatalf("query token: %+v, %v", id, err)
	}
}

func TestAuthenticate_InvalidTokensNeverFallBack(t *testing.T) {
	g := newGate("s3cret", true)
	other := newGate("different", true)
	forged, _, err := other.IssueToken("buyer-1", "", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	r := httptest.NewRequest("GET", "/ws?userId=buyer-1&token="+forged, nil)
	if _, err := g.Authenticate(r); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if !errors.Is(ErrInvalidToken, ErrUnauthenticated) {
		t.Fatalf("ErrInvalidToken must wrap ErrUnauthenticated")
	}
}

func TestAuthenticate_ExpiredAndWrongIssuer(t *testing.T) {
	g := newGate("s3cret", false)
	g.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := g.IssueToken("u", "", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	g.now = time.Now
	if _, err := g.Authenticate(httptest.NewRequest("GET", "/ws?token="+expired, nil)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token accepted: %v", err)
	}

	foreign := NewGate(config.AuthConfig{JWTSecret: "s3cret", JWTIssuer: "someone-else"})
	tok, _, _ := foreign.IssueToken("u", "", time.Hour)
	if _, err := g.Authenticate(httptest.NewRequest("GET", "/ws?token="+tok, nil)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong issuer accepted: %v", err)
	}
}

func TestAuthenticate_RejectsNonHMACAlgorithms(t *testing.T) {
	g := newGate("s3cret", false)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u",
		Issuer:    "chat-test",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := g.Authenticate(httptest.NewRequest("GET", "/ws?token="+unsigned, nil)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("alg=none accepted: %v", err)
	}
}

func TestIssueToken_DisabledWithoutSecret(t *testing.T) {
	g := newGate("", true)
	if _, _, err := g.IssueToken("u", "", time.Hour); !errors.Is(err, ErrTokensDisabled) {
		t.Fatalf("expected ErrTokensDisabled, got %v", err)
	}
	// A token presented while no secret is configured cannot be verified.
	if _, err := g.Authenticate(httptest.NewRequest("GET", "/ws?token=abc", nil)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

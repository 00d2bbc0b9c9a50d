package utils

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken(testSecret, "u-1", "alice", "admin", "203.0.113.9", 2*time.Hour)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	if !tok.Exp.After(time.Now()) {
		t.Fatalf("expected future expiry, got %v", tok.Exp)
	}
	claims, err := ParseAccessToken(testSecret, tok.Token)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.UserID != "u-1" || claims.Username != "alice" || claims.Role != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.IP != "203.0.113.9" {
		t.Fatalf("issuing IP not carried: %+v", claims)
	}
}

func TestRefreshRejectedAsAccess(t *testing.T) {
	ref, err := NewRefreshToken(testSecret, "u-1", 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	if _, err := ParseAccessToken(testSecret, ref.Token); err != ErrWrongTokenType {
		t.Fatalf("refresh token accepted as access token: %v", err)
	}
}

func TestAccessRejectedAsRefresh(t *testing.T) {
	acc, err := NewAccessToken(testSecret, "u-1", "alice", "admin", "", time.Hour)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	if _, err := ParseRefreshToken(testSecret, acc.Token); err != ErrWrongTokenType {
		t.Fatalf("access token accepted as refresh token: %v", err)
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	ref, err := NewRefreshToken(testSecret, "u-7", 24*time.Hour)
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	sub, err := ParseRefreshToken(testSecret, ref.Token)
	if err != nil {
		t.Fatalf("ParseRefreshToken: %v", err)
	}
	if sub != "u-7" {
		t.Fatalf("unexpected subject: %s", sub)
	}
}

func TestMalformedToken(t *testing.T) {
	for _, raw := range []string{"", "abc", "a.b", "a.b.c.d", strings.Repeat("f", 64)} {
		if _, err := ParseAccessToken(testSecret, raw); err != ErrMalformedToken {
			t.Fatalf("%q: expected ErrMalformedToken, got %v", raw, err)
		}
	}
}

func TestWrongSecretRejected(t *testing.T) {
	tok, err := NewAccessToken(testSecret, "u-1", "alice", "admin", "", time.Hour)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	if _, err := ParseAccessToken("another-secret-another-secret!!", tok.Token); err != ErrInvalidToken {
		t.Fatalf("token with wrong secret accepted: %v", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	tok, err := NewAccessToken(testSecret, "u-1", "alice", "admin", "", -time.Minute)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	if _, err := ParseAccessToken(testSecret, tok.Token); err != ErrInvalidToken {
		t.Fatalf("expired token accepted: %v", err)
	}
}

func TestRefreshTokensAreUnique(t *testing.T) {
	a, err := NewRefreshToken(testSecret, "u-1", time.Hour)
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	b, err := NewRefreshToken(testSecret, "u-1", time.Hour)
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	if a.Token == b.Token {
		t.Fatal("two refresh tokens for the same user are identical")
	}
	if HashToken(a.Token) == HashToken(b.Token) {
		t.Fatal("hashes of distinct tokens collide")
	}
}

package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/sha256" // SHA-256 hashing for server-side token storage
	"encoding/hex"  // hex encoding of digests
	"errors"        // sentinel errors for token validation failures
	"strings"       // segment counting on raw tokens
	"time"          // expiry computation

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"       // jti generation for refresh tokens
)

// tokenTypeRefresh marks refresh tokens via the "typ" claim. Access tokens
// carry no "typ" claim; its presence with this value is the sole
// discriminator, so a refresh token can never pass access verification and
// vice versa.
const tokenTypeRefresh = "refresh"

var (
	// ErrMalformedToken is returned when the raw string is not three
	// dot-separated segments. Checked before any parsing so opaque or
	// garbage input never reaches the JWT decoder.
	ErrMalformedToken = errors.New("malformed token")
	// ErrInvalidToken covers bad signature, wrong algorithm, expiry and
	// missing claims.
	ErrInvalidToken = errors.New("invalid token")
	// ErrWrongTokenType is returned when a refresh token is presented
	// where an access token is expected, or the reverse.
	ErrWrongTokenType = errors.New("wrong token type")
)

// AccessToken is a signed JWT access token along with its expiry. The
// Token field contains the serialized JWT; Exp is the UTC expiration time.
// Access tokens are short-lived and presented via the adminToken cookie or
// the Authorization header.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// RefreshToken is a longer-lived signed token used only to mint a new
// access/refresh pair. The server persists its SHA-256 hash so that
// rotation invalidates older instances immediately.
type RefreshToken struct {
	Token string
	Exp   time.Time
}

// AccessClaims holds the identity extracted from a verified access token.
// Role reflects the token's embedded claim; callers must still re-fetch
// the user's current role from the store before authorizing anything.
type AccessClaims struct {
	UserID   string
	Username string
	Role     string
	IP       string
}

// NewAccessToken builds and signs an HS256 JWT for a panel user. issuingIP
// may be empty; when set it is embedded so verification can compare it
// against the requesting address (log-only or enforced, per config).
func NewAccessToken(secret, userID, username, role, issuingIP string, ttl time.Duration) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":      userID,
		"username": username,
		"role":     role,
		"iat":      now.Unix(),
		"exp":      exp.Unix(),
	}
	if issuingIP != "" {
		claims["ip"] = issuingIP
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken builds and signs a refresh JWT carrying only the subject
// and the refresh type marker. A random jti makes every issued instance
// unique so the stored hash always refers to exactly one token.
func NewRefreshToken(secret, userID string, ttl time.Duration) (RefreshToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub": userID,
		"typ": tokenTypeRefresh,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies a raw access token and returns its claims.
// Rejects: malformed structure, non-HMAC algorithms, bad signatures,
// expired tokens, refresh tokens, and tokens missing sub or username.
func ParseAccessToken(secret, raw string) (AccessClaims, error) {
	claims, err := parseHS256(secret, raw)
	if err != nil {
		return AccessClaims{}, err
	}
	if typ, _ := claims["typ"].(string); typ == tokenTypeRefresh {
		return AccessClaims{}, ErrWrongTokenType
	}
	out := AccessClaims{}
	if out.UserID, _ = claims["sub"].(string); out.UserID == "" {
		return AccessClaims{}, ErrInvalidToken
	}
	if out.Username, _ = claims["username"].(string); out.Username == "" {
		return AccessClaims{}, ErrInvalidToken
	}
	out.Role, _ = claims["role"].(string)
	out.IP, _ = claims["ip"].(string)
	return out, nil
}

// ParseRefreshToken verifies a raw refresh token and returns the subject
// user id. An access token presented here fails with ErrWrongTokenType.
// Signature validity alone is not sufficient to honor a refresh token;
// callers must also check the value against the stored hash for the user.
func ParseRefreshToken(secret, raw string) (string, error) {
	claims, err := parseHS256(secret, raw)
	if err != nil {
		return "", err
	}
	if typ, _ := claims["typ"].(string); typ != tokenTypeRefresh {
		return "", ErrWrongTokenType
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// parseHS256 runs the shared validation path: segment count, algorithm
// pinning, signature and expiry.
func parseHS256(secret, raw string) (jwt.MapClaims, error) {
	// A JWT is exactly three dot-separated segments. Checking up front
	// keeps decoder error details out of the returned error and cheaply
	// rejects opaque tokens routed here by mistake.
	if strings.Count(raw, ".") != 2 {
		return nil, ErrMalformedToken
	}
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Pin the signing method to HMAC; anything else (none, RS256
		// with the shared secret as a public key, ...) is rejected
		// before signature verification.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HashToken returns the SHA-256 hex digest of a token value. Refresh and
// API tokens are stored hashed so a leaked store snapshot cannot be
// replayed as live credentials.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

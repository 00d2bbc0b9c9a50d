package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// opaqueTokenBytes yields 64 lowercase hex characters. The fixed shape is
// what lets identity extraction route a candidate credential to the
// API-token path without attempting JWT parsing first.
const opaqueTokenBytes = 32

// NewOpaqueToken returns a cryptographically random API token string.
// The cleartext is shown to the creating user exactly once; only its hash
// is stored.
func NewOpaqueToken() (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// IsOpaqueTokenShape reports whether a candidate credential looks like an
// opaque API token (exactly 64 lowercase hex characters). This is a
// routing optimization only, not a security boundary: a hex string that
// fails the API-token lookup is simply rejected, and a JWT can never have
// this shape.
func IsOpaqueTokenShape(s string) bool {
	if len(s) != opaqueTokenBytes*2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

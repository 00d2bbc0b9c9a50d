package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignRequest computes the HMAC-SHA256 request signature over the
// pipe-joined tuple (method, path-without-query, body, nonce, timestamp,
// subject). body is the JSON-serialized request body or the empty string;
// subject is the authenticated user id or the empty string. The result is
// lowercase hex.
func SignRequest(secret, method, path, body, nonce, timestamp, subject string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join([]string{method, path, body, nonce, timestamp, subject}, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the expected signature server-side and
// compares with hmac.Equal. A plain string comparison would leak the
// match prefix length through timing.
func VerifySignature(secret, signature, method, path, body, nonce, timestamp, subject string) bool {
	expected := SignRequest(secret, method, path, body, nonce, timestamp, subject)
	return hmac.Equal([]byte(expected), []byte(signature))
}

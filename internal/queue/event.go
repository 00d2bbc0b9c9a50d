// Package queue defines message payloads exchanged over the message broker.
package queue

// SecurityEvent is published for every security-relevant occurrence:
// failed logins, invalid tokens, replay attempts, rate-limit breaches,
// bot detections and blocklist hits. It carries enough context for
// downstream consumers to alert or aggregate without querying the store.
type SecurityEvent struct {
	ID       string `json:"id"`       // sortable ulid assigned at record time
	Kind     string `json:"kind"`     // e.g. "login_failed", "nonce_replayed"
	UserID   string `json:"user_id"`  // empty when no identity was resolved
	Username string `json:"username"` // as presented, may be unverified
	IP       string `json:"ip"`       // source address
	Detail   string `json:"detail"`   // free-form context
	At       string `json:"at"`       // RFC3339 timestamp
}

package model

import "time"

// AdminUser represents a panel account as stored in the key-value store.
// Records are serialized to JSON under `user:id:<id>` with a secondary
// index `user:name:<username>` pointing at the id. The password hash never leaves the
// repository layer; handlers define their own response types.
//
// Fields:
//  ID           – opaque unique identifier (uuid).
//  Username     – unique login name, stored lower-cased.
//  PasswordHash – bcrypt hashed password.
//  Role         – normalized role name (see role.go).
//  Primary      – true only for the account matching the configured
//                 primary-admin username; such an account cannot be
//                 deleted and its role/password are managed from config.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type AdminUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Role         Role      `json:"role"`
	Primary      bool      `json:"primary"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// APIToken models an opaque long-lived credential. Unlike session JWTs it
// is not self-contained: every use is checked against this record. The
// cleartext value is returned to the client exactly once at creation; only
// a SHA-256 hash of it is kept for lookup.
//
// Fields:
//  ID        – identifier used for revoke/delete operations.
//  UserID    – owning user.
//  Name      – human-readable label chosen at creation.
//  Hash      – SHA-256 hex digest of the token value.
//  Active    – false once revoked.
//  CreatedAt – creation timestamp.
//  ExpiresAt – hard expiry; verification fails past this point even if
//              the record still exists.
type APIToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Hash      string    `json:"hash"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the token is past its expiry at the given instant.
func (t APIToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

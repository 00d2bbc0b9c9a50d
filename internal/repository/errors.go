// Sentinel error values reused across repositories. These let handlers
// distinguish failure scenarios without inspecting error strings:
// ErrForbidden marks an operation on someone else's resource, while
// ErrPrimaryAdmin marks an attempt to remove or demote the configured
// primary account. The handlers decide what HTTP status each becomes.
package repository

import "errors"

// ErrNotFound is returned when a key or record does not exist. Store
// implementations translate their native miss value into this.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.
var ErrForbidden = errors.New("forbidden")

// ErrUsernameExists is returned when creating a user whose username is
// already taken.
var ErrUsernameExists = errors.New("username already exists")

// ErrPrimaryAdmin is returned for delete or demote attempts against the
// primary admin account.
var ErrPrimaryAdmin = errors.New("primary admin account is protected")

// ErrNonceReplayed is returned when a nonce has already been consumed
// within its validity window.
var ErrNonceReplayed = errors.New("nonce already used")

// ErrNonceExpired is returned when a nonce timestamp is outside the
// acceptance window (too old, or implausibly in the future).
var ErrNonceExpired = errors.New("nonce timestamp out of window")

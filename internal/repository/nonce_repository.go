package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

const nonceKeyPrefix = "nonce:"

// Nonce acceptance window: a timestamp older than maxAge is stale, one
// more than maxSkew in the future is implausible for any real clock drift.
const (
	nonceMaxAge  = 300 * time.Second
	nonceMaxSkew = 5 * time.Second
	nonceTTL     = 5 * time.Minute
)

// NonceRepo implements one-time-use request nonces. Verification and
// consumption are a single SetNX so two concurrent requests carrying the
// same nonce can never both pass.
type NonceRepo struct {
	Store Store
	Now   func() time.Time
}

func NewNonceRepo(s Store) *NonceRepo { return &NonceRepo{Store: s, Now: time.Now} }

// Generate returns a fresh random nonce and the current Unix timestamp.
// Nothing is stored at generation time; the value is only recorded when
// it is consumed.
func (r *NonceRepo) Generate() (string, int64, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(buf), r.Now().UTC().Unix(), nil
}

// CheckAndConsume validates a presented nonce and timestamp and, on
// success, writes the nonce to the store so it can never validate again
// within its window. Returns ErrNonceExpired for out-of-window
// timestamps and ErrNonceReplayed for reuse.
func (r *NonceRepo) CheckAndConsume(ctx context.Context, nonce string, timestamp int64) error {
	if nonce == "" || timestamp == 0 {
		return ErrNonceExpired
	}
	now := r.Now().UTC()
	ts := time.Unix(timestamp, 0)
	if now.Sub(ts) > nonceMaxAge {
		return ErrNonceExpired
	}
	if ts.Sub(now) > nonceMaxSkew {
		return ErrNonceExpired
	}
	ok, err := r.Store.SetNX(ctx, nonceKeyPrefix+nonce, "1", nonceTTL)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNonceReplayed
	}
	return nil
}

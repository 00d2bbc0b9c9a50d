package repository

import (
	"context"
	"time"
)

const (
	blockKeyPrefix      = "blocklist:"
	botCounterKeyPrefix = "botcount:"
)

// BlocklistRepo tracks temporarily blocked source IPs and the per-IP
// request counter feeding the automation heuristics.
type BlocklistRepo struct {
	Store Store
}

func NewBlocklistRepo(s Store) *BlocklistRepo { return &BlocklistRepo{Store: s} }

// Block places an IP on the blocklist for the given duration, recording
// the reason for later inspection.
func (r *BlocklistRepo) Block(ctx context.Context, ip, reason string, ttl time.Duration) error {
	return r.Store.Set(ctx, blockKeyPrefix+ip, reason, ttl)
}

// IsBlocked reports whether an IP is currently blocklisted. Store errors
// fail closed: an unreachable store blocks rather than admits.
func (r *BlocklistRepo) IsBlocked(ctx context.Context, ip string) (bool, error) {
	_, err := r.Store.Get(ctx, blockKeyPrefix+ip)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return true, err
	}
	return true, nil
}

// BumpCounter increments the per-IP request counter used by bot
// detection, applying the window TTL on first increment, and returns the
// running count.
func (r *BlocklistRepo) BumpCounter(ctx context.Context, ip string, window time.Duration) (int64, error) {
	return r.Store.Incr(ctx, botCounterKeyPrefix+ip, window)
}

package repository

import (
	"context"
	"time"

	"github.com/harvestlane/shop-api/internal/config"
)

// RateLimitRepo admits or rejects requests against per-subject sliding
// windows. The count-and-append step is a single atomic store operation,
// never a separate read-compare-write, so concurrent requests from one
// subject cannot race past the ceiling.
type RateLimitRepo struct {
	Store Store
	Cfg   config.RateLimitConfig
	Now   func() time.Time
}

func NewRateLimitRepo(s Store, cfg config.RateLimitConfig) *RateLimitRepo {
	return &RateLimitRepo{Store: s, Cfg: cfg, Now: time.Now}
}

// Allow records one request for the subject and reports whether it fits
// inside the window ceiling. kind namespaces the counters ("ip" or
// "user") so the two limits are independent. remaining is the budget left
// after this request, never negative.
func (r *RateLimitRepo) Allow(ctx context.Context, kind, subject string) (allowed bool, remaining int, err error) {
	key := r.Cfg.Prefix + ":" + kind + ":" + subject
	count, err := r.Store.SlideWindow(ctx, key, r.Now().UTC(), r.Cfg.Window)
	if err != nil {
		return false, 0, err
	}
	remaining = r.Cfg.Ceiling - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return count <= int64(r.Cfg.Ceiling), remaining, nil
}

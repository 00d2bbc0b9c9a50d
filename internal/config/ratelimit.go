package config

import "time"

// RateLimitConfig controls the sliding-window rate limiter. Two
// independent windows are kept per request: one keyed by client IP and,
// when authenticated, one keyed by user id. Either window exceeding the
// ceiling rejects the request.
type RateLimitConfig struct {
	Enabled bool
	Ceiling int           // admitted requests per window, per subject
	Window  time.Duration // trailing window length
	Prefix  string        // key namespace in the store
	Debug   bool
}

// LoadRateLimitConfig reads environment variables to build a
// RateLimitConfig. Defaults match the deployed panel: 30 requests per
// 60-second window.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled: envBool("RATE_LIMIT_ENABLED", true),
		Ceiling: envInt("RATE_LIMIT_CEILING", 30),
		Window:  envDur("RATE_LIMIT_WINDOW", time.Minute),
		Prefix:  envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:   envBool("RATE_LIMIT_DEBUG", false),
	}
	if cfg.Ceiling < 1 {
		cfg.Ceiling = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return cfg
}

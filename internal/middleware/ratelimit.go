package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/harvestlane/shop-api/internal/config"
	"github.com/harvestlane/shop-api/internal/obs"
	"github.com/harvestlane/shop-api/internal/repository"
	"github.com/harvestlane/shop-api/internal/security"
)

// RateLimit returns a middleware enforcing two independent sliding
// windows: one per client IP, and one per user id when the Identity
// middleware has already run. When the store is unreachable the
// middleware falls back to an in-process limiter with the same budget so
// admission control degrades instead of disappearing.
func RateLimit(cfg config.RateLimitConfig, limits *repository.RateLimitRepo, events *security.Recorder) echo.MiddlewareFunc {
	if !cfg.Enabled || limits == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return func(c echo.Context) error { return next(c) } }
	}

	// Shared across all subjects, so the fallback is stricter than the
	// per-subject windows. Acceptable for a degraded mode.
	fallback := rate.NewLimiter(rate.Limit(float64(cfg.Ceiling)/cfg.Window.Seconds()), cfg.Ceiling)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			subjects := [][2]string{{"ip", ip}}
			if uid := currentUserID(c); uid != "" {
				subjects = append(subjects, [2]string{"user", uid})
			}

			remaining := cfg.Ceiling
			for _, s := range subjects {
				allowed, rem, err := limits.Allow(c.Request().Context(), s[0], s[1])
				if err != nil {
					if cfg.Debug {
						c.Logger().Warnf("[ratelimit] store error for %s=%s: %v", s[0], s[1], err)
					}
					if !fallback.Allow() {
						return tooManyRequests(c, cfg, events, s[0], s[1])
					}
					continue
				}
				if rem < remaining {
					remaining = rem
				}
				if !allowed {
					return tooManyRequests(c, cfg, events, s[0], s[1])
				}
			}

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Ceiling))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			return next(c)
		}
	}
}

func tooManyRequests(c echo.Context, cfg config.RateLimitConfig, events *security.Recorder, kind, subject string) error {
	retry := int(cfg.Window.Seconds())
	c.Response().Header().Set("Retry-After", strconv.Itoa(retry))
	obs.RateLimitedTotal.WithLabelValues(kind).Inc()
	uid := ""
	if kind == "user" {
		uid = subject
	}
	events.Record(c.Request().Context(), security.KindRateLimited, uid, "", c.RealIP(), kind+" window exceeded")
	return c.JSON(http.StatusTooManyRequests, echo.Map{
		"success":     false,
		"error":       "rate limit exceeded",
		"retry_after": retry,
	})
}

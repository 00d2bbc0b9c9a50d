package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/harvestlane/shop-api/internal/config"
	"github.com/harvestlane/shop-api/internal/repository"
)

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }

// Write forwards to the client while capturing at most limit bytes.
// size counts every byte written, captured or not, so the cacheability
// check after the handler can tell a complete capture from a truncated one.
func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 {
		cw.buf.Write(b)
	} else if remain := cw.limit - cw.size; remain > 0 {
		if int64(len(b)) <= remain {
			cw.buf.Write(b)
		} else {
			cw.buf.Write(b[:remain])
		}
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// cachedResponse is the stored representation of a cache entry.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        string `json:"body"` // base64 of the captured bytes
}

// cacheKeyFrom builds a stable cache key honoring prefix/strategy.
// Strategies containing "user" mix in the authenticated user id so
// per-account responses are never served across accounts.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	route := c.Path()
	query := r.URL.RawQuery

	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		parts = append(parts, "route", route)
	case "route_query":
		parts = append(parts, "route", route, "q", query)
	case "user_route":
		parts = append(parts, "user", currentUserID(c), "route", route)
	default: // "user_route_query"
		parts = append(parts, "user", currentUserID(c), "route", route, "q", query)
	}

	tail := strings.Join(parts[1:], ":")
	sum := sha1.Sum([]byte(tail))
	return fmt.Sprintf("%s:%x", parts[0], sum[:])
}

// ResponseCache caches successful responses to the configured methods in
// the store. Used on read-heavy list endpoints; anything user-specific
// must run with a user-aware key strategy.
func ResponseCache(cfg config.CacheConfig, store repository.Store) echo.MiddlewareFunc {
	if !cfg.Enabled || store == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return func(c echo.Context) error { return next(c) } }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	maxBody := int64(cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}

			ctx := c.Request().Context()
			key := cacheKeyFrom(cfg, c)

			if raw, err := store.Get(ctx, key); err == nil {
				var cached cachedResponse
				if json.Unmarshal([]byte(raw), &cached) == nil {
					body, decErr := base64.StdEncoding.DecodeString(cached.Body)
					if decErr == nil {
						if cached.ContentType != "" {
							c.Response().Header().Set(echo.HeaderContentType, cached.ContentType)
						}
						c.Response().Header().Set("X-Cache", "HIT")
						c.Response().WriteHeader(cached.Status)
						if len(body) > 0 {
							_, _ = c.Response().Write(body)
						}
						return nil
					}
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}

			// Oversized bodies are served but never cached; a truncated
			// entry must not come back on a HIT.
			if cw.status == http.StatusOK && (maxBody <= 0 || cw.size <= maxBody) {
				body := cw.buf.Bytes()
				entry := cachedResponse{
					Status:      cw.status,
					ContentType: c.Response().Header().Get(echo.HeaderContentType),
					Body:        base64.StdEncoding.EncodeToString(body),
				}
				if payload, err := json.Marshal(entry); err == nil {
					_ = store.Set(context.Background(), key, string(payload), ttl)
				}
			}
			return nil
		}
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/harvestlane/shop-api/internal/config"
	"github.com/harvestlane/shop-api/internal/repository"
	"github.com/harvestlane/shop-api/internal/security"
)

func runLimited(t *testing.T, mw echo.MiddlewareFunc, uid string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/users", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if uid != "" {
		c.Set(CtxUserID, uid)
	}
	h := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	return rec
}

func TestRateLimitCeiling(t *testing.T) {
	store := repository.NewMemStore()
	cfg := config.RateLimitConfig{Enabled: true, Ceiling: 3, Window: time.Minute, Prefix: "rl"}
	mw := RateLimit(cfg, repository.NewRateLimitRepo(store, cfg), security.NewRecorder(store, false))

	for i := 0; i < cfg.Ceiling; i++ {
		rec := runLimited(t, mw, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, rec.Code)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "3" {
			t.Fatalf("request %d: limit header = %q", i+1, rec.Header().Get("X-RateLimit-Limit"))
		}
	}

	rec := runLimited(t, mw, "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("over ceiling: status = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("429 without Retry-After")
	}
}

func TestRateLimitPerUserWindow(t *testing.T) {
	store := repository.NewMemStore()
	// Per-IP budget high enough that only the user window can trip.
	cfg := config.RateLimitConfig{Enabled: true, Ceiling: 2, Window: time.Minute, Prefix: "rl"}
	mw := RateLimit(cfg, repository.NewRateLimitRepo(store, cfg), security.NewRecorder(store, false))

	// Two users behind the same IP alternate; each request spends from
	// both the shared IP window and the caller's own window.
	rec := runLimited(t, mw, "user-a")
	if rec.Code != http.StatusOK {
		t.Fatalf("user-a first: status = %d", rec.Code)
	}
	rec = runLimited(t, mw, "user-b")
	if rec.Code != http.StatusOK {
		t.Fatalf("user-b first: status = %d", rec.Code)
	}
	// The shared IP window (2 spent) rejects before either user window.
	rec = runLimited(t, mw, "user-a")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("shared ip window: status = %d", rec.Code)
	}
}

func TestRateLimitDisabledPassesThrough(t *testing.T) {
	store := repository.NewMemStore()
	cfg := config.RateLimitConfig{Enabled: false, Ceiling: 1, Window: time.Minute, Prefix: "rl"}
	mw := RateLimit(cfg, repository.NewRateLimitRepo(store, cfg), security.NewRecorder(store, false))

	for i := 0; i < 10; i++ {
		rec := runLimited(t, mw, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d while disabled: status = %d", i+1, rec.Code)
		}
	}
}

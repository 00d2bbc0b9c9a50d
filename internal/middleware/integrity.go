package middleware

// integrity.go is the composite request-integrity guard applied to
// state-changing admin operations. Check order: blocklist, origin
// allow-list, automation heuristics, then nonce + HMAC signature for
// mutating methods. Every rejection is a 403 (rate limiting, which
// returns 429, lives in ratelimit.go) and is recorded as a security
// event before the response goes out. The whole guard sits behind the
// INTEGRITY_CHECKS_ENABLED flag; identity and role checks run regardless.

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/harvestlane/shop-api/internal/config"
	"github.com/harvestlane/shop-api/internal/model"
	"github.com/harvestlane/shop-api/internal/obs"
	"github.com/harvestlane/shop-api/internal/repository"
	"github.com/harvestlane/shop-api/internal/security"
	"github.com/harvestlane/shop-api/internal/utils"
)

// Request headers consumed by the guard.
const (
	HeaderNonce       = "x-nonce"
	HeaderTimestamp   = "x-timestamp"
	HeaderSignature   = "x-signature"
	HeaderFingerprint = "x-fingerprint"
)

// GuardDeps bundles everything the integrity guard consults.
type GuardDeps struct {
	Cfg       config.Config
	Bot       config.BotConfig
	Nonces    *repository.NonceRepo
	Blocklist *repository.BlocklistRepo
	Events    *security.Recorder
}

// IntegrityGuard returns the composite check middleware.
func IntegrityGuard(d GuardDeps) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !d.Cfg.IntegrityChecks || c.Request().Method == http.MethodOptions {
				return next(c)
			}
			ctx := c.Request().Context()
			ip := c.RealIP()
			uid := currentUserID(c)

			blocked, err := d.Blocklist.IsBlocked(ctx, ip)
			if err != nil || blocked {
				// Store errors land here too: the guard fails closed.
				d.Events.Record(ctx, security.KindBlocklistHit, uid, "", ip, "blocked ip rejected")
				return forbidden(c, "access denied")
			}

			if reason, bad := checkOrigin(c, d.Cfg.AllowedOrigins); bad {
				d.Events.Record(ctx, security.KindBadOrigin, uid, "", ip, reason)
				return forbidden(c, "origin not allowed")
			}

			counter, err := d.Blocklist.BumpCounter(ctx, ip, d.Bot.CounterWindow)
			if err != nil {
				counter = 0 // counter unavailable; UA/header signals still apply
			}
			if reason, bot := DetectBot(c.Request(), fingerprintFrom(c), counter, d.Bot); bot {
				obs.BotDetectionsTotal.Inc()
				d.Events.Record(ctx, security.KindBotDetected, uid, "", ip, reason)
				_ = d.Blocklist.Block(ctx, ip, reason, d.Bot.BlockTTL)
				return forbidden(c, "automated traffic rejected")
			}

			if isMutating(c.Request().Method) {
				if err := checkSignature(c, d, uid, ip); err != nil {
					return err
				}
			}
			return next(c)
		}
	}
}

// checkSignature validates the nonce and the HMAC over the canonical
// request tuple. The nonce check consumes the nonce in the same store
// operation, closing the window between two concurrent uses.
func checkSignature(c echo.Context, d GuardDeps, uid, ip string) error {
	ctx := c.Request().Context()
	nonce := c.Request().Header.Get(HeaderNonce)
	tsRaw := c.Request().Header.Get(HeaderTimestamp)
	sig := c.Request().Header.Get(HeaderSignature)
	if nonce == "" || tsRaw == "" || sig == "" {
		d.Events.Record(ctx, security.KindBadSignature, uid, "", ip, "missing signature headers")
		return forbidden(c, "request signature required")
	}
	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		d.Events.Record(ctx, security.KindBadSignature, uid, "", ip, "non-numeric timestamp")
		return forbidden(c, "invalid request signature")
	}

	if err := d.Nonces.CheckAndConsume(ctx, nonce, ts); err != nil {
		kind := security.KindBadSignature
		if err == repository.ErrNonceReplayed {
			kind = security.KindNonceReplayed
		}
		d.Events.Record(ctx, kind, uid, "", ip, err.Error())
		return forbidden(c, "invalid request signature")
	}

	// The body participates in the signature; read it and hand the
	// handler a fresh reader.
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return forbidden(c, "invalid request signature")
	}
	c.Request().Body = io.NopCloser(bytes.NewReader(body))

	ok := utils.VerifySignature(d.Cfg.SignatureSecret, sig, c.Request().Method, c.Request().URL.Path, string(body), nonce, tsRaw, uid)
	if !ok {
		d.Events.Record(ctx, security.KindBadSignature, uid, "", ip, "signature mismatch")
		return forbidden(c, "invalid request signature")
	}
	return nil
}

// checkOrigin rejects browser requests whose Origin (or Referer, when no
// Origin is present) does not match the allow-list. Requests carrying
// neither header (API clients) pass.
func checkOrigin(c echo.Context, allowed []string) (string, bool) {
	if len(allowed) == 0 {
		return "", false
	}
	origin := c.Request().Header.Get("Origin")
	if origin == "" {
		origin = c.Request().Header.Get("Referer")
	}
	if origin == "" {
		return "", false
	}
	for _, a := range allowed {
		if strings.HasPrefix(origin, a) {
			return "", false
		}
	}
	return "origin " + origin + " not in allow-list", true
}

// fingerprintFrom decodes the optional x-fingerprint header. Garbage is
// treated as absent; the heuristics handle nil.
func fingerprintFrom(c echo.Context) *model.Fingerprint {
	raw := c.Request().Header.Get(HeaderFingerprint)
	if raw == "" {
		return nil
	}
	var fp model.Fingerprint
	if err := json.Unmarshal([]byte(raw), &fp); err != nil {
		return nil
	}
	return &fp
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func forbidden(c echo.Context, msg string) error {
	return c.JSON(http.StatusForbidden, echo.Map{"success": false, "error": msg})
}

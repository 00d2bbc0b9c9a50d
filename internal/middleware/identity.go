package middleware // middleware provides shared request processing for handlers

// identity.go resolves the caller's identity for protected routes. The
// candidate credential is taken from the adminToken cookie first, falling
// back to the Authorization header. A 64-lowercase-hex candidate is
// routed to the opaque API-token path before any JWT parsing is
// attempted; everything else goes through signed-token verification. In
// both cases the user record is re-fetched from the store, so a role
// downgrade or a deleted account takes effect before token expiry.

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/harvestlane/shop-api/internal/config"
	"github.com/harvestlane/shop-api/internal/repository"
	"github.com/harvestlane/shop-api/internal/security"
	"github.com/harvestlane/shop-api/internal/utils"
)

// Context keys set by Identity for downstream middleware and handlers.
const (
	CtxUserID   = "user_id"
	CtxUsername = "username"
	CtxRole     = "role"
)

// AccessCookieName is the session cookie carrying the access token.
const AccessCookieName = "adminToken"

// Identity returns a middleware that authenticates the request and
// injects user_id, username and role into the context. Requests without
// a resolvable identity are rejected with 401; store failures during
// verification also reject (fail closed).
func Identity(cfg config.Config, users *repository.UserRepo, tokens *repository.TokenRepo, events *security.Recorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			candidate := extractCredential(c)
			if candidate == "" {
				return unauthorized(c, "authentication required")
			}
			ip := c.RealIP()

			if utils.IsOpaqueTokenShape(candidate) {
				tok, err := tokens.VerifyAPIToken(c.Request().Context(), utils.HashToken(candidate))
				if err != nil {
					events.Record(c.Request().Context(), security.KindTokenMisuse, "", "", ip, "api token rejected")
					return unauthorized(c, "invalid token")
				}
				u, err := users.GetByID(c.Request().Context(), tok.UserID)
				if err != nil {
					// Owner gone (or store unreachable): the token no
					// longer maps to a live account.
					events.Record(c.Request().Context(), security.KindTokenMisuse, tok.UserID, "", ip, "api token for missing user")
					return unauthorized(c, "invalid token")
				}
				setIdentity(c, u.ID, u.Username, string(u.Role))
				return next(c)
			}

			claims, err := utils.ParseAccessToken(cfg.JWTSecret, candidate)
			if err != nil {
				events.Record(c.Request().Context(), security.KindInvalidToken, "", "", ip, err.Error())
				return unauthorized(c, "invalid token")
			}
			u, err := users.GetByID(c.Request().Context(), claims.UserID)
			if err != nil {
				events.Record(c.Request().Context(), security.KindInvalidToken, claims.UserID, claims.Username, ip, "subject no longer exists")
				return unauthorized(c, "invalid token")
			}
			if claims.IP != "" && cfg.IPCheckMode != "off" && claims.IP != ip {
				events.Record(c.Request().Context(), security.KindIPMismatch, u.ID, u.Username, ip, "token issued to "+claims.IP)
				if cfg.IPCheckMode == "enforce" {
					return unauthorized(c, "invalid token")
				}
			}
			// The store role wins over whatever the token says.
			setIdentity(c, u.ID, u.Username, string(u.Role))
			return next(c)
		}
	}
}

// extractCredential pulls the raw token from the adminToken cookie or,
// failing that, a Bearer authorization header.
func extractCredential(c echo.Context) string {
	if ck, err := c.Cookie(AccessCookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	auth := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

func setIdentity(c echo.Context, id, username, role string) {
	c.Set(CtxUserID, id)
	c.Set(CtxUsername, username)
	c.Set(CtxRole, role)
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": msg})
}

// currentUserID returns the authenticated user id from context, empty
// when the request is anonymous.
func currentUserID(c echo.Context) string {
	if v, ok := c.Get(CtxUserID).(string); ok {
		return v
	}
	return ""
}

package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/harvestlane/shop-api/internal/config"
	"github.com/harvestlane/shop-api/internal/middleware"
	"github.com/harvestlane/shop-api/internal/model"
	"github.com/harvestlane/shop-api/internal/obs"
	"github.com/harvestlane/shop-api/internal/repository"
	"github.com/harvestlane/shop-api/internal/security"
	"github.com/harvestlane/shop-api/internal/utils"
)

// RefreshCookieName carries the refresh token between sessions.
const RefreshCookieName = "refreshToken"

// AuthHandler bundles dependencies for the session endpoints.
type AuthHandler struct {
	Cfg       config.Config
	BotCfg    config.BotConfig
	Users     *repository.UserRepo
	Tokens    *repository.TokenRepo
	Nonces    *repository.NonceRepo
	Blocklist *repository.BlocklistRepo
	Events    *security.Recorder
}

func NewAuthHandler(cfg config.Config, botCfg config.BotConfig, u *repository.UserRepo, t *repository.TokenRepo, n *repository.NonceRepo, b *repository.BlocklistRepo, ev *security.Recorder) *AuthHandler {
	return &AuthHandler{Cfg: cfg, BotCfg: botCfg, Users: u, Tokens: t, Nonces: n, Blocklist: b, Events: ev}
}

// ----- DTOs -----

type loginReq struct {
	Username    string             `json:"username"`
	Password    string             `json:"password"`
	Fingerprint *model.Fingerprint `json:"fingerprint"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type userPart struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}
type authResp struct {
	Success      bool     `json:"success"`
	Token        string   `json:"token"`
	RefreshToken string   `json:"refreshToken"`
	User         userPart `json:"user"`
}

// Login verifies credentials and returns a new token pair. All failure
// modes share one generic message and, for unknown users, a burned
// bcrypt comparison so the response cannot distinguish wrong-user from
// wrong-password.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if req.Username == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "username/password required")
	}
	ctx := c.Request().Context()
	ip := c.RealIP()

	// Self-reported fingerprints are inspected even on login; a positive
	// verdict blocks the source for a while when the integrity guard is
	// on, and is merely recorded otherwise.
	if reason, bot := middleware.DetectBot(c.Request(), req.Fingerprint, 0, h.BotCfg); bot {
		obs.BotDetectionsTotal.Inc()
		h.Events.Record(ctx, security.KindBotDetected, "", req.Username, ip, reason)
		if h.Cfg.IntegrityChecks {
			_ = h.Blocklist.Block(ctx, ip, reason, h.BotCfg.BlockTTL)
			return fail(c, http.StatusForbidden, "automated traffic rejected")
		}
	}

	var (
		u   model.AdminUser
		err error
	)
	if req.Username == strings.ToLower(h.Cfg.AdminUsername) {
		// Check against deployment configuration before touching the
		// store; a failed guess at the admin username must not cost a
		// bcrypt hash or a sync write. The burned comparison keeps the
		// timing in line with the stored-hash path.
		if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.Cfg.AdminPassword)) != 1 {
			utils.BurnPasswordCheck(req.Password)
			obs.LoginsTotal.WithLabelValues("failure").Inc()
			h.Events.Record(ctx, security.KindLoginFailed, "", req.Username, ip, "wrong password")
			return fail(c, http.StatusUnauthorized, "invalid credentials")
		}
		// The primary admin is re-synced from deployment configuration
		// on every successful login, so a rotated ADMIN_PASSWORD applies
		// at once.
		u, err = h.Users.EnsurePrimary(ctx, h.Cfg.AdminUsername, h.Cfg.AdminPassword, h.Cfg.BcryptCost)
		if err != nil {
			return internalError(c, h.Cfg, err)
		}
	} else {
		u, err = h.Users.GetByUsername(ctx, req.Username)
		if err != nil {
			// Unknown user and store failure take the same path; the
			// dummy hash comparison keeps the timing flat.
			utils.BurnPasswordCheck(req.Password)
			obs.LoginsTotal.WithLabelValues("failure").Inc()
			h.Events.Record(ctx, security.KindLoginFailed, "", req.Username, ip, "unknown user")
			return fail(c, http.StatusUnauthorized, "invalid credentials")
		}
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		obs.LoginsTotal.WithLabelValues("failure").Inc()
		h.Events.Record(ctx, security.KindLoginFailed, u.ID, u.Username, ip, "wrong password")
		return fail(c, http.StatusUnauthorized, "invalid credentials")
	}

	resp, err := h.issuePair(c, u, ip)
	if err != nil {
		return internalError(c, h.Cfg, err)
	}
	obs.LoginsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, resp)
}

// Refresh exchanges a valid refresh token for a new pair. The stored
// hash is rotated first, so a second call with the same token fails.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := refreshTokenFrom(c)
	if raw == "" {
		return fail(c, http.StatusBadRequest, "refresh token required")
	}
	ctx := c.Request().Context()
	ip := c.RealIP()

	userID, err := utils.ParseRefreshToken(h.Cfg.JWTSecret, raw)
	if err != nil {
		obs.TokenRefreshTotal.WithLabelValues("failure").Inc()
		h.Events.Record(ctx, security.KindInvalidToken, "", "", ip, "refresh: "+err.Error())
		return fail(c, http.StatusUnauthorized, "invalid refresh token")
	}
	// Signature validity is necessary but not sufficient: the presented
	// token must also be the one currently on record for the user.
	if err := h.Tokens.ValidateRefresh(ctx, userID, utils.HashToken(raw)); err != nil {
		obs.TokenRefreshTotal.WithLabelValues("failure").Inc()
		h.Events.Record(ctx, security.KindInvalidToken, userID, "", ip, "refresh token not on record")
		return fail(c, http.StatusUnauthorized, "invalid refresh token")
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		obs.TokenRefreshTotal.WithLabelValues("failure").Inc()
		return fail(c, http.StatusUnauthorized, "invalid refresh token")
	}

	resp, err := h.issuePair(c, u, ip)
	if err != nil {
		return internalError(c, h.Cfg, err)
	}
	obs.TokenRefreshTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, resp)
}

// Logout drops the server-side refresh record and clears both cookies.
// Runs behind the Identity middleware.
func (h *AuthHandler) Logout(c echo.Context) error {
	userID, _, _ := identityFrom(c)
	if err := h.Tokens.DeleteRefresh(c.Request().Context(), userID); err != nil && err != repository.ErrNotFound {
		return internalError(c, h.Cfg, err)
	}
	clearCookie(c, middleware.AccessCookieName)
	clearCookie(c, RefreshCookieName)
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Me returns the authenticated identity.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, username, role := identityFrom(c)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    userPart{ID: userID, Username: username, Role: role},
	})
}

// Nonce hands out a fresh nonce and server timestamp for request
// signing. Nothing is stored until the nonce is consumed.
func (h *AuthHandler) Nonce(c echo.Context) error {
	nonce, ts, err := h.Nonces.Generate()
	if err != nil {
		return internalError(c, h.Cfg, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "nonce": nonce, "timestamp": ts})
}

// issuePair mints an access and refresh token, persists the refresh hash
// (overwriting any previous one) and sets both cookies.
func (h *AuthHandler) issuePair(c echo.Context, u model.AdminUser, ip string) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Username, string(u.Role), ip, h.Cfg.AccessTTL)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.JWTSecret, u.ID, h.Cfg.RefreshTTL)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(c.Request().Context(), u.ID, utils.HashToken(refresh.Token), h.Cfg.RefreshTTL); err != nil {
		return authResp{}, err
	}
	setCookie(c, middleware.AccessCookieName, access.Token, int(h.Cfg.AccessTTL.Seconds()))
	setCookie(c, RefreshCookieName, refresh.Token, int(h.Cfg.RefreshTTL.Seconds()))
	return authResp{
		Success:      true,
		Token:        access.Token,
		RefreshToken: refresh.Token,
		User:         userPart{ID: u.ID, Username: u.Username, Role: string(u.Role)},
	}, nil
}

// refreshTokenFrom reads the refresh token from the cookie first, then
// the request body.
func refreshTokenFrom(c echo.Context) string {
	if ck, err := c.Cookie(RefreshCookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	var req refreshReq
	_ = c.Bind(&req)
	return strings.TrimSpace(req.RefreshToken)
}

func setCookie(c echo.Context, name, value string, maxAge int) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearCookie(c echo.Context, name string) {
	setCookie(c, name, "", -1)
}

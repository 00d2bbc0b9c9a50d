package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/harvestlane/shop-api/internal/config"
	"github.com/harvestlane/shop-api/internal/handler"
	"github.com/harvestlane/shop-api/internal/middleware"
	"github.com/harvestlane/shop-api/internal/model"
	"github.com/harvestlane/shop-api/internal/obs"
	"github.com/harvestlane/shop-api/internal/repository"
	"github.com/harvestlane/shop-api/internal/security"
)

// Deps collects everything route registration needs. Constructed once in
// main and threaded through so no package keeps global state.
type Deps struct {
	Cfg      config.Config
	BotCfg   config.BotConfig
	RateCfg  config.RateLimitConfig
	CacheCfg config.CacheConfig
	Store    repository.Store
	Users    *repository.UserRepo
	Tokens   *repository.TokenRepo
	Nonces   *repository.NonceRepo
	Limits   *repository.RateLimitRepo
	Blocks   *repository.BlocklistRepo
	Events   *security.Recorder
}

// Register wires all routes and middleware onto the Echo instance.
//
// Middleware layering on protected routes: identity first (so the
// per-user rate window and the signature subject are available), then
// rate limiting, then the integrity guard, then per-route role checks.
func Register(e *echo.Echo, d Deps) {
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     corsOrigins(d.Cfg),
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, middleware.HeaderNonce, middleware.HeaderTimestamp, middleware.HeaderSignature, middleware.HeaderFingerprint},
		AllowCredentials: true,
	}))

	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(obs.Handler()))

	authH := handler.NewAuthHandler(d.Cfg, d.BotCfg, d.Users, d.Tokens, d.Nonces, d.Blocks, d.Events)
	tokenH := handler.NewAPITokenHandler(d.Cfg, d.Tokens, d.Events)
	userH := handler.NewUserHandler(d.Cfg, d.Users, d.Events)

	rateLimit := middleware.RateLimit(d.RateCfg, d.Limits, d.Events)
	identity := middleware.Identity(d.Cfg, d.Users, d.Tokens, d.Events)
	guard := middleware.IntegrityGuard(middleware.GuardDeps{
		Cfg:       d.Cfg,
		Bot:       d.BotCfg,
		Nonces:    d.Nonces,
		Blocklist: d.Blocks,
		Events:    d.Events,
	})

	// Public session endpoints: rate limited by IP only, no identity.
	pub := e.Group("/v1/auth")
	pub.Use(rateLimit)
	pub.POST("/login", authH.Login)
	pub.POST("/refresh", authH.Refresh)
	pub.GET("/nonce", authH.Nonce)

	// Protected endpoints: any recognized role may read its own session
	// and tokens; user management needs manager (read) or admin (write).
	auth := e.Group("/v1")
	auth.Use(identity, rateLimit, guard)

	auth.GET("/me", authH.Me, middleware.RequireRole(model.RoleEditor))
	auth.POST("/auth/logout", authH.Logout, middleware.RequireRole(model.RoleEditor))

	auth.GET("/auth/tokens", tokenH.List, middleware.RequireRole(model.RoleEditor),
		middleware.ResponseCache(d.CacheCfg, d.Store))
	auth.POST("/auth/tokens", tokenH.Create, middleware.RequireRole(model.RoleEditor))
	auth.DELETE("/auth/tokens", tokenH.Manage, middleware.RequireRole(model.RoleEditor))

	auth.GET("/users", userH.List, middleware.RequireRole(model.RoleManager))
	auth.POST("/users", userH.Create, middleware.RequireRole(model.RoleAdmin))
	auth.PUT("/users/:id", userH.Update, middleware.RequireRole(model.RoleAdmin))
	auth.DELETE("/users/:id", userH.Delete, middleware.RequireRole(model.RoleAdmin))
}

func corsOrigins(cfg config.Config) []string {
	if len(cfg.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.AllowedOrigins
}

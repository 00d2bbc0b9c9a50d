package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/harvestlane/shop-api/internal/config"
	"github.com/harvestlane/shop-api/internal/obs"
	"github.com/harvestlane/shop-api/internal/repository"
	"github.com/harvestlane/shop-api/internal/router"
	"github.com/harvestlane/shop-api/internal/security"
)

func main() {
	_ = godotenv.Load() // optional .env for local runs

	cfg := config.Load() // fails fast on missing or placeholder secrets
	obs.Init()

	var store repository.Store
	if rdb := config.NewRedisClient(); rdb != nil {
		store = repository.NewRedisStore(rdb)
	} else if cfg.Dev() {
		// Local development only. Auth state is in-process and lost on
		// restart; production refuses to run without the real store.
		log.Println("redis unreachable, using in-memory store (dev mode)")
		store = repository.NewMemStore()
	} else {
		log.Fatal("redis unreachable; refusing to start without a store")
	}

	// Broker publishing only when a broker is actually configured; the
	// log, metric and store sinks always run.
	publish := os.Getenv("RABBITMQ_URL") != "" || os.Getenv("AMQP_URL") != ""
	events := security.NewRecorder(store, publish)

	deps := router.Deps{
		Cfg:      cfg,
		BotCfg:   config.LoadBotConfig(),
		RateCfg:  config.LoadRateLimitConfig(),
		CacheCfg: config.LoadCacheConfig(),
		Store:    store,
		Users:    repository.NewUserRepo(store),
		Tokens:   repository.NewTokenRepo(store),
		Nonces:   repository.NewNonceRepo(store),
		Blocks:   repository.NewBlocklistRepo(store),
		Events:   events,
	}
	deps.Limits = repository.NewRateLimitRepo(store, deps.RateCfg)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, deps)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, integrity_checks=%v)", addr, cfg.Env, cfg.IntegrityChecks)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

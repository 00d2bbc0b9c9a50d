package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings" // strings splits list-valued variables
	"time"    // time parses TTL durations
)

// placeholderSecrets lists values that have shipped as defaults in config
// templates at some point. Starting with any of them (or an empty secret)
// would mean every deployment signs tokens with a guessable key, so Load
// refuses to proceed instead of falling back.
var placeholderSecrets = map[string]bool{
	"secret":          true,
	"changeme":        true,
	"change-me":       true,
	"default":         true,
	"placeholder":     true,
	"dev-secret":      true,
	"supersecret":     true,
	"your-secret-key": true,
}

// minSecretLength is the shortest signing secret accepted at startup.
const minSecretLength = 16

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. Secrets are validated at load time; a
// missing or placeholder signing secret is a fatal startup error, never a
// silent fallback.
type Config struct {
	Env             string        // application environment (e.g. "dev", "prod")
	Port            string        // HTTP port to listen on
	JWTSecret       string        // secret used to sign session JWTs
	SignatureSecret string        // secret for request signatures; defaults to JWTSecret
	AccessTTL       time.Duration // access token validity window
	RefreshTTL      time.Duration // refresh token validity window
	BcryptCost      int           // bcrypt cost for password hashing
	AdminUsername   string        // username of the distinguished primary admin
	AdminPassword   string        // primary admin password, re-synced on each login
	AllowedOrigins  []string      // origin allow-list for browser requests
	IntegrityChecks bool          // enable the request integrity guard
	IPCheckMode     string        // access-token IP binding: "off", "log" or "enforce"
}

// Load reads configuration from environment variables and returns a
// Config. Required variables are enforced by must() and invalid secrets
// abort startup with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:             must("APP_ENV"),
		Port:            must("APP_PORT"),
		JWTSecret:       mustSecret("JWT_SECRET"),
		SignatureSecret: os.Getenv("SIGNATURE_SECRET"),
		AccessTTL:       envDur("ACCESS_TOKEN_TTL", 2*time.Hour),
		RefreshTTL:      envDur("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		BcryptCost:      envInt("BCRYPT_COST", 10),
		AdminUsername:   must("ADMIN_USERNAME"),
		AdminPassword:   must("ADMIN_PASSWORD"),
		AllowedOrigins:  splitList(os.Getenv("ALLOWED_ORIGINS")),
		IntegrityChecks: envBool("INTEGRITY_CHECKS_ENABLED", false),
		IPCheckMode:     envStr("IP_CHECK_MODE", "log"),
	}
	if cfg.SignatureSecret == "" {
		// Distinct signature secret is preferred but optional; the JWT
		// secret has already passed validation at this point.
		cfg.SignatureSecret = cfg.JWTSecret
	} else {
		validateSecret("SIGNATURE_SECRET", cfg.SignatureSecret)
	}
	switch cfg.IPCheckMode {
	case "off", "log", "enforce":
	default:
		log.Fatalf("IP_CHECK_MODE must be off, log or enforce, got %q", cfg.IPCheckMode)
	}
	return cfg
}

// Dev reports whether the service runs in development mode. Internal
// error details are only ever surfaced to clients in dev.
func (c Config) Dev() bool { return c.Env == "dev" }

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustSecret is must() plus the placeholder/length validation applied to
// signing secrets.
func mustSecret(key string) string {
	v := must(key)
	validateSecret(key, v)
	return v
}

func validateSecret(key, v string) {
	if placeholderSecrets[strings.ToLower(v)] {
		log.Fatalf("%s is set to a known placeholder value; refusing to start", key)
	}
	if len(v) < minSecretLength {
		log.Fatalf("%s must be at least %d characters", key, minSecretLength)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Shared env helpers, also used by ratelimit.go, cache.go and bot.go.

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}

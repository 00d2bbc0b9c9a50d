package config

import "time"

// BotConfig controls the automation heuristics. The timezone and
// hardware-concurrency fingerprint signals have a high false-positive
// rate (privacy browsers, low-end devices), so each can be switched off
// independently without disabling detection as a whole.
type BotConfig struct {
	Enabled           bool
	TimezoneSignal    bool          // flag UTC timezone combined with en-US language
	ConcurrencySignal bool          // flag hardwareConcurrency below 2
	CounterCeiling    int           // per-IP requests per CounterWindow before flagging
	CounterWindow     time.Duration // TTL of the per-IP request counter
	BlockTTL          time.Duration // how long a detected IP stays blocklisted
}

// LoadBotConfig reads environment variables to build a BotConfig.
func LoadBotConfig() BotConfig {
	return BotConfig{
		Enabled:           envBool("BOT_DETECTION_ENABLED", true),
		TimezoneSignal:    envBool("BOT_SIGNAL_TIMEZONE", true),
		ConcurrencySignal: envBool("BOT_SIGNAL_CONCURRENCY", true),
		CounterCeiling:    envInt("BOT_COUNTER_CEILING", 100),
		CounterWindow:     envDur("BOT_COUNTER_WINDOW", time.Minute),
		BlockTTL:          envDur("BOT_BLOCK_TTL", time.Hour),
	}
}

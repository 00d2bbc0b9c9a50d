package middleware

// botdetect.go holds the automation heuristics. Each classifier returns
// reasons rather than booleans so a positive verdict carries an
// explanation into the security log. All signals are heuristic: the
// fingerprint is self-reported by the client and a determined scraper can
// fake every one of them, so a positive result only ever feeds the
// temporary blocklist, never a permanent ban.

import (
	"net/http"
	"strings"

	"github.com/harvestlane/shop-api/internal/config"
	"github.com/harvestlane/shop-api/internal/model"
)

// automationMarkers are case-insensitive user-agent substrings of known
// headless frameworks, scripting HTTP clients and generic crawlers.
var automationMarkers = []string{
	"headless", "phantomjs", "puppeteer", "playwright", "selenium",
	"webdriver", "bot", "crawler", "spider", "scrapy",
	"curl", "wget", "python-requests", "python", "go-http-client",
	"okhttp", "httpclient", "java",
}

// browserMarkers are substrings at least one of which appears in every
// mainstream browser's user agent.
var browserMarkers = []string{
	"mozilla", "chrome", "safari", "firefox", "edge", "opera",
}

// ClassifyUserAgent returns a suspicion reason for empty user agents,
// known automation tooling, and strings lacking every mainstream-browser
// marker. A clean agent returns ("", false).
func ClassifyUserAgent(ua string) (string, bool) {
	if strings.TrimSpace(ua) == "" {
		return "empty user agent", true
	}
	lower := strings.ToLower(ua)
	for _, marker := range automationMarkers {
		if strings.Contains(lower, marker) {
			return "automation marker: " + marker, true
		}
	}
	for _, marker := range browserMarkers {
		if strings.Contains(lower, marker) {
			return "", false
		}
	}
	return "no browser marker", true
}

// ClassifyHeaders returns suspicion reasons derived from the request
// headers browsers always send.
func ClassifyHeaders(r *http.Request) []string {
	var reasons []string
	if r.Header.Get("Accept") == "" {
		reasons = append(reasons, "missing accept header")
	} else {
		accept := strings.ToLower(r.Header.Get("Accept"))
		if !strings.Contains(accept, "html") && !strings.Contains(accept, "json") && !strings.Contains(accept, "*/*") {
			reasons = append(reasons, "accept names neither html nor json")
		}
	}
	if lang := r.Header.Get("Accept-Language"); lang == "" {
		reasons = append(reasons, "missing accept-language header")
	} else if len(lang) < 2 {
		reasons = append(reasons, "implausibly short accept-language")
	}
	if r.Header.Get("User-Agent") == "" {
		reasons = append(reasons, "missing user-agent header")
	}
	return reasons
}

// ClassifyFingerprint returns suspicion reasons from an optional
// client-supplied fingerprint. The timezone and hardware-concurrency
// signals can be switched off in BotConfig because they also fire on
// privacy browsers and low-end devices.
func ClassifyFingerprint(fp *model.Fingerprint, ua string, cfg config.BotConfig) []string {
	if fp == nil {
		return nil
	}
	var reasons []string
	if fp.Webdriver {
		reasons = append(reasons, "webdriver flag set")
	}
	if fp.ScreenWidth == 0 || fp.ScreenHeight == 0 {
		reasons = append(reasons, "zero screen dimensions")
	}
	if fp.WindowWidth == 0 || fp.WindowHeight == 0 {
		reasons = append(reasons, "zero window dimensions")
	}
	lower := strings.ToLower(ua)
	if fp.PluginCount == 0 && (strings.Contains(lower, "chrome") || strings.Contains(lower, "firefox")) {
		reasons = append(reasons, "no plugins on a plugin-capable browser")
	}
	if cfg.ConcurrencySignal && fp.HardwareConcurrency < 2 {
		reasons = append(reasons, "hardware concurrency below 2")
	}
	if fp.DeviceMemory == 0 {
		reasons = append(reasons, "device memory unknown")
	}
	if cfg.TimezoneSignal && fp.Timezone == "UTC" && strings.HasPrefix(strings.ToLower(fp.Language), "en-us") {
		reasons = append(reasons, "utc timezone with en-us language")
	}
	return reasons
}

// DetectBot runs every classifier over the request plus an optional
// fingerprint and returns the first suspicion reason, if any. counter is
// the per-IP request count within the bot window; exceeding the ceiling
// is itself a verdict.
func DetectBot(r *http.Request, fp *model.Fingerprint, counter int64, cfg config.BotConfig) (string, bool) {
	if !cfg.Enabled {
		return "", false
	}
	if reason, bad := ClassifyUserAgent(r.Header.Get("User-Agent")); bad {
		return reason, true
	}
	if reasons := ClassifyHeaders(r); len(reasons) > 0 {
		return strings.Join(reasons, "; "), true
	}
	if reasons := ClassifyFingerprint(fp, r.Header.Get("User-Agent"), cfg); len(reasons) > 0 {
		return strings.Join(reasons, "; "), true
	}
	if cfg.CounterCeiling > 0 && counter > int64(cfg.CounterCeiling) {
		return "request burst over threshold", true
	}
	return "", false
}

package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by result.",
		},
		[]string{"result"},
	)

	TokenRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_refresh_total",
			Help: "Refresh-token exchanges by result.",
		},
		[]string{"result"},
	)

	RateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_rate_limited_total",
			Help: "Requests rejected by the sliding-window rate limiter.",
		},
		[]string{"kind"},
	)

	BotDetectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_bot_detections_total",
			Help: "Requests flagged by the automation heuristics.",
		},
	)

	SecurityEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "security_events_total",
			Help: "Security events recorded, by kind.",
		},
		[]string{"kind"},
	)
)

// Init registers the service metrics with the default registry.
func Init() {
	prometheus.MustRegister(
		LoginsTotal,
		TokenRefreshTotal,
		RateLimitedTotal,
		BotDetectionsTotal,
		SecurityEventsTotal,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Package security records security-relevant events. Every event is
// written as a structured log line, appended to a capped list in the
// store for the panel's activity view, counted in metrics, and optionally
// published to the message broker for the alerting worker. Recording
// happens before the corresponding error response is sent, and a failed
// sink never fails the request.
package security

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/harvestlane/shop-api/internal/obs"
	"github.com/harvestlane/shop-api/internal/queue"
	"github.com/harvestlane/shop-api/internal/repository"
	queue_publisher "github.com/harvestlane/shop-api/internal/service"
)

// Event kinds recorded by the auth core.
const (
	KindLoginFailed   = "login_failed"
	KindInvalidToken  = "invalid_token"
	KindNonceReplayed = "nonce_replayed"
	KindBadSignature  = "bad_signature"
	KindRateLimited   = "rate_limited"
	KindBotDetected   = "bot_detected"
	KindBlocklistHit  = "blocklist_hit"
	KindBadOrigin     = "bad_origin"
	KindIPMismatch    = "ip_mismatch"
	KindTokenMisuse   = "api_token_misuse"
	KindPrimaryTamper = "primary_admin_tamper"
)

const (
	eventListKey   = "seclog"
	eventListLimit = 1000
)

// Recorder fans a security event out to its sinks.
type Recorder struct {
	Store   repository.Store // capped-list sink; may be nil in tests
	Publish bool             // forward to the message broker
	Now     func() time.Time
}

func NewRecorder(store repository.Store, publish bool) *Recorder {
	return &Recorder{Store: store, Publish: publish, Now: time.Now}
}

// Record emits one event. The store write is best-effort and broker
// publishing happens on a detached goroutine; neither can delay or fail
// the surrounding request.
func (r *Recorder) Record(ctx context.Context, kind, userID, username, ip, detail string) {
	now := r.Now().UTC()
	ev := queue.SecurityEvent{
		ID:       ulid.Make().String(),
		Kind:     kind,
		UserID:   userID,
		Username: username,
		IP:       ip,
		Detail:   detail,
		At:       now.Format(time.RFC3339),
	}

	obs.LogJSON(map[string]any{
		"level": "warn",
		"msg":   "security event",
		"event": ev,
	})
	obs.SecurityEventsTotal.WithLabelValues(kind).Inc()

	if r.Store != nil {
		if raw, err := json.Marshal(ev); err == nil {
			_ = r.Store.PushCapped(ctx, eventListKey, string(raw), eventListLimit)
		}
	}

	if r.Publish {
		go func() {
			pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = queue_publisher.PublishSecurityEvent(pctx, ev)
		}()
	}
}

package security

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/harvestlane/shop-api/internal/queue"
	"github.com/harvestlane/shop-api/internal/repository"
)

func TestRecordAppendsToStoreList(t *testing.T) {
	store := repository.NewMemStore()
	r := NewRecorder(store, false)
	r.Now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	r.Record(context.Background(), KindLoginFailed, "", "mallory", "192.0.2.7", "wrong password")
	r.Record(context.Background(), KindNonceReplayed, "user-1", "alice", "192.0.2.8", "nonce already used")

	entries := store.List(eventListKey)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	// Newest first.
	var ev queue.SecurityEvent
	if err := json.Unmarshal([]byte(entries[0]), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Kind != KindNonceReplayed || ev.UserID != "user-1" || ev.IP != "192.0.2.8" {
		t.Fatalf("event = %+v", ev)
	}
	if ev.ID == "" {
		t.Fatal("event id not assigned")
	}
	if ev.At != "2026-03-01T12:00:00Z" {
		t.Fatalf("timestamp = %q", ev.At)
	}
}

func TestRecordCapsTheList(t *testing.T) {
	store := repository.NewMemStore()
	r := NewRecorder(store, false)

	for i := 0; i < eventListLimit+25; i++ {
		r.Record(context.Background(), KindRateLimited, "", "", "192.0.2.9", fmt.Sprintf("n=%d", i))
	}
	if n := len(store.List(eventListKey)); n != eventListLimit {
		t.Fatalf("list holds %d entries, want %d", n, eventListLimit)
	}
}

func TestRecordToleratesNilStore(t *testing.T) {
	r := NewRecorder(nil, false)
	// Must not panic.
	r.Record(context.Background(), KindBotDetected, "", "", "192.0.2.10", "no store wired")
}

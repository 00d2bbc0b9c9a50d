package repository

import (
	"context"
	"testing"
	"time"

	"github.com/harvestlane/shop-api/internal/utils"
)

func newTokenRepo(at time.Time) (*TokenRepo, *steppedClock) {
	clock := &steppedClock{at: at}
	store := NewMemStore()
	store.Now = clock.now
	repo := NewTokenRepo(store)
	repo.Now = clock.now
	return repo, clock
}

func TestRefreshRotation(t *testing.T) {
	repo, _ := newTokenRepo(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	first := utils.HashToken("refresh-token-one")
	if err := repo.StoreRefresh(ctx, "u-1", first, time.Hour); err != nil {
		t.Fatalf("StoreRefresh: %v", err)
	}
	if err := repo.ValidateRefresh(ctx, "u-1", first); err != nil {
		t.Fatalf("active refresh token rejected: %v", err)
	}

	second := utils.HashToken("refresh-token-two")
	if err := repo.StoreRefresh(ctx, "u-1", second, time.Hour); err != nil {
		t.Fatalf("StoreRefresh (rotate): %v", err)
	}
	if err := repo.ValidateRefresh(ctx, "u-1", first); err != ErrNotFound {
		t.Fatalf("rotated-out token still validates: %v", err)
	}
	if err := repo.ValidateRefresh(ctx, "u-1", second); err != nil {
		t.Fatalf("new refresh token rejected: %v", err)
	}

	if err := repo.DeleteRefresh(ctx, "u-1"); err != nil {
		t.Fatalf("DeleteRefresh: %v", err)
	}
	if err := repo.ValidateRefresh(ctx, "u-1", second); err != ErrNotFound {
		t.Fatalf("deleted refresh record still validates: %v", err)
	}
}

func TestAPITokenLifecycle(t *testing.T) {
	repo, clock := newTokenRepo(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	hash := utils.HashToken("cleartext-api-token")
	tok, err := repo.CreateAPIToken(ctx, "u-1", "ci deploy", 90*24*time.Hour, hash)
	if err != nil {
		t.Fatalf("CreateAPIToken: %v", err)
	}
	if tok.ID == "" || !tok.Active {
		t.Fatalf("unexpected token record: %+v", tok)
	}

	got, err := repo.VerifyAPIToken(ctx, hash)
	if err != nil {
		t.Fatalf("VerifyAPIToken immediately after creation: %v", err)
	}
	if got.UserID != "u-1" || got.Name != "ci deploy" {
		t.Fatalf("unexpected record: %+v", got)
	}

	list, err := repo.ListAPITokens(ctx, "u-1")
	if err != nil {
		t.Fatalf("ListAPITokens: %v", err)
	}
	if len(list) != 1 || list[0].ID != tok.ID {
		t.Fatalf("unexpected listing: %+v", list)
	}

	// Past expiry the record fails verification.
	clock.at = clock.at.Add(90*24*time.Hour + time.Minute)
	if _, err := repo.VerifyAPIToken(ctx, hash); err != ErrNotFound {
		t.Fatalf("expired token verified: %v", err)
	}
}

func TestAPITokenOwnership(t *testing.T) {
	repo, _ := newTokenRepo(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	hash := utils.HashToken("owned-token")
	tok, err := repo.CreateAPIToken(ctx, "u-1", "mine", 24*time.Hour, hash)
	if err != nil {
		t.Fatalf("CreateAPIToken: %v", err)
	}

	if err := repo.RevokeAPIToken(ctx, tok.ID, "u-2"); err != ErrForbidden {
		t.Fatalf("foreign revoke: got %v, want ErrForbidden", err)
	}
	if err := repo.RevokeAPIToken(ctx, "no-such-id", "u-1"); err != ErrNotFound {
		t.Fatalf("unknown id revoke: got %v, want ErrNotFound", err)
	}

	if err := repo.RevokeAPIToken(ctx, tok.ID, "u-1"); err != nil {
		t.Fatalf("owner revoke: %v", err)
	}
	if _, err := repo.VerifyAPIToken(ctx, hash); err != ErrNotFound {
		t.Fatalf("revoked token verified: %v", err)
	}
	// Revoked tokens still show up in the listing until they expire.
	list, err := repo.ListAPITokens(ctx, "u-1")
	if err != nil {
		t.Fatalf("ListAPITokens: %v", err)
	}
	if len(list) != 1 || list[0].Active {
		t.Fatalf("unexpected listing after revoke: %+v", list)
	}

	if err := repo.DeleteAPIToken(ctx, tok.ID, "u-2"); err != ErrForbidden {
		t.Fatalf("foreign delete: got %v, want ErrForbidden", err)
	}
	if err := repo.DeleteAPIToken(ctx, tok.ID, "u-1"); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if err := repo.DeleteAPIToken(ctx, tok.ID, "u-1"); err != ErrNotFound {
		t.Fatalf("double delete: got %v, want ErrNotFound", err)
	}
	list, err = repo.ListAPITokens(ctx, "u-1")
	if err != nil {
		t.Fatalf("ListAPITokens after delete: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("deleted token still listed: %+v", list)
	}
}

package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/harvestlane/shop-api/internal/model"
)

const (
	refreshKeyPrefix  = "auth:refresh:"
	apiTokenKeyPrefix = "apitoken:"     // record keyed by token hash
	apiTokenIDPrefix  = "apitoken:id:"  // id -> hash
	apiTokenOwnPrefix = "apitoken:own:" // own:<userID>:<id> -> hash
)

// TokenRepo persists refresh-token state and opaque API tokens.
//
// Refresh tokens follow a single-active-instance policy: the SHA-256 hash
// of the most recently issued token is stored at `auth:refresh:<userID>`
// with a TTL matching the token's validity. Rotation overwrites the hash,
// which immediately invalidates every older instance even if its
// signature is still good.
//
// API tokens are stored three ways: the record itself keyed by the value
// hash (the verification path), an id index (revoke/delete by id) and a
// per-owner index (listing).
type TokenRepo struct {
	Store Store
	Now   func() time.Time
}

func NewTokenRepo(s Store) *TokenRepo { return &TokenRepo{Store: s, Now: time.Now} }

// StoreRefresh records the hash of a freshly issued refresh token,
// replacing whatever was there before.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID, tokenHash string, ttl time.Duration) error {
	return r.Store.Set(ctx, refreshKeyPrefix+userID, tokenHash, ttl)
}

// ValidateRefresh reports whether tokenHash is the currently active
// refresh token for the user. A rotated-out token fails here even though
// its signature still verifies.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, userID, tokenHash string) error {
	stored, err := r.Store.Get(ctx, refreshKeyPrefix+userID)
	if err != nil {
		return err
	}
	if stored != tokenHash {
		return ErrNotFound
	}
	return nil
}

// DeleteRefresh drops the server-side refresh record, ending the session.
func (r *TokenRepo) DeleteRefresh(ctx context.Context, userID string) error {
	return r.Store.Del(ctx, refreshKeyPrefix+userID)
}

// CreateAPIToken stores a new API token record. tokenHash is the SHA-256
// of the cleartext value, which the caller returns to the user exactly
// once. All three keys expire with the token so stale records clean
// themselves up.
func (r *TokenRepo) CreateAPIToken(ctx context.Context, userID, name string, expiresIn time.Duration, tokenHash string) (model.APIToken, error) {
	now := r.Now().UTC()
	tok := model.APIToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Hash:      tokenHash,
		Active:    true,
		CreatedAt: now,
		ExpiresAt: now.Add(expiresIn),
	}
	raw, err := json.Marshal(tok)
	if err != nil {
		return model.APIToken{}, err
	}
	if err := r.Store.Set(ctx, apiTokenKeyPrefix+tok.Hash, string(raw), expiresIn); err != nil {
		return model.APIToken{}, err
	}
	if err := r.Store.Set(ctx, apiTokenIDPrefix+tok.ID, tok.Hash, expiresIn); err != nil {
		return model.APIToken{}, err
	}
	if err := r.Store.Set(ctx, apiTokenOwnPrefix+userID+":"+tok.ID, tok.Hash, expiresIn); err != nil {
		return model.APIToken{}, err
	}
	return tok, nil
}

// VerifyAPIToken resolves a presented token value. Fails with ErrNotFound
// when no record exists (or it has expired out of the store) and when the
// record is revoked or past its expiry.
func (r *TokenRepo) VerifyAPIToken(ctx context.Context, tokenHash string) (model.APIToken, error) {
	raw, err := r.Store.Get(ctx, apiTokenKeyPrefix+tokenHash)
	if err != nil {
		return model.APIToken{}, err
	}
	var tok model.APIToken
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return model.APIToken{}, err
	}
	if !tok.Active || tok.Expired(r.Now().UTC()) {
		return model.APIToken{}, ErrNotFound
	}
	return tok, nil
}

// ListAPITokens returns all of a user's tokens, including revoked ones
// that have not yet expired out of the store.
func (r *TokenRepo) ListAPITokens(ctx context.Context, userID string) ([]model.APIToken, error) {
	keys, err := r.Store.Keys(ctx, apiTokenOwnPrefix+userID+":*")
	if err != nil {
		return nil, err
	}
	out := make([]model.APIToken, 0, len(keys))
	for _, k := range keys {
		hash, err := r.Store.Get(ctx, k)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		raw, err := r.Store.Get(ctx, apiTokenKeyPrefix+hash)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		var tok model.APIToken
		if err := json.Unmarshal([]byte(raw), &tok); err != nil {
			return nil, err
		}
		out = append(out, tok)
	}
	return out, nil
}

// RevokeAPIToken soft-disables a token. ErrNotFound when the id is
// unknown, ErrForbidden when the requesting user does not own it.
func (r *TokenRepo) RevokeAPIToken(ctx context.Context, tokenID, requestingUserID string) error {
	tok, err := r.getByID(ctx, tokenID)
	if err != nil {
		return err
	}
	if tok.UserID != requestingUserID {
		return ErrForbidden
	}
	tok.Active = false
	raw, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	// Preserve the remaining lifetime so a revoked record still expires
	// on schedule.
	remaining := tok.ExpiresAt.Sub(r.Now().UTC())
	if remaining <= 0 {
		remaining = time.Minute
	}
	return r.Store.Set(ctx, apiTokenKeyPrefix+tok.Hash, string(raw), remaining)
}

// DeleteAPIToken hard-removes a token and its indexes, with the same
// ownership rules as RevokeAPIToken.
func (r *TokenRepo) DeleteAPIToken(ctx context.Context, tokenID, requestingUserID string) error {
	tok, err := r.getByID(ctx, tokenID)
	if err != nil {
		return err
	}
	if tok.UserID != requestingUserID {
		return ErrForbidden
	}
	return r.Store.Del(ctx,
		apiTokenKeyPrefix+tok.Hash,
		apiTokenIDPrefix+tok.ID,
		apiTokenOwnPrefix+tok.UserID+":"+tok.ID,
	)
}

func (r *TokenRepo) getByID(ctx context.Context, tokenID string) (model.APIToken, error) {
	hash, err := r.Store.Get(ctx, apiTokenIDPrefix+tokenID)
	if err != nil {
		return model.APIToken{}, err
	}
	raw, err := r.Store.Get(ctx, apiTokenKeyPrefix+hash)
	if err != nil {
		return model.APIToken{}, err
	}
	var tok model.APIToken
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return model.APIToken{}, err
	}
	return tok, nil
}

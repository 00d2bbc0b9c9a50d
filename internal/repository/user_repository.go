package repository

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harvestlane/shop-api/internal/model"
	"github.com/harvestlane/shop-api/internal/utils"
)

const (
	userKeyPrefix     = "user:id:"
	userNameKeyPrefix = "user:name:"
)

// UserRepo persists admin users as JSON records under `user:id:<id>` with
// a `user:name:<username>` index for login lookups.
type UserRepo struct {
	Store Store
	Now   func() time.Time
}

func NewUserRepo(s Store) *UserRepo { return &UserRepo{Store: s, Now: time.Now} }

// Create inserts a user and returns the stored record. Username
// uniqueness is enforced by claiming the name index with SetNX before the
// record itself is written.
func (r *UserRepo) Create(ctx context.Context, username, password string, role model.Role, cost int) (model.AdminUser, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.AdminUser{}, err
	}
	now := r.Now().UTC()
	u := model.AdminUser{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	ok, err := r.Store.SetNX(ctx, userNameKeyPrefix+username, u.ID, 0)
	if err != nil {
		return model.AdminUser{}, err
	}
	if !ok {
		return model.AdminUser{}, ErrUsernameExists
	}
	if err := r.save(ctx, u); err != nil {
		// Roll the index claim back so the name is not left dangling.
		_ = r.Store.Del(ctx, userNameKeyPrefix+username)
		return model.AdminUser{}, err
	}
	return u, nil
}

// GetByID fetches a user record, ErrNotFound when absent.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.AdminUser, error) {
	raw, err := r.Store.Get(ctx, userKeyPrefix+id)
	if err != nil {
		return model.AdminUser{}, err
	}
	var u model.AdminUser
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return model.AdminUser{}, err
	}
	return u, nil
}

// GetByUsername resolves the name index and fetches the record.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.AdminUser, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	id, err := r.Store.Get(ctx, userNameKeyPrefix+username)
	if err != nil {
		return model.AdminUser{}, err
	}
	return r.GetByID(ctx, id)
}

// List returns all admin users.
func (r *UserRepo) List(ctx context.Context) ([]model.AdminUser, error) {
	keys, err := r.Store.Keys(ctx, userKeyPrefix+"*")
	if err != nil {
		return nil, err
	}
	out := make([]model.AdminUser, 0, len(keys))
	for _, k := range keys {
		raw, err := r.Store.Get(ctx, k)
		if err == ErrNotFound {
			continue // deleted between scan and fetch
		}
		if err != nil {
			return nil, err
		}
		var u model.AdminUser
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// UpdateRole changes a user's role. The primary admin's role is managed
// from deployment configuration and cannot be changed here.
func (r *UserRepo) UpdateRole(ctx context.Context, id string, role model.Role) (model.AdminUser, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return model.AdminUser{}, err
	}
	if u.Primary {
		return model.AdminUser{}, ErrPrimaryAdmin
	}
	u.Role = role
	u.UpdatedAt = r.Now().UTC()
	if err := r.save(ctx, u); err != nil {
		return model.AdminUser{}, err
	}
	return u, nil
}

// UpdatePassword rehashes and stores a new password. Rejected for the
// primary admin, whose password comes from configuration.
func (r *UserRepo) UpdatePassword(ctx context.Context, id, password string, cost int) error {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u.Primary {
		return ErrPrimaryAdmin
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.UpdatedAt = r.Now().UTC()
	return r.save(ctx, u)
}

// Delete removes a user and its name index. The primary admin can never
// be deleted, regardless of who asks.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u.Primary {
		return ErrPrimaryAdmin
	}
	return r.Store.Del(ctx, userKeyPrefix+id, userNameKeyPrefix+u.Username)
}

// EnsurePrimary creates or re-syncs the primary admin account from
// deployment configuration. Called on every login with the configured
// username so a changed ADMIN_PASSWORD takes effect without migrations.
// The stored role is forced to admin and Primary is always true.
func (r *UserRepo) EnsurePrimary(ctx context.Context, username, password string, cost int) (model.AdminUser, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.AdminUser{}, err
	}
	now := r.Now().UTC()
	u, err := r.GetByUsername(ctx, username)
	switch err {
	case nil:
		u.PasswordHash = hash
		u.Role = model.RoleAdmin
		u.Primary = true
		u.UpdatedAt = now
	case ErrNotFound:
		u = model.AdminUser{
			ID:           uuid.NewString(),
			Username:     username,
			PasswordHash: hash,
			Role:         model.RoleAdmin,
			Primary:      true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := r.Store.Set(ctx, userNameKeyPrefix+username, u.ID, 0); err != nil {
			return model.AdminUser{}, err
		}
	default:
		return model.AdminUser{}, err
	}
	if err := r.save(ctx, u); err != nil {
		return model.AdminUser{}, err
	}
	return u, nil
}

func (r *UserRepo) save(ctx context.Context, u model.AdminUser) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return r.Store.Set(ctx, userKeyPrefix+u.ID, string(raw), 0)
}

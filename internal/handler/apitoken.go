package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/harvestlane/shop-api/internal/config"
	"github.com/harvestlane/shop-api/internal/model"
	"github.com/harvestlane/shop-api/internal/repository"
	"github.com/harvestlane/shop-api/internal/security"
	"github.com/harvestlane/shop-api/internal/utils"
)

const (
	defaultTokenName   = "api token"
	defaultExpiresDays = 90
	maxExpiresDays     = 365
)

// APITokenHandler manages a user's opaque API tokens. Every operation is
// scoped to the authenticated user; tokens belonging to someone else are
// invisible except for the 401 an ownership check produces.
type APITokenHandler struct {
	Cfg    config.Config
	Tokens *repository.TokenRepo
	Events *security.Recorder
}

func NewAPITokenHandler(cfg config.Config, t *repository.TokenRepo, ev *security.Recorder) *APITokenHandler {
	return &APITokenHandler{Cfg: cfg, Tokens: t, Events: ev}
}

type createTokenReq struct {
	Name        string `json:"name"`
	ExpiresDays int    `json:"expiresInDays"`
}
type manageTokenReq struct {
	TokenID string `json:"tokenId"`
	Action  string `json:"action"` // "revoke" or "delete"
}

// tokenPart is the listing representation; the hash never leaves the
// repository and the cleartext value no longer exists.
type tokenPart struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// List returns the caller's tokens, revoked ones included until they
// expire out of the store.
func (h *APITokenHandler) List(c echo.Context) error {
	userID, _, _ := identityFrom(c)
	tokens, err := h.Tokens.ListAPITokens(c.Request().Context(), userID)
	if err != nil {
		return internalError(c, h.Cfg, err)
	}
	out := make([]tokenPart, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, tokenPart{ID: t.ID, Name: t.Name, Active: t.Active, CreatedAt: t.CreatedAt, ExpiresAt: t.ExpiresAt})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "tokens": out})
}

// Create mints a new opaque token and returns the cleartext exactly
// once. There is no recovery path; the stored record holds only a hash.
func (h *APITokenHandler) Create(c echo.Context) error {
	var req createTokenReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = defaultTokenName
	}
	days := req.ExpiresDays
	if days == 0 {
		days = defaultExpiresDays
	}
	if days < 1 || days > maxExpiresDays {
		return fail(c, http.StatusBadRequest, "expiresInDays must be between 1 and 365")
	}

	userID, _, _ := identityFrom(c)
	cleartext, err := utils.NewOpaqueToken()
	if err != nil {
		return internalError(c, h.Cfg, err)
	}
	tok, err := h.Tokens.CreateAPIToken(c.Request().Context(), userID, name,
		time.Duration(days)*24*time.Hour, utils.HashToken(cleartext))
	if err != nil {
		return internalError(c, h.Cfg, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"token":   cleartext,
		"warning": "store this token now; it will not be shown again",
		"record":  toPart(tok),
	})
}

// Manage revokes or deletes a token by id. An unknown id is 404; an id
// owned by someone else is 401 so the caller learns nothing beyond
// "not yours".
func (h *APITokenHandler) Manage(c echo.Context) error {
	var req manageTokenReq
	if err := c.Bind(&req); err != nil || req.TokenID == "" {
		return fail(c, http.StatusBadRequest, "tokenId required")
	}
	userID, username, _ := identityFrom(c)
	ctx := c.Request().Context()

	var err error
	switch req.Action {
	case "revoke":
		err = h.Tokens.RevokeAPIToken(ctx, req.TokenID, userID)
	case "delete":
		err = h.Tokens.DeleteAPIToken(ctx, req.TokenID, userID)
	default:
		return fail(c, http.StatusBadRequest, "action must be revoke or delete")
	}
	switch err {
	case nil:
		return c.JSON(http.StatusOK, echo.Map{"success": true})
	case repository.ErrNotFound:
		return fail(c, http.StatusNotFound, "token not found")
	case repository.ErrForbidden:
		h.Events.Record(ctx, security.KindTokenMisuse, userID, username, c.RealIP(), "attempted "+req.Action+" on foreign token")
		return fail(c, http.StatusUnauthorized, "unauthorized")
	default:
		return internalError(c, h.Cfg, err)
	}
}

func toPart(t model.APIToken) tokenPart {
	return tokenPart{ID: t.ID, Name: t.Name, Active: t.Active, CreatedAt: t.CreatedAt, ExpiresAt: t.ExpiresAt}
}

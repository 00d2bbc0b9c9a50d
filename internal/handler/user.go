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
)

// UserHandler implements admin-user management. Every route sits behind
// RequireRole; the primary-admin protections live in the repository so
// no handler path can bypass them.
type UserHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Events *security.Recorder
}

func NewUserHandler(cfg config.Config, u *repository.UserRepo, ev *security.Recorder) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: u, Events: ev}
}

type createUserReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}
type updateUserReq struct {
	Role     string `json:"role"`
	Password string `json:"password"`
}

type adminPart struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Primary   bool      `json:"primary"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toAdminPart(u model.AdminUser) adminPart {
	return adminPart{ID: u.ID, Username: u.Username, Role: string(u.Role), Primary: u.Primary, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
}

// List returns all panel accounts.
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.Users.List(c.Request().Context())
	if err != nil {
		return internalError(c, h.Cfg, err)
	}
	out := make([]adminPart, 0, len(users))
	for _, u := range users {
		out = append(out, toAdminPart(u))
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "users": out})
}

// Create adds a panel account.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if req.Username == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "username/password required")
	}
	role, ok := model.NormalizeRole(req.Role)
	if !ok {
		return fail(c, http.StatusBadRequest, "unknown role")
	}
	u, err := h.Users.Create(c.Request().Context(), req.Username, req.Password, role, h.Cfg.BcryptCost)
	if err == repository.ErrUsernameExists {
		return fail(c, http.StatusConflict, "username already exists")
	}
	if err != nil {
		return internalError(c, h.Cfg, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "user": toAdminPart(u)})
}

// Update changes a user's role and/or password. Both are rejected for
// the primary admin, whose credentials come from configuration.
func (h *UserHandler) Update(c echo.Context) error {
	id := c.Param("id")
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.Role == "" && req.Password == "" {
		return fail(c, http.StatusBadRequest, "nothing to update")
	}
	ctx := c.Request().Context()

	if req.Role != "" {
		role, ok := model.NormalizeRole(req.Role)
		if !ok {
			return fail(c, http.StatusBadRequest, "unknown role")
		}
		if _, err := h.Users.UpdateRole(ctx, id, role); err != nil {
			return h.mapUserErr(c, id, err)
		}
	}
	if req.Password != "" {
		if err := h.Users.UpdatePassword(ctx, id, req.Password, h.Cfg.BcryptCost); err != nil {
			return h.mapUserErr(c, id, err)
		}
	}
	// Re-fetch after all mutations so the echoed record is current even
	// when both fields changed.
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return h.mapUserErr(c, id, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": toAdminPart(u)})
}

// Delete removes an account. The primary admin is protected in the
// repository; the attempt is still recorded here.
func (h *UserHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if err := h.Users.Delete(c.Request().Context(), id); err != nil {
		return h.mapUserErr(c, id, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (h *UserHandler) mapUserErr(c echo.Context, targetID string, err error) error {
	switch err {
	case repository.ErrNotFound:
		return fail(c, http.StatusNotFound, "user not found")
	case repository.ErrPrimaryAdmin:
		callerID, callerName, _ := identityFrom(c)
		h.Events.Record(c.Request().Context(), security.KindPrimaryTamper, callerID, callerName, c.RealIP(),
			"attempted to modify primary admin "+targetID)
		return fail(c, http.StatusForbidden, "primary admin account is protected")
	default:
		return internalError(c, h.Cfg, err)
	}
}

package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/harvestlane/shop-api/internal/model"
)

// RequireRole returns a middleware enforcing that the authenticated user
// holds at least the given role on the ordinal scale (editor < manager <
// admin, with "founder" accepted as a spelling of admin). It assumes the
// Identity middleware already resolved the caller; a missing identity is
// a 401, an insufficient role a 403 naming the requirement.
func RequireRole(required model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := c.Get(CtxRole).(string)
			if !ok || raw == "" {
				return unauthorized(c, "authentication required")
			}
			role, ok := model.NormalizeRole(raw)
			if !ok || !role.HasPermission(required) {
				return c.JSON(http.StatusForbidden, echo.Map{
					"success": false,
					"error":   "requires " + string(required) + " role",
				})
			}
			return next(c)
		}
	}
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/harvestlane/shop-api/internal/config"
)

// fail writes the error envelope every endpoint uses. Internal details
// never reach the client; callers pass a stable, non-revealing message.
func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "error": msg})
}

// internalError maps unexpected failures to 500. Outside development
// mode the underlying error is suppressed.
func internalError(c echo.Context, cfg config.Config, err error) error {
	msg := "internal error"
	if cfg.Dev() && err != nil {
		msg = err.Error()
	}
	return fail(c, http.StatusInternalServerError, msg)
}

// identityFrom reads the values the Identity middleware stored.
func identityFrom(c echo.Context) (userID, username, role string) {
	userID, _ = c.Get("user_id").(string)
	username, _ = c.Get("username").(string)
	role, _ = c.Get("role").(string)
	return
}

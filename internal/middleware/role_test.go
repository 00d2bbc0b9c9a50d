package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/harvestlane/shop-api/internal/model"
)

func runWithRole(t *testing.T, role string, required model.Role) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if role != "" {
		c.Set(CtxRole, role)
	}
	h := RequireRole(required)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	return rec
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		role     string
		required model.Role
		status   int
	}{
		{"", model.RoleEditor, http.StatusUnauthorized},
		{"editor", model.RoleEditor, http.StatusOK},
		{"editor", model.RoleManager, http.StatusForbidden},
		{"editor", model.RoleAdmin, http.StatusForbidden},
		{"manager", model.RoleEditor, http.StatusOK},
		{"manager", model.RoleManager, http.StatusOK},
		{"manager", model.RoleAdmin, http.StatusForbidden},
		{"admin", model.RoleAdmin, http.StatusOK},
		{"founder", model.RoleAdmin, http.StatusOK}, // legacy spelling of admin
		{"intern", model.RoleEditor, http.StatusForbidden},
	}
	for _, tc := range cases {
		rec := runWithRole(t, tc.role, tc.required)
		if rec.Code != tc.status {
			t.Fatalf("role %q against %q: status = %d, want %d", tc.role, tc.required, rec.Code, tc.status)
		}
	}
}

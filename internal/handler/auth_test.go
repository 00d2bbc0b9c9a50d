package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/harvestlane/shop-api/internal/config"
	"github.com/harvestlane/shop-api/internal/repository"
	"github.com/harvestlane/shop-api/internal/security"
	"github.com/harvestlane/shop-api/internal/utils"
)

const testSecret = "unit-test-signing-secret"

func testConfig() config.Config {
	return config.Config{
		Env:             "test",
		JWTSecret:       testSecret,
		SignatureSecret: testSecret,
		AccessTTL:       2 * time.Hour,
		RefreshTTL:      7 * 24 * time.Hour,
		BcryptCost:      4,
		AdminUsername:   "root",
		AdminPassword:   "primary-password",
		IPCheckMode:     "log",
	}
}

func newAuthHandler() (*AuthHandler, *repository.MemStore) {
	store := repository.NewMemStore()
	cfg := testConfig()
	return NewAuthHandler(
		cfg,
		config.BotConfig{}, // heuristics off
		repository.NewUserRepo(store),
		repository.NewTokenRepo(store),
		repository.NewNonceRepo(store),
		repository.NewBlocklistRepo(store),
		security.NewRecorder(store, false),
	), store
}

func postJSON(e *echo.Echo, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestLoginPrimaryAdmin(t *testing.T) {
	h, _ := newAuthHandler()
	e := echo.New()

	c, rec := postJSON(e, "/v1/auth/login", `{"username":"root","password":"primary-password"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp authResp
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Token == "" || resp.RefreshToken == "" {
		t.Fatalf("incomplete response: %+v", resp)
	}

	claims, err := utils.ParseAccessToken(testSecret, resp.Token)
	if err != nil {
		t.Fatalf("access token does not parse: %v", err)
	}
	if claims.Role != "admin" || claims.Username != "root" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.UserID != resp.User.ID {
		t.Fatalf("subject %q does not match user %q", claims.UserID, resp.User.ID)
	}

	var cookies []string
	for _, ck := range rec.Result().Cookies() {
		cookies = append(cookies, ck.Name)
		if !ck.HttpOnly {
			t.Fatalf("cookie %s not HttpOnly", ck.Name)
		}
	}
	for _, want := range []string{"adminToken", RefreshCookieName} {
		found := false
		for _, name := range cookies {
			if name == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("cookie %s not set, got %v", want, cookies)
		}
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	h, _ := newAuthHandler()
	e := echo.New()

	// Seed the primary admin so the wrong-password path exists.
	c, rec := postJSON(e, "/v1/auth/login", `{"username":"root","password":"primary-password"}`)
	if err := h.Login(c); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("seed login: err=%v status=%d", err, rec.Code)
	}

	cases := []string{
		`{"username":"root","password":"wrong-password"}`,
		`{"username":"nobody","password":"whatever"}`,
	}
	var bodies []string
	for _, body := range cases {
		c, rec := postJSON(e, "/v1/auth/login", body)
		if err := h.Login(c); err != nil {
			t.Fatalf("Login(%s): %v", body, err)
		}
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("Login(%s): status = %d", body, rec.Code)
		}
		bodies = append(bodies, rec.Body.String())
	}
	if bodies[0] != bodies[1] {
		t.Fatalf("failure responses differ: %q vs %q", bodies[0], bodies[1])
	}
	if !strings.Contains(bodies[0], "invalid credentials") {
		t.Fatalf("unexpected failure body: %s", bodies[0])
	}
}

func TestFailedAdminLoginWritesNothing(t *testing.T) {
	h, _ := newAuthHandler()
	e := echo.New()

	c, rec := postJSON(e, "/v1/auth/login", `{"username":"root","password":"guessed-wrong"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}

	// The config sync only happens on a successful check; a rejected
	// guess must not have materialized the account.
	if _, err := h.Users.GetByUsername(context.Background(), "root"); err != repository.ErrNotFound {
		t.Fatalf("primary account exists after failed login: %v", err)
	}
}

func TestLoginRejectsEmptyFields(t *testing.T) {
	h, _ := newAuthHandler()
	e := echo.New()

	c, rec := postJSON(e, "/v1/auth/login", `{"username":"root"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRefreshRotation(t *testing.T) {
	h, _ := newAuthHandler()
	e := echo.New()

	c, rec := postJSON(e, "/v1/auth/login", `{"username":"root","password":"primary-password"}`)
	if err := h.Login(c); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("login: err=%v status=%d", err, rec.Code)
	}
	var first authResp
	if err := json.Unmarshal(rec.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}

	c, rec = postJSON(e, "/v1/auth/refresh", `{"refreshToken":"`+first.RefreshToken+`"}`)
	if err := h.Refresh(c); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("first refresh: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var second authResp
	if err := json.Unmarshal(rec.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	// The first token was rotated out; replaying it must fail even
	// though its signature is still valid.
	c, rec = postJSON(e, "/v1/auth/refresh", `{"refreshToken":"`+first.RefreshToken+`"}`)
	if err := h.Refresh(c); err != nil {
		t.Fatalf("Refresh (replay): %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("replayed refresh: status = %d", rec.Code)
	}

	// The rotated-in token still works.
	c, rec = postJSON(e, "/v1/auth/refresh", `{"refreshToken":"`+second.RefreshToken+`"}`)
	if err := h.Refresh(c); err != nil {
		t.Fatalf("Refresh (current): %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("current refresh: status = %d", rec.Code)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	h, _ := newAuthHandler()
	e := echo.New()

	c, rec := postJSON(e, "/v1/auth/login", `{"username":"root","password":"primary-password"}`)
	if err := h.Login(c); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("login: err=%v status=%d", err, rec.Code)
	}
	var resp authResp
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	c, rec = postJSON(e, "/v1/auth/refresh", `{"refreshToken":"`+resp.Token+`"}`)
	if err := h.Refresh(c); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("access token accepted for refresh: status = %d", rec.Code)
	}
}

func TestLogoutDropsRefreshRecord(t *testing.T) {
	h, _ := newAuthHandler()
	e := echo.New()

	c, rec := postJSON(e, "/v1/auth/login", `{"username":"root","password":"primary-password"}`)
	if err := h.Login(c); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("login: err=%v status=%d", err, rec.Code)
	}
	var resp authResp
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	c, rec = postJSON(e, "/v1/auth/logout", "")
	c.Set("user_id", resp.User.ID)
	c.Set("username", resp.User.Username)
	c.Set("role", resp.User.Role)
	if err := h.Logout(c); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: status = %d", rec.Code)
	}

	c, rec = postJSON(e, "/v1/auth/refresh", `{"refreshToken":"`+resp.RefreshToken+`"}`)
	if err := h.Refresh(c); err != nil {
		t.Fatalf("Refresh after logout: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: status = %d", rec.Code)
	}
}

func TestNonceEndpoint(t *testing.T) {
	h, _ := newAuthHandler()
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/nonce", nil)
	rec := httptest.NewRecorder()
	if err := h.Nonce(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Nonce: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Success   bool   `json:"success"`
		Nonce     string `json:"nonce"`
		Timestamp int64  `json:"timestamp"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Nonce == "" || body.Timestamp == 0 {
		t.Fatalf("incomplete nonce response: %+v", body)
	}
}

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"inkwell/internal/identity"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func newTestApp(t *testing.T) (*fiber.App, *identity.TokenIssuer) {
	t.Helper()
	tokens := identity.NewTokenIssuer(testSecret)
	auth := identity.NewAuthenticator(identity.AuthenticatorConfig{
		AdminSecret:  "admin-shared-secret",
		AdminUserIDs: []string{"7"},
	}, tokens)

	app := fiber.New()
	app.Use(Identify(auth))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		p := PrincipalFrom(c)
		actor := ""
		if p.Actor != nil {
			actor = p.Actor.String()
		}
		return c.JSON(fiber.Map{"actor": actor, "admin": p.Admin})
	})
	app.Get("/admin", RequireAdmin, func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Post("/write", RequireActor, func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Post("/echo", func(c *fiber.Ctx) error {
		var body struct {
			ClientID string `json:"client_id"`
			Content  string `json:"content"`
		}
		if err := c.BodyParser(&body); err != nil {
			return err
		}
		p := PrincipalFrom(c)
		actor := ""
		if p.Actor != nil {
			actor = p.Actor.String()
		}
		return c.JSON(fiber.Map{"actor": actor, "content": body.Content})
	})
	return app, tokens
}

func whoami(t *testing.T, app *fiber.App, req *http.Request) (string, bool) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	var body struct {
		Actor string `json:"actor"`
		Admin bool   `json:"admin"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Actor, body.Admin
}

func TestIdentify(t *testing.T) {
	app, tokens := newTestApp(t)
	userToken, _, err := tokens.Issue("42", false, time.Hour)
	require.NoError(t, err)
	adminUserToken, _, err := tokens.Issue("7", false, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name      string
		setup     func(r *http.Request)
		wantActor string
		wantAdmin bool
	}{
		{"anonymous", func(*http.Request) {}, "", false},
		{"client header", func(r *http.Request) { r.Header.Set(identity.ClientIDHeader, "client_123_abcdef123") }, "client:client_123_abcdef123", false},
		{"client cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: identity.ClientIDCookie, Value: "client_456_abcdef123"})
		}, "client:client_456_abcdef123", false},
		{"invalid client id ignored", func(r *http.Request) { r.Header.Set(identity.ClientIDHeader, "x y") }, "", false},
		{"user session beats client id", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+userToken)
			r.Header.Set(identity.ClientIDHeader, "client_123_abcdef123")
		}, "user:42", false},
		{"designated admin user", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+adminUserToken) }, "user:7", true},
		{"admin secret", func(r *http.Request) { r.Header.Set(AdminSecretHeader, "admin-shared-secret") }, "", true},
		{"wrong admin secret", func(r *http.Request) { r.Header.Set(AdminSecretHeader, "nope") }, "", false},
		{"garbage bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer not-a-jwt") }, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			tt.setup(req)
			actor, admin := whoami(t, app, req)
			assert.Equal(t, tt.wantActor, actor)
			assert.Equal(t, tt.wantAdmin, admin)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	app, tokens := newTestApp(t)
	adminToken, _, err := tokens.Issue(identity.AdminSubject, true, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRequireActor(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/write", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/write?client_id=client_1_abcdef123", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestIdentify_ClientIDFromJSONBody(t *testing.T) {
	app, tokens := newTestApp(t)

	post := func(path, body string, headers map[string]string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	resp := post("/write", `{"client_id":"client_1700000000000_abcdef012"}`, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp = post("/write", `{"client_id":"bad id"}`, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = post("/write", `not json`, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// The handler still sees the whole body.
	resp = post("/echo", `{"client_id":"client_1700000000000_abcdef012","content":"hi"}`, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var echoed struct {
		Actor   string `json:"actor"`
		Content string `json:"content"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&echoed))
	assert.Equal(t, "client:client_1700000000000_abcdef012", echoed.Actor)
	assert.Equal(t, "hi", echoed.Content)

	// The header takes precedence over the body.
	resp = post("/echo", `{"client_id":"client_1700000000000_abcdef012"}`,
		map[string]string{identity.ClientIDHeader: "client_header_000000"})
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&echoed))
	assert.Equal(t, "client:client_header_000000", echoed.Actor)

	// A session keeps the body client id alongside the user actor.
	userToken, _, err := tokens.Issue("42", false, time.Hour)
	require.NoError(t, err)
	resp = post("/echo", `{"client_id":"client_1700000000000_abcdef012"}`,
		map[string]string{fiber.HeaderAuthorization: "Bearer " + userToken})
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&echoed))
	assert.Equal(t, "user:42", echoed.Actor)
}

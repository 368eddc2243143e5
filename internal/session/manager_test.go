package session

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionApp(t *testing.T) *fiber.App {
	t.Helper()
	mgr := NewManager(Config{Expiration: time.Hour})
	app := fiber.New()
	app.Get("/login/:name", func(c *fiber.Ctx) error {
		return mgr.Login(c, c.Params("name"))
	})
	app.Get("/whoami", func(c *fiber.Ctx) error {
		name, err := mgr.Identity(c)
		if err != nil {
			return err
		}
		return c.SendString(name)
	})
	app.Get("/logout", func(c *fiber.Ctx) error {
		return mgr.Logout(c)
	})
	return app
}

func get(t *testing.T, app *fiber.App, path string, cookie *http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	return nil
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestAnonymousHasNoIdentity(t *testing.T) {
	app := newSessionApp(t)

	resp := get(t, app, "/whoami", nil)
	assert.Equal(t, "", body(t, resp))
	assert.Nil(t, sessionCookie(resp), "reading the identity must not start a session")
}

func TestLoginBindsIdentity(t *testing.T) {
	app := newSessionApp(t)

	resp := get(t, app, "/login/alice", nil)
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	assert.Equal(t, "alice", body(t, get(t, app, "/whoami", cookie)))
}

func TestLoginRegeneratesSessionID(t *testing.T) {
	app := newSessionApp(t)

	first := sessionCookie(get(t, app, "/login/alice", nil))
	require.NotNil(t, first)
	second := sessionCookie(get(t, app, "/login/bob", first))
	require.NotNil(t, second)

	assert.NotEqual(t, first.Value, second.Value)
	assert.Equal(t, "bob", body(t, get(t, app, "/whoami", second)))
	assert.Equal(t, "", body(t, get(t, app, "/whoami", first)), "the pre-login id must be dead")
}

func TestLogoutClearsIdentity(t *testing.T) {
	app := newSessionApp(t)

	cookie := sessionCookie(get(t, app, "/login/alice", nil))
	require.NotNil(t, cookie)

	resp := get(t, app, "/logout", cookie)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "", body(t, get(t, app, "/whoami", cookie)))

	// Logging out again is harmless.
	resp = get(t, app, "/logout", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

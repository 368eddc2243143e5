package app

import (
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"feedback-webapp/internal/bootstrap"
	"feedback-webapp/internal/config"
	"feedback-webapp/internal/database"
	"feedback-webapp/internal/logging"
	"feedback-webapp/internal/models"
	"feedback-webapp/internal/session"
	"feedback-webapp/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	app   *fiber.App
	db    *sql.DB
	audit *observer.ObservedLogs
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWith(t, func(*config.Config) {})
}

func newTestServerWith(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()
	cfg := &config.Config{
		AppEnv:                   "test",
		AppName:                  "Feedback",
		DBDriver:                 config.DriverSQLite,
		SQLiteDBPath:             filepath.Join(t.TempDir(), "feedback.db"),
		SessionExpirationMinutes: 60,
		CSRFEnabled:              false,
		BcryptCost:               bcrypt.MinCost,
		JWTSecret:                "test-secret",
		JWTExpirationMinutes:     5,
		LogLevel:                 "info",
		CORSAllowOrigins:         "*",
		CORSAllowMethods:         "GET,POST,HEAD",
		CORSAllowHeaders:         "Origin,Content-Type,Accept,Authorization",
	}
	mutate(cfg)

	db, err := database.InitAppDB(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	components, err := bootstrap.InitializeAppComponents(cfg, zap.NewNop(), db, nil)
	require.NoError(t, err)

	core, logs := observer.New(zap.InfoLevel)
	app, err := NewFiberApp(cfg, components, &logging.AppLoggers{File: zap.NewNop(), Audit: zap.New(core)})
	require.NoError(t, err)

	return &testServer{app: app, db: db, audit: logs}
}

// client carries cookies between requests like a browser.
type client struct {
	t       *testing.T
	srv     *testServer
	cookies map[string]*http.Cookie
	bearer  string
}

func (s *testServer) newClient(t *testing.T) *client {
	return &client{t: t, srv: s, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(method, path string, form url.Values) (*http.Response, string) {
	c.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	}
	if c.bearer != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+c.bearer)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	resp, err := c.srv.app.Test(req, -1)
	require.NoError(c.t, err)
	for _, ck := range resp.Cookies() {
		expired := ck.MaxAge < 0 || (!ck.Expires.IsZero() && ck.Expires.Before(time.Now()))
		if ck.Value == "" || expired {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	b, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, string(b)
}

func (c *client) get(path string) (*http.Response, string) {
	return c.do(fiber.MethodGet, path, nil)
}

func (c *client) post(path string, form url.Values) (*http.Response, string) {
	return c.do(fiber.MethodPost, path, form)
}

func (c *client) register(username, password string) *http.Response {
	resp, _ := c.post("/register", url.Values{
		"username":   {username},
		"password":   {password},
		"email":      {username + "@example.com"},
		"first_name": {"First"},
		"last_name":  {"Last"},
	})
	return resp
}

func (s *testServer) count(t *testing.T, query string, args ...interface{}) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow(query, args...).Scan(&n))
	return n
}

func (s *testServer) feedback(t *testing.T, id int64) models.Feedback {
	t.Helper()
	var fb models.Feedback
	require.NoError(t, s.db.QueryRow(`SELECT id, title, content, username FROM feedback WHERE id = ?`, id).
		Scan(&fb.ID, &fb.Title, &fb.Content, &fb.Username))
	return fb
}

func assertRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, location, resp.Header.Get(fiber.HeaderLocation))
}

func TestHomeRedirectsToRegister(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := srv.newClient(t).get("/")
	assertRedirect(t, resp, "/register")
}

func TestRegisterAddFeedbackAndForeignAccess(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.newClient(t)

	assertRedirect(t, alice.register("alice", "secret1"), "/users/alice")
	assert.Contains(t, alice.cookies, session.CookieName)

	resp, body := alice.get("/users/alice")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "alice@example.com")
	assert.Contains(t, body, "No feedback yet.")

	resp, _ = alice.post("/users/alice/feedback/add", url.Values{"title": {"Hi"}, "content": {"Hello"}})
	assertRedirect(t, resp, "/users/alice")

	_, body = alice.get("/users/alice")
	assert.Contains(t, body, "Hi")
	assert.Contains(t, body, "Hello")

	var id int64
	require.NoError(t, srv.db.QueryRow(`SELECT id FROM feedback WHERE username = 'alice'`).Scan(&id))
	path := "/feedback/" + itoa(id)

	bob := srv.newClient(t)
	assertRedirect(t, bob.register("bob", "secret2"), "/users/bob")

	resp, _ = bob.post(path+"/update", url.Values{"title": {"Hacked"}, "content": {"Owned"}})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp, _ = bob.get(path + "/update")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp, _ = bob.post(path+"/delete", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp, _ = bob.get("/users/alice")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp, _ = bob.post("/users/alice/feedback/add", url.Values{"title": {"Spam"}, "content": {"Spam"}})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp, _ = bob.post("/users/alice/delete", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	fb := srv.feedback(t, id)
	assert.Equal(t, "Hi", fb.Title)
	assert.Equal(t, "Hello", fb.Content)
	assert.Equal(t, "alice", fb.Username)
	assert.Equal(t, 1, srv.count(t, `SELECT COUNT(*) FROM feedback`))
	assert.Equal(t, 1, srv.count(t, `SELECT COUNT(*) FROM users WHERE username = 'alice'`))

	assert.NotEmpty(t, srv.audit.FilterMessage("Authorization denied").All())
}

func TestAnonymousIsUnauthorized(t *testing.T) {
	srv := newTestServer(t)
	owner := srv.newClient(t)
	assertRedirect(t, owner.register("alice", "secret1"), "/users/alice")

	anon := srv.newClient(t)
	for _, path := range []string{"/users/alice", "/users/alice/feedback/add", "/feedback/1/update"} {
		resp, body := anon.get(path)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, path)
		assert.Contains(t, body, "You are not allowed to access this page.", path)
	}
}

func TestUpdateAndDeleteOwnFeedback(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.newClient(t)
	alice.register("alice", "secret1")
	alice.post("/users/alice/feedback/add", url.Values{"title": {"Hi"}, "content": {"Hello"}})

	var id int64
	require.NoError(t, srv.db.QueryRow(`SELECT id FROM feedback WHERE username = 'alice'`).Scan(&id))
	path := "/feedback/" + itoa(id)

	resp, body := alice.get(path + "/update")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `value="Hi"`)

	resp, body = alice.post(path+"/update", url.Values{"title": {""}, "content": {"Hello"}})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "The title field is required.")
	assert.Equal(t, "Hi", srv.feedback(t, id).Title)

	resp, _ = alice.post(path+"/update", url.Values{"title": {"Hi again"}, "content": {"Hello again"}})
	assertRedirect(t, resp, "/users/alice")
	fb := srv.feedback(t, id)
	assert.Equal(t, "Hi again", fb.Title)
	assert.Equal(t, "Hello again", fb.Content)
	assert.Equal(t, "alice", fb.Username)

	resp, _ = alice.post(path+"/delete", nil)
	assertRedirect(t, resp, "/users/alice")
	assert.Zero(t, srv.count(t, `SELECT COUNT(*) FROM feedback`))

	resp, body = alice.get(path + "/update")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "could not be found")
}

func TestAddFeedbackValidation(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.newClient(t)
	alice.register("alice", "secret1")

	resp, body := alice.post("/users/alice/feedback/add", url.Values{"title": {strings.Repeat("x", 101)}, "content": {""}})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "The title field must have at most 100 characters.")
	assert.Contains(t, body, "The content field is required.")
	assert.Zero(t, srv.count(t, `SELECT COUNT(*) FROM feedback`))
}

func TestDeleteUserCascadesAndClearsSession(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.newClient(t)
	alice.register("alice", "secret1")
	alice.post("/users/alice/feedback/add", url.Values{"title": {"One"}, "content": {"1"}})
	alice.post("/users/alice/feedback/add", url.Values{"title": {"Two"}, "content": {"2"}})

	bob := srv.newClient(t)
	bob.register("bob", "secret2")
	bob.post("/users/bob/feedback/add", url.Values{"title": {"Bob"}, "content": {"b"}})

	resp, _ := alice.post("/users/alice/delete", nil)
	assertRedirect(t, resp, "/login")
	assert.NotContains(t, alice.cookies, session.CookieName)

	assert.Zero(t, srv.count(t, `SELECT COUNT(*) FROM users WHERE username = 'alice'`))
	assert.Zero(t, srv.count(t, `SELECT COUNT(*) FROM feedback WHERE username = 'alice'`))
	assert.Equal(t, 1, srv.count(t, `SELECT COUNT(*) FROM feedback WHERE username = 'bob'`))

	resp, _ = alice.get("/users/alice")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestStaleSessionIsClearedWithNotFound(t *testing.T) {
	srv := newTestServer(t)
	first := srv.newClient(t)
	first.register("alice", "secret1")

	second := srv.newClient(t)
	resp, _ := second.post("/login", url.Values{"username": {"alice"}, "password": {"secret1"}})
	assertRedirect(t, resp, "/users/alice")
	resp, _ = second.post("/users/alice/delete", nil)
	assertRedirect(t, resp, "/login")

	resp, _ = first.get("/users/alice")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.NotContains(t, first.cookies, session.CookieName)

	resp, _ = first.get("/register")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, "the client is anonymous again")
}

func TestDuplicateRegistration(t *testing.T) {
	srv := newTestServer(t)
	first := srv.newClient(t)
	first.register("alice", "secret1")

	var hash string
	require.NoError(t, srv.db.QueryRow(`SELECT password FROM users WHERE username = 'alice'`).Scan(&hash))
	assert.True(t, utils.CheckPasswordHash("secret1", hash))
	assert.False(t, utils.CheckPasswordHash("alice", hash))

	second := srv.newClient(t)
	resp, body := second.post("/register", url.Values{
		"username":   {"alice"},
		"password":   {"different1"},
		"email":      {"other@example.com"},
		"first_name": {"Other"},
		"last_name":  {"Person"},
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Username already taken.")
	assert.Contains(t, body, `value="other@example.com"`)
	assert.NotContains(t, body, "different1")
	assert.NotContains(t, second.cookies, session.CookieName)
	assert.Equal(t, 1, srv.count(t, `SELECT COUNT(*) FROM users`))
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t)
	c := srv.newClient(t)

	resp, body := c.post("/register", url.Values{
		"username":   {"alice"},
		"password":   {"short"},
		"email":      {"not-an-email"},
		"first_name": {"Alice"},
		"last_name":  {""},
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "The password field must have at least 6 characters.")
	assert.Contains(t, body, "The email field must be a valid email address.")
	assert.Contains(t, body, "The last name field is required.")
	assert.Zero(t, srv.count(t, `SELECT COUNT(*) FROM users`))
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)
	srv.newClient(t).register("alice", "secret1")

	c := srv.newClient(t)
	resp, body := c.post("/login", url.Values{"username": {"alice"}, "password": {"wrong-pass"}})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Invalid username/password.")
	assert.NotContains(t, c.cookies, session.CookieName)

	_, unknownBody := c.post("/login", url.Values{"username": {"nobody"}, "password": {"secret1"}})
	assert.Contains(t, unknownBody, "Invalid username/password.")

	resp, _ = c.post("/login", url.Values{"username": {"alice"}, "password": {"secret1"}})
	assertRedirect(t, resp, "/users/alice")

	resp, _ = c.get("/login")
	assertRedirect(t, resp, "/users/alice")
	resp, _ = c.get("/register")
	assertRedirect(t, resp, "/users/alice")

	assert.Len(t, srv.audit.FilterMessage("Login failed").All(), 2)
	assert.Len(t, srv.audit.FilterMessage("Login successful").All(), 1)
}

func TestLogout(t *testing.T) {
	srv := newTestServer(t)
	c := srv.newClient(t)
	c.register("alice", "secret1")

	resp, _ := c.get("/logout")
	assertRedirect(t, resp, "/login")
	resp, _ = c.get("/users/alice")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = c.get("/logout")
	assertRedirect(t, resp, "/login")
}

func TestAPITokenAndFeedbackList(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.newClient(t)
	alice.register("alice", "secret1")
	alice.post("/users/alice/feedback/add", url.Values{"title": {"Hi"}, "content": {"Hello"}})
	srv.newClient(t).register("bob", "secret2")

	api := srv.newClient(t)
	token := func(username, password string) (*http.Response, map[string]string) {
		req := httptest.NewRequest(fiber.MethodPost, "/api/v1/auth/token",
			strings.NewReader(`{"username":"`+username+`","password":"`+password+`"}`))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := srv.app.Test(req, -1)
		require.NoError(t, err)
		out := map[string]string{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return resp, out
	}

	resp, out := token("alice", "wrong-pass")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid username/password.", out["error"])

	resp, out = token("alice", "secret1")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	api.bearer = out["token"]

	resp, body := api.get("/api/v1/users/alice/feedback")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var items []models.Feedback
	require.NoError(t, json.Unmarshal([]byte(body), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Hi", items[0].Title)

	resp, body = api.get("/api/v1/users/bob/feedback")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"error":"You are not allowed to access this page."}`, body)

	api.bearer = ""
	resp, _ = api.get("/api/v1/users/alice/feedback")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestUsernamesNeedingEscapingReachTheirOwnPages(t *testing.T) {
	srv := newTestServer(t)

	for i, name := range []string{"josé", "john doe", "a/b"} {
		t.Run(name, func(t *testing.T) {
			home := utils.UserPath(name)
			c := srv.newClient(t)
			resp, _ := c.post("/register", url.Values{
				"username":   {name},
				"password":   {"secret1"},
				"email":      {"user" + strconv.Itoa(i) + "@example.com"},
				"first_name": {"First"},
				"last_name":  {"Last"},
			})
			assertRedirect(t, resp, home)

			resp, body := c.get(home)
			require.Equal(t, fiber.StatusOK, resp.StatusCode)
			assert.Contains(t, body, `href="`+home+`/feedback/add"`)

			resp, _ = c.get(home + "/feedback/add")
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			resp, _ = c.post(home+"/feedback/add", url.Values{"title": {"Hi"}, "content": {"Hello"}})
			assertRedirect(t, resp, home)
			assert.Equal(t, 1, srv.count(t, `SELECT COUNT(*) FROM feedback WHERE username = ?`, name))

			var id int64
			require.NoError(t, srv.db.QueryRow(`SELECT id FROM feedback WHERE username = ?`, name).Scan(&id))
			resp, _ = c.post("/feedback/"+itoa(id)+"/update", url.Values{"title": {"Edited"}, "content": {"Hello"}})
			assertRedirect(t, resp, home)

			token, err := utils.GenerateToken(name, "test-secret", time.Minute)
			require.NoError(t, err)
			api := srv.newClient(t)
			api.bearer = token
			resp, body = api.get("/api/v1" + home + "/feedback")
			require.Equal(t, fiber.StatusOK, resp.StatusCode)
			assert.Contains(t, body, "Edited")

			resp, _ = c.post(home+"/delete", nil)
			assertRedirect(t, resp, "/login")
			assert.Equal(t, 0, srv.count(t, `SELECT COUNT(*) FROM users WHERE username = ?`, name))
		})
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, body := srv.newClient(t).get("/health")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"sqlite3":"connected"`)
}

var csrfField = regexp.MustCompile(`name="_csrf" value="([^"]+)"`)

func TestCSRFProtectsForms(t *testing.T) {
	srv := newTestServerWith(t, func(cfg *config.Config) { cfg.CSRFEnabled = true })
	c := srv.newClient(t)

	form := url.Values{
		"username":   {"alice"},
		"password":   {"secret1"},
		"email":      {"alice@example.com"},
		"first_name": {"Alice"},
		"last_name":  {"Liddell"},
	}

	resp, _ := c.post("/register", form)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Zero(t, srv.count(t, `SELECT COUNT(*) FROM users`))

	resp, body := c.get("/register")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	match := csrfField.FindStringSubmatch(body)
	require.Len(t, match, 2, "the form carries a csrf token")

	form.Set("_csrf", match[1])
	resp, _ = c.post("/register", form)
	assertRedirect(t, resp, "/users/alice")
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

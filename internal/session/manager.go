package session

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/fiber/v2/utils"
)

const (
	// CookieName names the cookie carrying the session id.
	CookieName = "session_id"
	// identityKey is the session field holding the logged-in username.
	identityKey = "username"
)

// Config controls the session cookie.
type Config struct {
	Expiration   time.Duration
	CookieSecure bool
	// Storage defaults to fiber's in-memory storage when nil.
	Storage fiber.Storage
}

// Manager tracks at most one identity per client session. Only Login and
// Logout mutate it.
type Manager struct {
	store *fibersession.Store
}

// NewManager creates a Manager backed by fiber's session store.
func NewManager(cfg Config) *Manager {
	return &Manager{
		store: fibersession.New(fibersession.Config{
			Expiration:     cfg.Expiration,
			Storage:        cfg.Storage,
			KeyLookup:      "cookie:" + CookieName,
			CookieHTTPOnly: true,
			CookieSecure:   cfg.CookieSecure,
			CookieSameSite: fiber.CookieSameSiteLaxMode,
			KeyGenerator:   utils.UUIDv4,
		}),
	}
}

// Identity returns the username bound to the client's session, or "" when anonymous.
func (m *Manager) Identity(c *fiber.Ctx) (string, error) {
	sess, err := m.store.Get(c)
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	if sess.Fresh() {
		return "", nil
	}
	username, _ := sess.Get(identityKey).(string)
	return username, nil
}

// Login binds username to a freshly generated session id.
func (m *Manager) Login(c *fiber.Ctx, username string) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if err := sess.Regenerate(); err != nil {
		return fmt.Errorf("regenerate session: %w", err)
	}
	sess.Set(identityKey, username)
	if err := sess.Save(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Logout drops the identity and the session itself. Logging out an anonymous client is a no-op.
func (m *Manager) Logout(c *fiber.Ctx) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess.Fresh() {
		return nil
	}
	if err := sess.Destroy(); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

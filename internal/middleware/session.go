package middleware

import (
	"feedback-webapp/internal/session"
	"feedback-webapp/internal/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// LoadIdentity resolves the session identity once per request and stores it under SessionUserKey.
func LoadIdentity(mgr *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username, err := mgr.Identity(c)
		if err != nil {
			GetRequestFileLogger(c).Error("Failed to load session", zap.Error(err))
			return fiber.ErrInternalServerError
		}
		c.Locals(SessionUserKey, username)
		if username != "" {
			c.Locals(RequestFileLoggerKey, GetRequestFileLogger(c).With(zap.String("session_user", username)))
		}
		return c.Next()
	}
}

// CurrentUser returns the session identity, or "" for anonymous clients.
func CurrentUser(c *fiber.Ctx) string {
	username, _ := c.Locals(SessionUserKey).(string)
	return username
}

// RequireAnonymous sends logged-in clients to their own page.
func RequireAnonymous() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if username := CurrentUser(c); username != "" {
			return c.Redirect(utils.UserPath(username), fiber.StatusFound)
		}
		return c.Next()
	}
}

// ClearIdentity forgets the identity for the rest of the request, after the session was dropped.
func ClearIdentity(c *fiber.Ctx) {
	c.Locals(SessionUserKey, "")
}

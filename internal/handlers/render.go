package handlers

import (
	mw "feedback-webapp/internal/middleware"
	"feedback-webapp/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
)

const invalidCredentialsMessage = "Invalid username/password."

// render adds the values every page needs and renders name inside the main layout.
func render(c *fiber.Ctx, name string, data fiber.Map) error {
	data["CurrentUser"] = mw.CurrentUser(c)
	if token, ok := c.Locals(mw.CSRFContextKey).(string); ok {
		data["CSRF"] = token
	}
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = validation.FieldErrors(nil)
	}
	return c.Render(name, data)
}

// RenderError answers with the error page, or plain text if the page itself fails to render.
func RenderError(c *fiber.Ctx, status int, message string) error {
	c.Status(status)
	if err := render(c, "errors/error", fiber.Map{
		"Title":   utils.StatusMessage(status),
		"Status":  status,
		"Message": message,
	}); err != nil {
		mw.GetRequestFileLogger(c).Error("Failed to render error page", zap.Error(err))
		return c.Status(status).SendString(message)
	}
	return nil
}

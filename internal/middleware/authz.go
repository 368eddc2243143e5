package middleware

import (
	"errors"
	"strconv"

	"feedback-webapp/internal/models"
	"feedback-webapp/internal/services"
	"feedback-webapp/internal/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RequireSelf allows the request only when the identity equals the :username path param.
// identity extracts the caller, CurrentUser for pages and APIUser for the JSON API.
func RequireSelf(identity func(*fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := identity(c)
		owner := UsernameParam(c)
		if err := services.Authorize(caller, owner); err != nil {
			GetRequestAuditLogger(c).Warn("Authorization denied",
				zap.String("identity", caller),
				zap.String("owner", owner),
				zap.String("path", c.Path()),
			)
			return fiber.ErrUnauthorized
		}
		return c.Next()
	}
}

// RequireFeedbackOwner loads the feedback named by :id and allows the request only
// for its owner. The record is stored under FeedbackKey.
func RequireFeedbackOwner(feedbackService services.FeedbackService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		logger := GetRequestFileLogger(c)
		caller := CurrentUser(c)
		if caller == "" {
			GetRequestAuditLogger(c).Warn("Authorization denied", zap.String("path", c.Path()))
			return fiber.ErrUnauthorized
		}

		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil || id <= 0 {
			return fiber.ErrNotFound
		}

		fb, err := feedbackService.Get(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, services.ErrFeedbackNotFound) {
				return fiber.ErrNotFound
			}
			logger.Error("Failed to load feedback", zap.Int64("feedback_id", id), zap.Error(err))
			return fiber.ErrInternalServerError
		}

		if err := services.Authorize(caller, fb.Username); err != nil {
			GetRequestAuditLogger(c).Warn("Authorization denied",
				zap.String("identity", caller),
				zap.String("owner", fb.Username),
				zap.Int64("feedback_id", id),
			)
			return fiber.ErrUnauthorized
		}

		c.Locals(FeedbackKey, fb)
		return c.Next()
	}
}

// UsernameParam returns the :username path param, percent-decoded.
func UsernameParam(c *fiber.Ctx) string {
	return utils.UnescapeSegment(c.Params("username"))
}

// CurrentFeedback returns the record loaded by RequireFeedbackOwner.
func CurrentFeedback(c *fiber.Ctx) *models.Feedback {
	fb, _ := c.Locals(FeedbackKey).(*models.Feedback)
	return fb
}

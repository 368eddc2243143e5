package handlers

import (
	"errors"

	mw "feedback-webapp/internal/middleware"
	"feedback-webapp/internal/pkg/validation"
	"feedback-webapp/internal/services"
	"feedback-webapp/internal/session"
	"feedback-webapp/internal/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// FeedbackHandler handles feedback create, update and delete.
// Ownership is checked by middleware before any handler runs.
type FeedbackHandler struct {
	feedbackService services.FeedbackService
	sessions        *session.Manager
}

// NewFeedbackHandler creates a new FeedbackHandler
func NewFeedbackHandler(feedbackService services.FeedbackService, sessions *session.Manager) *FeedbackHandler {
	return &FeedbackHandler{feedbackService: feedbackService, sessions: sessions}
}

// ShowAdd handles GET /users/:username/feedback/add
func (h *FeedbackHandler) ShowAdd(c *fiber.Ctx) error {
	return renderNewFeedback(c, mw.UsernameParam(c), validation.FeedbackForm{}, nil)
}

// Add handles POST /users/:username/feedback/add
func (h *FeedbackHandler) Add(c *fiber.Ctx) error {
	logger := mw.GetRequestFileLogger(c)
	owner := mw.UsernameParam(c)

	var form validation.FeedbackForm
	if err := c.BodyParser(&form); err != nil {
		logger.Warn("Failed to parse feedback form", zap.Error(err))
		return fiber.ErrBadRequest
	}
	if errs := validation.Validate(&form); errs != nil {
		return renderNewFeedback(c, owner, form, errs)
	}

	fb, err := h.feedbackService.Add(c.UserContext(), owner, form.Title, form.Content)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			logger.Warn("Session refers to a missing user", zap.String("username", owner))
			if err := h.sessions.Logout(c); err != nil {
				logger.Error("Failed to clear stale session", zap.Error(err))
			}
			mw.ClearIdentity(c)
			return fiber.ErrNotFound
		}
		logger.Error("Failed to add feedback", zap.String("username", owner), zap.Error(err))
		return fiber.ErrInternalServerError
	}

	logger.Info("Feedback added", zap.Int64("feedback_id", fb.ID), zap.String("username", owner))
	return c.Redirect(utils.UserPath(owner), fiber.StatusFound)
}

// ShowUpdate handles GET /feedback/:id/update
func (h *FeedbackHandler) ShowUpdate(c *fiber.Ctx) error {
	fb := mw.CurrentFeedback(c)
	return render(c, "feedback/edit", fiber.Map{
		"Title":    "Edit feedback",
		"Feedback": fb,
		"Form":     validation.FeedbackForm{Title: fb.Title, Content: fb.Content},
	})
}

// Update handles POST /feedback/:id/update
func (h *FeedbackHandler) Update(c *fiber.Ctx) error {
	logger := mw.GetRequestFileLogger(c)
	fb := mw.CurrentFeedback(c)

	var form validation.FeedbackForm
	if err := c.BodyParser(&form); err != nil {
		logger.Warn("Failed to parse feedback form", zap.Error(err))
		return fiber.ErrBadRequest
	}
	if errs := validation.Validate(&form); errs != nil {
		return render(c, "feedback/edit", fiber.Map{
			"Title":    "Edit feedback",
			"Feedback": fb,
			"Form":     form,
			"Errors":   errs,
		})
	}

	if err := h.feedbackService.Update(c.UserContext(), fb, form.Title, form.Content); err != nil {
		if errors.Is(err, services.ErrFeedbackNotFound) {
			return fiber.ErrNotFound
		}
		logger.Error("Failed to update feedback", zap.Int64("feedback_id", fb.ID), zap.Error(err))
		return fiber.ErrInternalServerError
	}

	logger.Info("Feedback updated", zap.Int64("feedback_id", fb.ID))
	return c.Redirect(utils.UserPath(fb.Username), fiber.StatusFound)
}

// Delete handles POST /feedback/:id/delete
func (h *FeedbackHandler) Delete(c *fiber.Ctx) error {
	logger := mw.GetRequestFileLogger(c)
	fb := mw.CurrentFeedback(c)

	if err := h.feedbackService.Delete(c.UserContext(), fb); err != nil {
		if errors.Is(err, services.ErrFeedbackNotFound) {
			return fiber.ErrNotFound
		}
		logger.Error("Failed to delete feedback", zap.Int64("feedback_id", fb.ID), zap.Error(err))
		return fiber.ErrInternalServerError
	}

	logger.Info("Feedback deleted", zap.Int64("feedback_id", fb.ID))
	return c.Redirect(utils.UserPath(fb.Username), fiber.StatusFound)
}

func renderNewFeedback(c *fiber.Ctx, owner string, form validation.FeedbackForm, errs validation.FieldErrors) error {
	return render(c, "feedback/new", fiber.Map{
		"Title":  "Add feedback",
		"Owner":  owner,
		"Form":   form,
		"Errors": errs,
	})
}

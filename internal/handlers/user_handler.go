package handlers

import (
	"errors"

	mw "feedback-webapp/internal/middleware"
	"feedback-webapp/internal/services"
	"feedback-webapp/internal/session"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UserHandler serves a user's own page and account deletion
type UserHandler struct {
	userService     services.UserService
	feedbackService services.FeedbackService
	sessions        *session.Manager
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService services.UserService, feedbackService services.FeedbackService, sessions *session.Manager) *UserHandler {
	return &UserHandler{
		userService:     userService,
		feedbackService: feedbackService,
		sessions:        sessions,
	}
}

// Show handles GET /users/:username
func (h *UserHandler) Show(c *fiber.Ctx) error {
	logger := mw.GetRequestFileLogger(c)
	username := mw.UsernameParam(c)

	user, err := h.userService.GetUser(c.UserContext(), username)
	if err != nil {
		return h.userLookupFailed(c, username, err)
	}

	items, err := h.feedbackService.ListForUser(c.UserContext(), username)
	if err != nil {
		logger.Error("Failed to list feedback", zap.String("username", username), zap.Error(err))
		return fiber.ErrInternalServerError
	}

	return render(c, "users/show", fiber.Map{
		"Title":    user.Username,
		"User":     user,
		"Feedback": items,
	})
}

// Delete handles POST /users/:username/delete
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	username := mw.UsernameParam(c)

	if err := h.userService.DeleteUser(c.UserContext(), username); err != nil {
		return h.userLookupFailed(c, username, err)
	}

	if err := h.sessions.Logout(c); err != nil {
		mw.GetRequestFileLogger(c).Error("Failed to clear session after user deletion", zap.Error(err))
		return fiber.ErrInternalServerError
	}

	mw.GetRequestAuditLogger(c).Info("User deleted", zap.String("username", username))
	return c.Redirect("/login", fiber.StatusFound)
}

// ListFeedback handles GET /api/v1/users/:username/feedback
func (h *UserHandler) ListFeedback(c *fiber.Ctx) error {
	logger := mw.GetRequestFileLogger(c)
	username := mw.UsernameParam(c)

	if _, err := h.userService.GetUser(c.UserContext(), username); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return fiber.ErrNotFound
		}
		logger.Error("Failed to load user", zap.String("username", username), zap.Error(err))
		return fiber.ErrInternalServerError
	}

	items, err := h.feedbackService.ListForUser(c.UserContext(), username)
	if err != nil {
		logger.Error("Failed to list feedback", zap.String("username", username), zap.Error(err))
		return fiber.ErrInternalServerError
	}
	return c.Status(fiber.StatusOK).JSON(items)
}

// userLookupFailed clears a session whose user is gone and answers 404.
func (h *UserHandler) userLookupFailed(c *fiber.Ctx, username string, err error) error {
	logger := mw.GetRequestFileLogger(c)
	if !errors.Is(err, services.ErrUserNotFound) {
		logger.Error("User operation failed", zap.String("username", username), zap.Error(err))
		return fiber.ErrInternalServerError
	}
	logger.Warn("Session refers to a missing user", zap.String("username", username))
	if err := h.sessions.Logout(c); err != nil {
		logger.Error("Failed to clear stale session", zap.Error(err))
	}
	mw.ClearIdentity(c)
	return fiber.ErrNotFound
}

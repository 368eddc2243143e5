package handlers

import (
	"errors"

	mw "feedback-webapp/internal/middleware" // Import middleware package for GetRequest*Logger funcs
	"feedback-webapp/internal/pkg/validation"
	"feedback-webapp/internal/services"
	"feedback-webapp/internal/session"
	"feedback-webapp/internal/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthHandler handles registration, login and logout
type AuthHandler struct {
	authService services.AuthService
	sessions    *session.Manager
	// No logger stored here, obtained per request from context
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService services.AuthService, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
	}
}

// Home handles GET /
func (h *AuthHandler) Home(c *fiber.Ctx) error {
	return c.Redirect("/register", fiber.StatusFound)
}

// ShowRegister handles GET /register
func (h *AuthHandler) ShowRegister(c *fiber.Ctx) error {
	return renderRegister(c, validation.RegisterForm{}, nil)
}

// Register handles POST /register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	fileLogger := mw.GetRequestFileLogger(c)
	auditLogger := mw.GetRequestAuditLogger(c)

	var form validation.RegisterForm
	if err := c.BodyParser(&form); err != nil {
		fileLogger.Warn("Failed to parse register form", zap.Error(err))
		return fiber.ErrBadRequest
	}

	if errs := validation.Validate(&form); errs != nil {
		fileLogger.Debug("Register form validation failed", zap.Any("errors", errs))
		return renderRegister(c, form, errs)
	}

	user, err := h.authService.Register(c.UserContext(), services.RegisterInput{
		Username:  form.Username,
		Password:  form.Password,
		Email:     form.Email,
		FirstName: form.FirstName,
		LastName:  form.LastName,
	})
	if err != nil {
		if errors.Is(err, services.ErrUsernameExists) {
			auditLogger.Warn("Registration rejected: username taken", zap.String("username", form.Username))
			errs := validation.FieldErrors{}
			errs.Add("username", "Username already taken.")
			return renderRegister(c, form, errs)
		}
		fileLogger.Error("Registration failed", zap.String("username", form.Username), zap.Error(err))
		return fiber.ErrInternalServerError
	}

	if err := h.sessions.Login(c, user.Username); err != nil {
		fileLogger.Error("Failed to start session after registration", zap.String("username", user.Username), zap.Error(err))
		return fiber.ErrInternalServerError
	}

	auditLogger.Info("User registered", zap.String("username", user.Username))
	return c.Redirect(utils.UserPath(user.Username), fiber.StatusFound)
}

// ShowLogin handles GET /login
func (h *AuthHandler) ShowLogin(c *fiber.Ctx) error {
	return renderLogin(c, validation.LoginForm{}, nil)
}

// Login handles POST /login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	fileLogger := mw.GetRequestFileLogger(c)
	auditLogger := mw.GetRequestAuditLogger(c)

	var form validation.LoginForm
	if err := c.BodyParser(&form); err != nil {
		fileLogger.Warn("Failed to parse login form", zap.Error(err))
		return fiber.ErrBadRequest
	}

	if errs := validation.Validate(&form); errs != nil {
		return renderLogin(c, form, errs)
	}

	user, err := h.authService.Authenticate(c.UserContext(), form.Username, form.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			auditLogger.Warn("Login failed", zap.String("username", form.Username))
			errs := validation.FieldErrors{}
			errs.Add("username", invalidCredentialsMessage)
			return renderLogin(c, form, errs)
		}
		fileLogger.Error("Internal server error during login", zap.String("username", form.Username), zap.Error(err))
		return fiber.ErrInternalServerError
	}

	if err := h.sessions.Login(c, user.Username); err != nil {
		fileLogger.Error("Failed to start session", zap.String("username", user.Username), zap.Error(err))
		return fiber.ErrInternalServerError
	}

	auditLogger.Info("Login successful", zap.String("username", user.Username))
	return c.Redirect(utils.UserPath(user.Username), fiber.StatusFound)
}

// Logout handles GET /logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	username := mw.CurrentUser(c)
	if err := h.sessions.Logout(c); err != nil {
		mw.GetRequestFileLogger(c).Error("Failed to clear session", zap.Error(err))
		return fiber.ErrInternalServerError
	}
	if username != "" {
		mw.GetRequestAuditLogger(c).Info("Logout", zap.String("username", username))
	}
	return c.Redirect("/login", fiber.StatusFound)
}

// IssueToken handles POST /api/v1/auth/token
func (h *AuthHandler) IssueToken(c *fiber.Ctx) error {
	fileLogger := mw.GetRequestFileLogger(c)

	var req validation.LoginForm
	if !validation.ParseAndValidate(c, &req) {
		fileLogger.Warn("Token request validation failed or bad request body")
		return nil // Response already sent by ParseAndValidate
	}

	token, err := h.authService.IssueToken(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			mw.GetRequestAuditLogger(c).Warn("Token request rejected", zap.String("username", req.Username))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": invalidCredentialsMessage,
			})
		}
		fileLogger.Error("Internal server error during token issue", zap.String("username", req.Username), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Token request failed due to an internal error",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"token": token,
	})
}

func renderRegister(c *fiber.Ctx, form validation.RegisterForm, errs validation.FieldErrors) error {
	form.Password = ""
	return render(c, "users/register", fiber.Map{"Title": "Register", "Form": form, "Errors": errs})
}

func renderLogin(c *fiber.Ctx, form validation.LoginForm, errs validation.FieldErrors) error {
	form.Password = ""
	return render(c, "users/login", fiber.Map{"Title": "Log in", "Form": form, "Errors": errs})
}

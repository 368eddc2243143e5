package bootstrap

import (
	"database/sql"
	"fmt"
	"time"

	"feedback-webapp/internal/config"
	"feedback-webapp/internal/handlers"
	"feedback-webapp/internal/repositories"
	"feedback-webapp/internal/services"
	"feedback-webapp/internal/session"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AppComponents holds all the initialized application components.
type AppComponents struct {
	AuthHandler     *handlers.AuthHandler
	UserHandler     *handlers.UserHandler
	FeedbackHandler *handlers.FeedbackHandler
	FeedbackService services.FeedbackService // used by the owner gate
	Sessions        *session.Manager
	AppDB           *sql.DB // pinged by the health check
}

// InitializeAppComponents wires repositories, services, the session manager and handlers.
// sessionStorage may be nil to use fiber's in-memory session storage.
func InitializeAppComponents(
	cfg *config.Config,
	logger *zap.Logger,
	appDB *sql.DB,
	sessionStorage fiber.Storage,
) (*AppComponents, error) {
	logger.Info("Initializing application components...")

	// --- 1. Initialize Repositories ---
	dialect, err := repositories.DialectFor(cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("select sql dialect: %w", err)
	}
	userRepo := repositories.NewUserRepository(appDB, dialect, logger)
	feedbackRepo := repositories.NewFeedbackRepository(appDB, dialect, logger)
	logger.Info("Repositories initialized.", zap.String("dialect", dialect.Name))

	// --- 2. Initialize Services ---
	authService := services.NewAuthService(
		userRepo,
		logger,
		cfg.BcryptCost,
		cfg.JWTSecret,
		time.Duration(cfg.JWTExpirationMinutes)*time.Minute,
	)
	userService := services.NewUserService(userRepo, logger)
	feedbackService := services.NewFeedbackService(feedbackRepo, logger)
	logger.Info("Services initialized.")

	// --- 3. Initialize Session Manager ---
	sessions := session.NewManager(session.Config{
		Expiration:   time.Duration(cfg.SessionExpirationMinutes) * time.Minute,
		CookieSecure: cfg.SessionCookieSecure,
		Storage:      sessionStorage,
	})

	// --- 4. Initialize Handlers ---
	components := &AppComponents{
		AuthHandler:     handlers.NewAuthHandler(authService, sessions),
		UserHandler:     handlers.NewUserHandler(userService, feedbackService, sessions),
		FeedbackHandler: handlers.NewFeedbackHandler(feedbackService, sessions),
		FeedbackService: feedbackService,
		Sessions:        sessions,
		AppDB:           appDB,
	}
	logger.Info("Application components initialization complete.")

	return components, nil
}

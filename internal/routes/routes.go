package routes

import (
	"context"
	"database/sql"
	"time"

	"feedback-webapp/internal/bootstrap"
	"feedback-webapp/internal/config"
	mw "feedback-webapp/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SetupRoutes configures the application routes.
func SetupRoutes(
	app *fiber.App,
	cfg *config.Config,
	logger *zap.Logger,
	components *bootstrap.AppComponents,
) {
	logger.Info("Setting up application routes...")

	// Health Check
	app.Get("/health", healthCheck(components.AppDB, cfg.DBDriver))

	// --- API v1 Routes ---
	api := app.Group("/api/v1")
	api.Post("/auth/token", components.AuthHandler.IssueToken)

	// Protected Routes (Requires JWT Authentication)
	protected := api.Group("/", mw.Protected(cfg.JWTSecret))
	protected.Get("/users/:username/feedback", mw.RequireSelf(mw.APIUser), components.UserHandler.ListFeedback)

	// --- HTML Routes (cookie session) ---
	web := app.Group("/", mw.LoadIdentity(components.Sessions))

	auth := components.AuthHandler
	web.Get("/", auth.Home)
	web.Get("/register", mw.RequireAnonymous(), auth.ShowRegister)
	web.Post("/register", mw.RequireAnonymous(), auth.Register)
	web.Get("/login", mw.RequireAnonymous(), auth.ShowLogin)
	web.Post("/login", mw.RequireAnonymous(), auth.Login)
	web.Get("/logout", auth.Logout)

	self := mw.RequireSelf(mw.CurrentUser)
	users := web.Group("/users/:username", self)
	users.Get("/", components.UserHandler.Show)
	users.Post("/delete", components.UserHandler.Delete)
	users.Get("/feedback/add", components.FeedbackHandler.ShowAdd)
	users.Post("/feedback/add", components.FeedbackHandler.Add)

	owner := mw.RequireFeedbackOwner(components.FeedbackService)
	feedback := web.Group("/feedback/:id", owner)
	feedback.Get("/update", components.FeedbackHandler.ShowUpdate)
	feedback.Post("/update", components.FeedbackHandler.Update)
	feedback.Post("/delete", components.FeedbackHandler.Delete)
}

func healthCheck(appDB *sql.DB, driver string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lg := mw.GetRequestFileLogger(c)
		healthStatus := fiber.Map{"status": "healthy", "timestamp": time.Now().UTC()}
		dbStatus := fiber.Map{}

		if appDB != nil {
			pingCtx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
			defer cancel()
			if err := appDB.PingContext(pingCtx); err == nil {
				dbStatus[driver] = "connected"
			} else {
				dbStatus[driver] = "disconnected"
				healthStatus["status"] = "degraded"
				lg.Warn("Health check: database ping failed", zap.Error(err))
			}
		} else {
			dbStatus[driver] = "uninitialized"
		}
		healthStatus["dependencies"] = dbStatus
		return c.Status(fiber.StatusOK).JSON(healthStatus)
	}
}

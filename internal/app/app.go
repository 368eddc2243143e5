package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"feedback-webapp/internal/bootstrap"
	"feedback-webapp/internal/config"
	"feedback-webapp/internal/database"
	"feedback-webapp/internal/handlers"
	"feedback-webapp/internal/logging"
	"feedback-webapp/internal/middleware"
	"feedback-webapp/internal/repositories"
	routes "feedback-webapp/internal/routes"
	"feedback-webapp/internal/utils"
	"feedback-webapp/internal/views"

	"github.com/DeRuina/timberjack"
	"github.com/gofiber/contrib/fiberzap/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Run initializes and starts the application
func Run() {
	var fileLogger *zap.Logger
	var appDB *sql.DB
	var auditDB *sql.DB
	var cfg *config.Config
	var err error

	// <<<< Record start time for App initialization
	initAppStartTime := time.Now()

	// --- 1. Load Configuration ---
	tempConfigLogger, _ := zap.NewProduction(zap.ErrorOutput(zapcore.Lock(os.Stderr)))
	defer tempConfigLogger.Sync()

	cfg, err = config.LoadConfig(tempConfigLogger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- 2. Create SHARED File Writer/Syncer for timberjack ---
	fileSyncer, err := newFileSyncer(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	// --- 3. Open the audit store (if enabled) and its LogRepository ---
	if cfg.AuditLogEnabled {
		auditDB, err = database.InitAuditSQLite(cfg, tempConfigLogger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: Failed to open audit database: %v\n", err)
			os.Exit(1)
		}
	}
	logRepo := repositories.NewLogRepository(auditDB)

	// --- 4. Initialize Application Loggers (File/Console and Audit) ---
	appLoggers, err := logging.InitializeLoggers(cfg, logRepo, fileSyncer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize application loggers: %v\n", err)
		os.Exit(1)
	}
	fileLogger = appLoggers.File
	logging.SetGlobalLoggers(fileLogger, appLoggers.Audit)
	fileLogger.Info("Global application loggers (file/console and audit) have been set.")

	// --- 5. Trace Config Details ---
	utils.TraceConfigDetails(fileLogger, cfg)

	// --- 6. Initialize Application Database ---
	appDB, err = database.InitAppDB(cfg, fileLogger)
	if err != nil {
		fileLogger.Fatal("Failed to initialize application database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	fileLogger.Info("Application database initialized successfully.", zap.String("driver", cfg.DBDriver))

	// --- 7. Initialize Application Components (Bootstrap) ---
	components, err := bootstrap.InitializeAppComponents(cfg, fileLogger, appDB, nil)
	if err != nil {
		fileLogger.Fatal("Failed to initialize application components", zap.Error(err))
	}

	// --- 8. Initialize Fiber App ---
	appFiber, err := NewFiberApp(cfg, components, appLoggers)
	if err != nil {
		fileLogger.Fatal("Failed to initialize Fiber application", zap.Error(err))
	}

	// --- 9. Start Server & Graceful Shutdown ---
	serverCtx, cancelServerCtx := context.WithCancel(context.Background())
	defer cancelServerCtx()
	serverStopped := make(chan struct{})

	initAppDurationMs := time.Since(initAppStartTime).Milliseconds()

	go func() {
		defer close(serverStopped)
		listenAddr := ":" + cfg.Port
		fileLogger.Info(fmt.Sprintf("Completed initialization application in %d ms.", initAppDurationMs))
		fileLogger.Info("Starting Fiber server...",
			zap.String("address", listenAddr),
			zap.Bool("prefork_enabled", appFiber.Config().Prefork),
			zap.Int("pid", os.Getpid()),
			zap.String("app_env", cfg.AppEnv),
		)

		if err := appFiber.Listen(listenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fileLogger.Error("Server listener failed", zap.String("address", listenAddr), zap.Error(err))
			cancelServerCtx()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	select {
	case s := <-sig:
		fileLogger.Info("Shutdown signal received.", zap.String("signal", s.String()))
	case <-serverCtx.Done():
		fileLogger.Info("Server context cancelled, initiating shutdown.")
	}

	fileLogger.Info("Initiating graceful shutdown...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancelShutdown()

	if err := appFiber.ShutdownWithContext(shutdownCtx); err != nil {
		fileLogger.Error("Fiber server shutdown failed", zap.Error(err))
	} else {
		fileLogger.Info("Fiber server gracefully stopped.")
	}
	<-serverStopped
	fileLogger.Info("HTTP listener goroutine stopped.")

	fileLogger.Info("Syncing file/console logger before shutdown...")
	if errSync := fileLogger.Sync(); errSync != nil {
		errMsg := errSync.Error()
		if strings.Contains(errMsg, "handle is invalid") || strings.Contains(errMsg, "sync /dev/stdout") {
			fileLogger.Debug("Logger sync warning for stdout (handle likely invalid during shutdown).", zap.Error(errSync))
		} else {
			fmt.Fprintf(os.Stderr, "[WARN] Error syncing file/console logger: %v\n", errSync)
		}
	}

	if appDB != nil {
		if errClose := appDB.Close(); errClose != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] Error closing application database: %v\n", errClose)
		} else {
			fmt.Println("[INFO] Application database connection closed.")
		}
	}
	if auditDB != nil {
		if errClose := auditDB.Close(); errClose != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] Error closing audit database: %v\n", errClose)
		} else {
			fmt.Println("[INFO] Audit database connection closed.")
		}
	}
	fmt.Println("[INFO] Application shut down complete.")
}

// newFileSyncer creates the rotating log file shared by the file core.
func newFileSyncer(cfg *config.Config) (zapcore.WriteSyncer, error) {
	logDir := filepath.Dir(cfg.LogFilePath)
	if logDir != "." && logDir != "/" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to ensure log directory %s exists: %w", logDir, err)
		}
	}
	timberJackLogger := &timberjack.Logger{
		Filename:         cfg.LogFilePath,
		MaxSize:          cfg.LogMaxSize,
		MaxBackups:       cfg.LogMaxBackups,
		MaxAge:           cfg.LogMaxAge,
		Compress:         cfg.LogCompress,
		LocalTime:        true,
		RotationInterval: time.Duration(cfg.LogRotateInterval) * time.Hour,
	}
	fmt.Fprintf(os.Stderr, "[INFO] Shared file syncer created for path: %s with MaxSize: %d MB, RotateInterval: %d hours\n", cfg.LogFilePath, cfg.LogMaxSize, cfg.LogRotateInterval)
	return zapcore.AddSync(timberJackLogger), nil
}

// NewFiberApp builds the fiber application: views, error handler, middleware and routes.
func NewFiberApp(cfg *config.Config, components *bootstrap.AppComponents, loggers *logging.AppLoggers) (*fiber.App, error) {
	fileLogger := loggers.File

	engine, err := views.NewEngine()
	if err != nil {
		return nil, err
	}

	fileLogger.Info("Initializing Fiber application...")
	appFiber := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		Prefork:      cfg.Prefork,
		Views:        engine,
		ViewsLayout:  views.Layout,
		ErrorHandler: errorHandler(cfg),
	})

	appFiber.Use(recover.New(recover.Config{
		EnableStackTrace: strings.ToLower(cfg.LogLevel) == "debug",
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			middleware.GetRequestFileLogger(c).Error("Panic recovered", zap.Any("panic_value", e))
		},
	}))
	fileLogger.Info("Configuring CORS", zap.String("origins", cfg.CORSAllowOrigins), zap.String("methods", cfg.CORSAllowMethods), zap.String("headers", cfg.CORSAllowHeaders))
	appFiber.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowMethods: cfg.CORSAllowMethods,
		AllowHeaders: cfg.CORSAllowHeaders,
	}))
	appFiber.Use(middleware.RequestLoggers(fileLogger, loggers.Audit))
	if strings.ToLower(cfg.LogLevel) == "debug" {
		appFiber.Use(middleware.RequestDebugLogger())
	}
	appFiber.Use(fiberzap.New(fiberzap.Config{
		Logger: fileLogger,
		Fields: []string{"status", "method", "url", "ip", "latency", "error"},
		FieldsFunc: func(c *fiber.Ctx) []zap.Field {
			fields := []zap.Field{zap.String("log_type", "access")}
			if reqID := middleware.GetRequestID(c); reqID != "" {
				fields = append(fields, zap.String("request_id", reqID))
			}
			return fields
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health"
		},
	}))
	if cfg.CSRFEnabled {
		appFiber.Use(csrf.New(csrf.Config{
			KeyLookup:      "form:_csrf",
			ContextKey:     middleware.CSRFContextKey,
			CookieSecure:   cfg.SessionCookieSecure,
			CookieHTTPOnly: true,
			CookieSameSite: fiber.CookieSameSiteLaxMode,
			Expiration:     time.Duration(cfg.SessionExpirationMinutes) * time.Minute,
			Next: func(c *fiber.Ctx) bool {
				return isAPIRequest(c)
			},
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				middleware.GetRequestAuditLogger(c).Warn("CSRF check failed", zap.String("path", c.Path()), zap.Error(err))
				return fiber.ErrForbidden
			},
		}))
	} else {
		fileLogger.Warn("CSRF protection is disabled by configuration.")
	}

	routes.SetupRoutes(appFiber, cfg, fileLogger, components)
	return appFiber, nil
}

func isAPIRequest(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), "/api/")
}

// errorHandler logs the failure and answers with JSON for the API and the error page otherwise.
func errorHandler(cfg *config.Config) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		lg := middleware.GetRequestFileLogger(c)
		code := fiber.StatusInternalServerError
		var e *fiber.Error
		if errors.As(err, &e) && e != nil {
			code = e.Code
		}
		fields := []zap.Field{
			zap.Int("status", code),
			zap.String("path", c.Path()),
			zap.String("method", c.Method()),
			zap.String("ip", c.IP()),
			zap.Error(err),
		}
		switch {
		case code == fiber.StatusNotFound:
			lg.Warn("Resource not found", fields...)
		case code < fiber.StatusInternalServerError:
			lg.Warn("Request rejected", fields...)
		default:
			lg.Error("Generic ErrorHandler", fields...)
		}

		message := errorMessage(code)
		if isAPIRequest(c) {
			resp := fiber.Map{"error": message}
			if !cfg.IsProduction() && code >= fiber.StatusInternalServerError {
				resp["detail"] = err.Error()
			}
			return c.Status(code).JSON(resp)
		}
		return handlers.RenderError(c, code, message)
	}
}

func errorMessage(code int) string {
	switch code {
	case fiber.StatusUnauthorized:
		return "You are not allowed to access this page."
	case fiber.StatusForbidden:
		return "The form has expired. Please go back and try again."
	case fiber.StatusNotFound:
		return "The requested page could not be found."
	case fiber.StatusBadRequest:
		return "The request could not be understood."
	default:
		if code < fiber.StatusInternalServerError {
			return http.StatusText(code)
		}
		return "An unexpected error occurred"
	}
}

package middleware

import (
	"feedback-webapp/internal/logging" // To get the base loggers

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestLoggers is a middleware that injects request-scoped loggers into c.Locals().
// These loggers include a unique "request_id" field, which is also stored in Locals
// and echoed in the X-Request-ID response header.
func RequestLoggers(baseFileLogger, baseAuditLogger *zap.Logger) fiber.Handler {
	if baseFileLogger == nil {
		baseFileLogger = zap.NewNop()
	}
	if baseAuditLogger == nil {
		baseAuditLogger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		requestID := uuid.NewString()

		c.Set(RequestIDHeader, requestID)
		c.Locals(RequestIDKey, requestID)

		c.Locals(RequestFileLoggerKey, baseFileLogger.With(zap.String("request_id", requestID)))
		c.Locals(RequestAuditLoggerKey, baseAuditLogger.With(
			zap.String("request_id", requestID),
			zap.String("ip", c.IP()),
		))

		return c.Next()
	}
}

// GetRequestFileLogger retrieves the request-scoped file/console logger from fiber.Ctx.Locals.
// Falls back to the global file logger if not found.
func GetRequestFileLogger(c *fiber.Ctx) *zap.Logger {
	if logger, ok := c.Locals(RequestFileLoggerKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return logging.GetFileLogger()
}

// GetRequestAuditLogger retrieves the request-scoped audit logger from fiber.Ctx.Locals.
// Falls back to the global audit logger (which might be Nop).
func GetRequestAuditLogger(c *fiber.Ctx) *zap.Logger {
	if logger, ok := c.Locals(RequestAuditLoggerKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return logging.GetAuditLogger()
}

// GetRequestID retrieves the request ID string from fiber.Ctx.Locals.
// Returns an empty string if not found.
func GetRequestID(c *fiber.Ctx) string {
	if reqID, ok := c.Locals(RequestIDKey).(string); ok {
		return reqID
	}
	return ""
}

package middleware

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gofiber/fiber/v2"
)

const maxBodyLogSize = 1024 // Limit body size logged (e.g., 1KB)

var (
	jsonPasswordPattern = regexp.MustCompile(`("password"\s*:\s*")[^"]*(")`)
	formPasswordPattern = regexp.MustCompile(`(^|&)(password=)[^&]*`)
	formCSRFPattern     = regexp.MustCompile(`(^|&)(_csrf=)[^&]*`)
)

// RequestDebugLogger logs detailed request information (headers, body) if the logger level is Debug,
// and also logs response status and latency after the request is handled.
func RequestDebugLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		logger := GetRequestFileLogger(c)
		startTime := time.Now()

		if logger.Core().Enabled(zapcore.DebugLevel) {
			headersMap := make(map[string]string)
			c.Request().Header.VisitAll(func(key, value []byte) {
				headerKey := string(key)
				if headerKey == "Authorization" || headerKey == "Cookie" {
					headersMap[headerKey] = "*** HIDDEN ***"
				} else {
					headersMap[headerKey] = string(value)
				}
			})

			var bodyLog string
			contentType := string(c.Request().Header.ContentType())
			body := c.BodyRaw()

			if len(body) > 0 && (strings.Contains(contentType, "json") || strings.Contains(contentType, "text") || strings.Contains(contentType, "form")) {
				if len(body) > maxBodyLogSize {
					bodyLog = string(body[:maxBodyLogSize]) + "... (truncated)"
				} else {
					bodyLog = string(body)
				}
				bodyLog = sanitizeSensitiveData(bodyLog)
			} else if len(body) > 0 {
				bodyLog = fmt.Sprintf("(Binary or non-text body, size: %d bytes)", len(body))
			} else {
				bodyLog = "(Empty Body)"
			}

			logger.Debug("Incoming Request Details",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
				zap.Any("headers", headersMap),
				zap.String("body", bodyLog),
			)
		}

		err := c.Next()

		logger.Debug("Request Handled",
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(startTime)),
		)

		return err
	}
}

// sanitizeSensitiveData masks password and CSRF values in JSON and urlencoded bodies.
func sanitizeSensitiveData(body string) string {
	body = jsonPasswordPattern.ReplaceAllString(body, `$1***$2`)
	body = formPasswordPattern.ReplaceAllString(body, `$1$2***`)
	return formCSRFPattern.ReplaceAllString(body, `$1$2***`)
}

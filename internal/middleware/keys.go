package middleware

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Constants for middleware keys and values
const (
	// --- Logger Keys ---
	RequestFileLoggerKey  ContextKey = "requestFileLogger"
	RequestAuditLoggerKey ContextKey = "requestAuditLogger"
	RequestIDHeader                  = "X-Request-ID" // Header name

	// --- Identity Keys ---
	AuthorizationHeader            = "Authorization"
	BearerPrefix                   = "Bearer "
	SessionUserKey      ContextKey = "sessionUser" // username from the cookie session ("" when anonymous)
	APIUserKey          ContextKey = "apiUser"     // username from a validated bearer token

	// --- Resource Keys ---
	FeedbackKey ContextKey = "feedback" // *models.Feedback loaded by RequireFeedbackOwner

	// --- Request ID Key ---
	RequestIDKey ContextKey = "requestID" // Key to store the request ID string in Locals

	// CSRFContextKey is where the csrf middleware stores the token for templates.
	CSRFContextKey = "csrf"
)

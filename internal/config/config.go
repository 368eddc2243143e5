package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap" // Use logger for loading errors
)

// Supported values for DB_DRIVER.
const (
	DriverSQLite = "sqlite3"
	DriverOracle = "godror"
)

const defaultJWTSecret = "default-secret"

// Config holds all configuration for the application
type Config struct {
	AppEnv           string
	AppName          string
	Port             string
	Prefork          bool
	CORSAllowOrigins string
	CORSAllowMethods string
	CORSAllowHeaders string

	DBDriver                         string
	SQLiteDBPath                     string
	OracleConnString                 string
	OracleMaxPoolOpenConns           int // Max open connections
	OracleMaxPoolIdleConns           int // Max idle connections
	OracleMaxPoolConnLifetimeMinutes int // Max lifetime in minutes
	OracleMaxPoolConnIdleTimeMinutes int // Max idle time in minutes

	SessionExpirationMinutes int
	SessionCookieSecure      bool
	CSRFEnabled              bool
	BcryptCost               int
	JWTSecret                string
	JWTExpirationMinutes     int

	LogFilePath       string
	LogLevel          string
	LogRotateInterval int // Hour
	LogMaxSize        int // MB
	LogMaxBackups     int
	LogMaxAge         int // Days
	LogCompress       bool
	AuditLogEnabled   bool
	AuditLogLevel     string
	AuditDBPath       string
}

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "dpanic": true, "panic": true, "fatal": true}

// LoadConfig reads configuration from environment variables or .env file
func LoadConfig(logger *zap.Logger) (*Config, error) { // logger can be nil here
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "local"
	}

	envFileName := fmt.Sprintf(".env.%s", appEnv)
	if _, err := os.Stat(envFileName); err == nil {
		if err := godotenv.Load(envFileName); err != nil {
			if logger != nil {
				logger.Warn("Error loading .env file, continuing with environment variables", zap.String("file", envFileName), zap.Error(err))
			}
		} else if logger != nil {
			logger.Info("Loaded configuration", zap.String("file", envFileName))
		}
	} else if logger != nil {
		logger.Warn("No specific .env file found for environment, relying on environment variables or defaults", zap.String("environment", appEnv))
	}

	cfg := &Config{
		AppEnv:  getEnv("APP_ENV", "local"),
		AppName: getEnv("APP_NAME", "Feedback"),
		Port:    getEnv("PORT", "3000"),
		Prefork: getEnvAsBool("PREFORK", false),

		DBDriver:                         strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		SQLiteDBPath:                     getEnv("SQLITE_DB_PATH", "./data/feedback.db"),
		OracleConnString:                 getEnv("ORACLE_CONN_STRING", ""),
		OracleMaxPoolOpenConns:           getEnvAsInt("ORACLE_MAX_POOL_OPEN_CONNS", 20),
		OracleMaxPoolIdleConns:           getEnvAsInt("ORACLE_MAX_POOL_IDLE_CONNS", 5),
		OracleMaxPoolConnLifetimeMinutes: getEnvAsInt("ORACLE_MAX_POOL_CONN_LIFETIME_MINUTES", 60),
		OracleMaxPoolConnIdleTimeMinutes: getEnvAsInt("ORACLE_MAX_POOL_CONN_IDLE_TIME_MINUTES", 10),

		SessionExpirationMinutes: getEnvAsInt("SESSION_EXPIRATION_MINUTES", 24*60),
		SessionCookieSecure:      getEnvAsBool("SESSION_COOKIE_SECURE", false),
		CSRFEnabled:              getEnvAsBool("CSRF_ENABLED", true),
		BcryptCost:               getEnvAsInt("BCRYPT_COST", 12),
		JWTSecret:                getEnv("JWT_SECRET", defaultJWTSecret),
		JWTExpirationMinutes:     getEnvAsInt("JWT_EXPIRATION_MINUTES", 60),

		LogFilePath:       getEnv("LOG_FILE_PATH", "./logs/app.log"),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogRotateInterval: getEnvAsInt("LOG_ROTATE_INTERVAL", 24),
		LogMaxSize:        getEnvAsInt("LOG_MAX_SIZE", 100),
		LogMaxBackups:     getEnvAsInt("LOG_MAX_BACKUPS", 5),
		LogMaxAge:         getEnvAsInt("LOG_MAX_AGE", 30),
		LogCompress:       getEnvAsBool("LOG_COMPRESS", false),
		AuditLogEnabled:   getEnvAsBool("AUDIT_LOG_ENABLED", true),
		AuditLogLevel:     strings.ToLower(getEnv("AUDIT_LOG_LEVEL", "info")),
		AuditDBPath:       getEnv("AUDIT_DB_PATH", "./logs/audit.db"),

		// Default AllowOrigins to "*" for local, empty for others (forcing explicit setting)
		CORSAllowOrigins: getEnv("CORS_ALLOW_ORIGINS", func() string {
			if appEnv == "local" || appEnv == "development" {
				return "*"
			}
			return ""
		}()),
		CORSAllowMethods: getEnv("CORS_ALLOW_METHODS", "GET,POST,HEAD"),
		CORSAllowHeaders: getEnv("CORS_ALLOW_HEADERS", "Origin,Content-Type,Accept,Authorization"),
	}

	if !validLevels[cfg.LogLevel] {
		if logger != nil {
			logger.Warn("Invalid LOG_LEVEL specified, defaulting to 'info'", zap.String("invalidLevel", cfg.LogLevel))
		}
		cfg.LogLevel = "info"
	}
	if !validLevels[cfg.AuditLogLevel] {
		if logger != nil {
			logger.Warn("Invalid AUDIT_LOG_LEVEL specified, defaulting to 'info'", zap.String("invalidLevel", cfg.AuditLogLevel))
		}
		cfg.AuditLogLevel = "info"
	}

	if err := cfg.Validate(); err != nil {
		if logger != nil {
			logger.Error("Invalid configuration", zap.Error(err))
		}
		return nil, err
	}
	if cfg.JWTSecret == defaultJWTSecret && logger != nil {
		logger.Warn("JWT_SECRET is using the default value. Please set a strong secret in production.")
	}

	return cfg, nil
}

// Validate checks the combinations of settings that cannot work together.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLITE_DB_PATH is required when DB_DRIVER=%s", DriverSQLite)
		}
	case DriverOracle:
		if c.OracleConnString == "" {
			return fmt.Errorf("ORACLE_CONN_STRING is required when DB_DRIVER=%s", DriverOracle)
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (expected %s or %s)", c.DBDriver, DriverSQLite, DriverOracle)
	}
	if c.SessionExpirationMinutes <= 0 {
		return fmt.Errorf("SESSION_EXPIRATION_MINUTES must be positive, got %d", c.SessionExpirationMinutes)
	}
	if c.JWTExpirationMinutes <= 0 {
		return fmt.Errorf("JWT_EXPIRATION_MINUTES must be positive, got %d", c.JWTExpirationMinutes)
	}
	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret || c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET must be set explicitly in production environments")
		}
		if c.CORSAllowOrigins == "*" || c.CORSAllowOrigins == "" {
			return fmt.Errorf("CORS_ALLOW_ORIGINS must be set explicitly in production environments")
		}
	}
	return nil
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// UsesDefaultJWTSecret reports whether JWT_SECRET was left unset.
func (c *Config) UsesDefaultJWTSecret() bool {
	return c.JWTSecret == defaultJWTSecret
}

// Helper function to get env var or default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// Helper function to get env var as int or default
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

// Helper function to get env var as bool or default
func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

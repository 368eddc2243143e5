package utils

import (
	"fmt"

	"feedback-webapp/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TraceConfigDetails(logger *zap.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		fmt.Println("[WARN] logger or config is nil in TraceConfigDetails")
		return
	}
	maskedJWTSecret := "*** MASKED ***"
	if cfg.UsesDefaultJWTSecret() {
		maskedJWTSecret = "default-secret (!!! WARNING: Using default JWT secret !!!)"
	} else if len(cfg.JWTSecret) < 8 && len(cfg.JWTSecret) > 0 {
		maskedJWTSecret = fmt.Sprintf("*** MASKED (short: %d chars) ***", len(cfg.JWTSecret))
	} else if cfg.JWTSecret == "" {
		maskedJWTSecret = "--- EMPTY (!!! WARNING: JWT Secret is empty !!!) ---"
	}
	fields := []zapcore.Field{
		zap.String("AppEnv", cfg.AppEnv),
		zap.String("AppName", cfg.AppName),
		zap.String("Port", cfg.Port),
		zap.Bool("Prefork", cfg.Prefork),
		zap.String("DBDriver", cfg.DBDriver),
		zap.String("SQLiteDBPath", cfg.SQLiteDBPath),
		zap.String("OracleConnString", MaskOracleConnString(cfg.OracleConnString)),
		zap.Int("OracleMaxPoolOpenConns", cfg.OracleMaxPoolOpenConns),
		zap.Int("OracleMaxPoolIdleConns", cfg.OracleMaxPoolIdleConns),
		zap.Int("SessionExpirationMinutes", cfg.SessionExpirationMinutes),
		zap.Bool("SessionCookieSecure", cfg.SessionCookieSecure),
		zap.Bool("CSRFEnabled", cfg.CSRFEnabled),
		zap.Int("BcryptCost", cfg.BcryptCost),
		zap.String("JWTSecret", maskedJWTSecret),
		zap.Int("JWTExpirationMinutes", cfg.JWTExpirationMinutes),
		zap.String("LogFilePath", cfg.LogFilePath),
		zap.String("LogLevel", cfg.LogLevel),
		zap.Int("LogRotateIntervalHours", cfg.LogRotateInterval),
		zap.Int("LogMaxSizeMB", cfg.LogMaxSize),
		zap.Int("LogMaxBackups", cfg.LogMaxBackups),
		zap.Int("LogMaxAgeDays", cfg.LogMaxAge),
		zap.Bool("LogCompress", cfg.LogCompress),
		zap.Bool("AuditLog_Enabled", cfg.AuditLogEnabled),
		zap.String("AuditLog_Level", cfg.AuditLogLevel),
		zap.String("AuditLog_DBPath", cfg.AuditDBPath),
		zap.String("CORS_AllowOrigins", cfg.CORSAllowOrigins),
		zap.String("CORS_AllowMethods", cfg.CORSAllowMethods),
		zap.String("CORS_AllowHeaders", cfg.CORSAllowHeaders),
	}
	logger.Debug("Loaded application configuration details", fields...)
}

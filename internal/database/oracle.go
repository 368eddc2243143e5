package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"feedback-webapp/internal/config"
	_ "github.com/godror/godror" // Oracle Driver
	"go.uber.org/zap"
)

// OracleAppSchema mirrors SQLiteAppSchema for Oracle 12c+ (identity columns).
var OracleAppSchema = []string{
	`CREATE TABLE users (
	username   VARCHAR2(20 CHAR) PRIMARY KEY,
	password   VARCHAR2(100) NOT NULL,
	email      VARCHAR2(50 CHAR) NOT NULL,
	first_name VARCHAR2(50 CHAR) NOT NULL,
	last_name  VARCHAR2(50 CHAR) NOT NULL,
	created_at TIMESTAMP DEFAULT SYSTIMESTAMP NOT NULL
	)`,
	`CREATE TABLE feedback (
	id         NUMBER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	title      VARCHAR2(100 CHAR) NOT NULL,
	content    VARCHAR2(4000) NOT NULL,
	username   VARCHAR2(20 CHAR) NOT NULL REFERENCES users(username) ON DELETE CASCADE,
	created_at TIMESTAMP DEFAULT SYSTIMESTAMP NOT NULL
	)`,
	`CREATE INDEX idx_feedback_username ON feedback(username)`,
}

// InitOracle initializes the Oracle database connection pool.
// It returns the pool handle immediately and relies on database/sql
// for lazy connection establishment and reconnection.
func InitOracle(cfg *config.Config, logger *zap.Logger) (*sql.DB, error) {
	logger.Info("Initializing Oracle database connection pool...")

	db, err := sql.Open("godror", cfg.OracleConnString)
	if err != nil {
		logger.Error("Failed to open Oracle connection pool", zap.Error(err))
		return nil, fmt.Errorf("failed to configure oracle connection pool: %w", err)
	}

	db.SetMaxOpenConns(cfg.OracleMaxPoolOpenConns)
	db.SetMaxIdleConns(cfg.OracleMaxPoolIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.OracleMaxPoolConnLifetimeMinutes) * time.Minute)
	db.SetConnMaxIdleTime(time.Duration(cfg.OracleMaxPoolConnIdleTimeMinutes) * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = db.PingContext(ctx)
	cancel()
	if err != nil {
		// The pool stays usable; connections are established lazily.
		logger.Warn("Initial Oracle DB ping failed, pool created but connection may establish later", zap.Error(err))
		return db, nil
	}

	logger.Info("Oracle database pool initialized and initial ping successful.")
	return db, nil
}

// EnsureOracleSchema creates the application tables, skipping objects that already exist.
func EnsureOracleSchema(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	for _, stmt := range OracleAppSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			// ORA-00955: name is already used by an existing object
			if strings.Contains(err.Error(), "ORA-00955") {
				logger.Debug("Oracle schema object already exists", zap.String("statement", firstLine(stmt)))
				continue
			}
			logger.Error("Failed to apply Oracle schema", zap.String("statement", firstLine(stmt)), zap.Error(err))
			return fmt.Errorf("failed to apply oracle schema: %w", err)
		}
	}
	logger.Info("Oracle schema verified/created.")
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

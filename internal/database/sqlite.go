package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"feedback-webapp/internal/config"

	_ "github.com/mattn/go-sqlite3" // SQLite Driver
	"go.uber.org/zap"
)

// SQLiteAppSchema creates the users and feedback tables. Feedback rows are
// removed with their owner through the ON DELETE CASCADE foreign key.
var SQLiteAppSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
	username   TEXT PRIMARY KEY CHECK (length(username) BETWEEN 1 AND 20),
	password   TEXT NOT NULL,
	email      TEXT NOT NULL CHECK (length(email) <= 50),
	first_name TEXT NOT NULL CHECK (length(first_name) <= 50),
	last_name  TEXT NOT NULL CHECK (length(last_name) <= 50),
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS feedback (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	title      TEXT NOT NULL CHECK (length(title) <= 100),
	content    TEXT NOT NULL,
	username   TEXT NOT NULL REFERENCES users(username) ON DELETE CASCADE,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_username ON feedback(username);`,
}

// SQLiteLogSchema creates the audit log table.
var SQLiteLogSchema = []string{
	`CREATE TABLE IF NOT EXISTS tbl_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
	level TEXT NOT NULL,
	message TEXT NOT NULL,
	fields TEXT -- Store additional zap fields as JSON string
	);`,
}

// InitSQLite opens the application database at SQLITE_DB_PATH and ensures the schema exists.
func InitSQLite(cfg *config.Config, logger *zap.Logger) (*sql.DB, error) {
	return OpenSQLite(cfg.SQLiteDBPath, logger, SQLiteAppSchema...)
}

// InitAuditSQLite opens the audit log database at AUDIT_DB_PATH.
func InitAuditSQLite(cfg *config.Config, logger *zap.Logger) (*sql.DB, error) {
	return OpenSQLite(cfg.AuditDBPath, logger, SQLiteLogSchema...)
}

// OpenSQLite opens (creating if needed) a SQLite database file with foreign keys
// enforced, then executes each schema statement.
func OpenSQLite(path string, logger *zap.Logger, schema ...string) (*sql.DB, error) {
	logger.Info("Initializing SQLite database...", zap.String("requested_path", path))

	dbDir := filepath.Dir(path)
	if dbDir != "." && dbDir != "/" {
		if _, err := os.Stat(dbDir); os.IsNotExist(err) {
			logger.Info("SQLite database directory does not exist, creating...", zap.String("path", dbDir))
			if err := os.MkdirAll(dbDir, 0755); err != nil {
				logger.Error("Failed to create SQLite database directory", zap.String("path", dbDir), zap.Error(err))
				return nil, fmt.Errorf("failed to create sqlite db directory %s: %w", dbDir, err)
			}
		} else if err != nil {
			logger.Error("Failed to check status of SQLite database directory", zap.String("path", dbDir), zap.Error(err))
			return nil, fmt.Errorf("failed to check status of sqlite db directory %s: %w", dbDir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		logger.Error("Failed to open SQLite database", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("failed to open sqlite database at %s: %w", path, err)
	}

	// A single connection serializes writers; repositories never nest queries inside a transaction.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		logger.Error("Failed to ping SQLite database after open", zap.Error(err))
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			logger.Error("Failed to apply SQLite schema", zap.Error(err))
			return nil, fmt.Errorf("failed to apply sqlite schema: %w", err)
		}
	}
	logger.Debug("SQLite schema verified/created.", zap.Int("statements", len(schema)))

	logger.Info("SQLite database initialized successfully", zap.String("path", path))
	return db, nil
}

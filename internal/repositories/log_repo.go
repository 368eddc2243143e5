package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"feedback-webapp/internal/models"
)

// ErrLogStoreUnavailable is returned when the audit database handle is not set.
var ErrLogStoreUnavailable = errors.New("audit log store unavailable")

// LogRepository defines the interface for audit log data operations
type LogRepository interface {
	InsertSQLiteLog(ctx context.Context, entry models.LogEntry) error
}

type logRepositoryImpl struct {
	sqliteDB *sql.DB
}

// NewLogRepository creates a new LogRepository
func NewLogRepository(sqliteDB *sql.DB) LogRepository {
	return &logRepositoryImpl{sqliteDB: sqliteDB}
}

func (r *logRepositoryImpl) InsertSQLiteLog(ctx context.Context, entry models.LogEntry) error {
	if r.sqliteDB == nil {
		return ErrLogStoreUnavailable
	}
	query := `INSERT INTO tbl_log (timestamp, level, message, fields) VALUES (?, ?, ?, ?)`
	fieldsJSON := entry.Fields
	if fieldsJSON == "" {
		fieldsJSON = "{}"
	}
	_, err := r.sqliteDB.ExecContext(ctx, query, entry.Timestamp.UTC().Format(time.RFC3339Nano), entry.Level, entry.Message, fieldsJSON)
	if err != nil {
		// Not logged here: the audit core itself is the caller.
		return fmt.Errorf("sqlite insert failed: %w", err)
	}
	return nil
}

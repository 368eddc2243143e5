package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"feedback-webapp/internal/config"
	"go.uber.org/zap"
)

// InitAppDB opens the store selected by DB_DRIVER and makes sure its schema exists.
func InitAppDB(cfg *config.Config, logger *zap.Logger) (*sql.DB, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		return InitSQLite(cfg, logger)
	case config.DriverOracle:
		db, err := InitOracle(cfg, logger)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := EnsureOracleSchema(ctx, db, logger); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
}

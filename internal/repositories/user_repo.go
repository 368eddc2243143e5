package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"feedback-webapp/internal/models"
	"go.uber.org/zap"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	// DeleteUser removes the user and every feedback row it owns in one transaction.
	// It returns the number of feedback rows removed.
	DeleteUser(ctx context.Context, username string) (int64, error)
}

// sqlUserRepository implements UserRepository over database/sql for any supported Dialect
type sqlUserRepository struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sql.DB, dialect Dialect, logger *zap.Logger) UserRepository {
	return &sqlUserRepository{db: db, dialect: dialect, logger: logger}
}

// FindByUsername retrieves a user by username. A missing user yields (nil, nil).
func (r *sqlUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := r.dialect.Rebind(`SELECT username, password, email, first_name, last_name, created_at FROM users WHERE username = ?`)
	user := &models.User{}
	var createdAt sql.NullTime

	r.logger.Debug("Executing FindByUsername query", zap.String("username", username))

	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&user.Username,
		&user.PasswordHash,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug("User not found by username", zap.String("username", username))
			return nil, nil // Return nil, nil to indicate not found cleanly
		}
		r.logger.Error("Error querying user by username", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("error finding user by username %s: %w", username, err)
	}
	if createdAt.Valid {
		user.CreatedAt = createdAt.Time
	}
	return user, nil
}

// CreateUser inserts a new user. A username collision yields ErrDuplicateKey.
func (r *sqlUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := r.dialect.Rebind(`INSERT INTO users (username, password, email, first_name, last_name, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	r.logger.Debug("Executing CreateUser query", zap.String("query", "INSERT INTO users..."), zap.String("username", user.Username))

	_, err := r.db.ExecContext(ctx, query,
		user.Username,
		user.PasswordHash,
		user.Email,
		user.FirstName,
		user.LastName,
		user.CreatedAt,
	)
	if err != nil {
		err = r.dialect.translate(err)
		if errors.Is(err, ErrDuplicateKey) {
			r.logger.Warn("Username already taken at insert", zap.String("username", user.Username))
			return err
		}
		r.logger.Error("Error creating user", zap.String("username", user.Username), zap.Error(err))
		return fmt.Errorf("error creating user %s: %w", user.Username, err)
	}

	r.logger.Info("User created successfully", zap.String("username", user.Username))
	return nil
}

// DeleteUser deletes the owned feedback explicitly before the user row so the
// cascade holds even where the engine does not enforce foreign keys.
func (r *sqlUserRepository) DeleteUser(ctx context.Context, username string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin delete-user transaction", zap.String("username", username), zap.Error(err))
		return 0, fmt.Errorf("begin tx failed: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM feedback WHERE username = ?`), username)
	if err != nil {
		r.logger.Error("Failed to delete feedback for user", zap.String("username", username), zap.Error(err))
		return 0, fmt.Errorf("error deleting feedback of %s: %w", username, err)
	}
	feedbackRemoved, _ := res.RowsAffected()

	res, err = tx.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM users WHERE username = ?`), username)
	if err != nil {
		r.logger.Error("Failed to delete user", zap.String("username", username), zap.Error(err))
		return 0, fmt.Errorf("error deleting user %s: %w", username, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit delete-user transaction", zap.String("username", username), zap.Error(err))
		return 0, fmt.Errorf("commit failed: %w", err)
	}

	r.logger.Info("User deleted", zap.String("username", username), zap.Int64("feedback_removed", feedbackRemoved))
	return feedbackRemoved, nil
}

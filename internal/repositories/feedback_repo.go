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

// FeedbackRepository defines the interface for feedback data operations
type FeedbackRepository interface {
	CreateFeedback(ctx context.Context, fb *models.Feedback) error
	FindByID(ctx context.Context, id int64) (*models.Feedback, error)
	ListByUsername(ctx context.Context, username string) ([]models.Feedback, error)
	// UpdateFeedback rewrites title and content of the row matching both id and owner.
	UpdateFeedback(ctx context.Context, fb *models.Feedback) error
	DeleteFeedback(ctx context.Context, id int64, owner string) error
}

type sqlFeedbackRepository struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger
}

// NewFeedbackRepository creates a new FeedbackRepository
func NewFeedbackRepository(db *sql.DB, dialect Dialect, logger *zap.Logger) FeedbackRepository {
	return &sqlFeedbackRepository{db: db, dialect: dialect, logger: logger}
}

// CreateFeedback inserts fb and fills in its generated ID. An unknown owner yields ErrForeignKey.
func (r *sqlFeedbackRepository) CreateFeedback(ctx context.Context, fb *models.Feedback) error {
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO feedback (title, content, username, created_at) VALUES (?, ?, ?, ?)`

	var err error
	if r.dialect.returningInto {
		var newID int64
		_, err = r.db.ExecContext(ctx, r.dialect.Rebind(query+` RETURNING id INTO ?`),
			fb.Title, fb.Content, fb.Username, fb.CreatedAt,
			sql.Out{Dest: &newID}, // Oracle specific way to get returned value
		)
		if err == nil {
			fb.ID = newID
		}
	} else {
		var res sql.Result
		res, err = r.db.ExecContext(ctx, r.dialect.Rebind(query), fb.Title, fb.Content, fb.Username, fb.CreatedAt)
		if err == nil {
			fb.ID, err = res.LastInsertId()
		}
	}
	if err != nil {
		err = r.dialect.translate(err)
		r.logger.Error("Error creating feedback", zap.String("username", fb.Username), zap.Error(err))
		if errors.Is(err, ErrForeignKey) {
			return err
		}
		return fmt.Errorf("error creating feedback for %s: %w", fb.Username, err)
	}

	r.logger.Info("Feedback created", zap.Int64("feedback_id", fb.ID), zap.String("username", fb.Username))
	return nil
}

// FindByID retrieves one feedback row. A missing row yields (nil, nil).
func (r *sqlFeedbackRepository) FindByID(ctx context.Context, id int64) (*models.Feedback, error) {
	query := r.dialect.Rebind(`SELECT id, title, content, username, created_at FROM feedback WHERE id = ?`)
	fb := &models.Feedback{}
	var createdAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(&fb.ID, &fb.Title, &fb.Content, &fb.Username, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug("Feedback not found", zap.Int64("feedback_id", id))
			return nil, nil
		}
		r.logger.Error("Error querying feedback by id", zap.Int64("feedback_id", id), zap.Error(err))
		return nil, fmt.Errorf("error finding feedback %d: %w", id, err)
	}
	if createdAt.Valid {
		fb.CreatedAt = createdAt.Time
	}
	return fb, nil
}

// ListByUsername returns the user's feedback, newest first.
func (r *sqlFeedbackRepository) ListByUsername(ctx context.Context, username string) ([]models.Feedback, error) {
	query := r.dialect.Rebind(`SELECT id, title, content, username, created_at FROM feedback WHERE username = ? ORDER BY id DESC`)
	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		r.logger.Error("Failed to list feedback", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("error listing feedback of %s: %w", username, err)
	}
	defer rows.Close()

	items := []models.Feedback{}
	for rows.Next() {
		var fb models.Feedback
		var createdAt sql.NullTime
		if err := rows.Scan(&fb.ID, &fb.Title, &fb.Content, &fb.Username, &createdAt); err != nil {
			r.logger.Error("Failed to scan feedback row", zap.Error(err))
			return nil, fmt.Errorf("error scanning feedback row: %w", err)
		}
		if createdAt.Valid {
			fb.CreatedAt = createdAt.Time
		}
		items = append(items, fb)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error during iteration over feedback rows", zap.Error(err))
		return nil, fmt.Errorf("feedback row iteration error: %w", err)
	}
	return items, nil
}

// UpdateFeedback never touches id or username; a row owned by someone else is ErrNotFound.
func (r *sqlFeedbackRepository) UpdateFeedback(ctx context.Context, fb *models.Feedback) error {
	query := r.dialect.Rebind(`UPDATE feedback SET title = ?, content = ? WHERE id = ? AND username = ?`)
	res, err := r.db.ExecContext(ctx, query, fb.Title, fb.Content, fb.ID, fb.Username)
	if err != nil {
		r.logger.Error("Error updating feedback", zap.Int64("feedback_id", fb.ID), zap.Error(err))
		return fmt.Errorf("error updating feedback %d: %w", fb.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	r.logger.Info("Feedback updated", zap.Int64("feedback_id", fb.ID), zap.String("username", fb.Username))
	return nil
}

// DeleteFeedback removes the row matching both id and owner.
func (r *sqlFeedbackRepository) DeleteFeedback(ctx context.Context, id int64, owner string) error {
	query := r.dialect.Rebind(`DELETE FROM feedback WHERE id = ? AND username = ?`)
	res, err := r.db.ExecContext(ctx, query, id, owner)
	if err != nil {
		r.logger.Error("Error deleting feedback", zap.Int64("feedback_id", id), zap.Error(err))
		return fmt.Errorf("error deleting feedback %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	r.logger.Info("Feedback deleted", zap.Int64("feedback_id", id), zap.String("username", owner))
	return nil
}

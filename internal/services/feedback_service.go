package services

import (
	"context"
	"errors"
	"fmt"

	"feedback-webapp/internal/models"
	"feedback-webapp/internal/repositories"
	"go.uber.org/zap"
)

// FeedbackService defines feedback CRUD. Callers pass the authorized owner;
// every mutation is pinned to that owner at the storage layer.
type FeedbackService interface {
	Add(ctx context.Context, owner, title, content string) (*models.Feedback, error)
	Get(ctx context.Context, id int64) (*models.Feedback, error)
	ListForUser(ctx context.Context, username string) ([]models.Feedback, error)
	Update(ctx context.Context, fb *models.Feedback, title, content string) error
	Delete(ctx context.Context, fb *models.Feedback) error
}

type feedbackServiceImpl struct {
	repo   repositories.FeedbackRepository
	logger *zap.Logger
}

// NewFeedbackService creates a new FeedbackService
func NewFeedbackService(repo repositories.FeedbackRepository, logger *zap.Logger) FeedbackService {
	return &feedbackServiceImpl{repo: repo, logger: logger}
}

func (s *feedbackServiceImpl) Add(ctx context.Context, owner, title, content string) (*models.Feedback, error) {
	fb := &models.Feedback{Title: title, Content: content, Username: owner}
	if err := s.repo.CreateFeedback(ctx, fb); err != nil {
		if errors.Is(err, repositories.ErrForeignKey) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("could not add feedback: %w", err)
	}
	return fb, nil
}

func (s *feedbackServiceImpl) Get(ctx context.Context, id int64) (*models.Feedback, error) {
	fb, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not retrieve feedback: %w", err)
	}
	if fb == nil {
		return nil, ErrFeedbackNotFound
	}
	return fb, nil
}

func (s *feedbackServiceImpl) ListForUser(ctx context.Context, username string) ([]models.Feedback, error) {
	items, err := s.repo.ListByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("could not list feedback: %w", err)
	}
	return items, nil
}

// Update changes title and content only; fb is modified in place on success.
func (s *feedbackServiceImpl) Update(ctx context.Context, fb *models.Feedback, title, content string) error {
	updated := *fb
	updated.Title = title
	updated.Content = content
	if err := s.repo.UpdateFeedback(ctx, &updated); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrFeedbackNotFound
		}
		return fmt.Errorf("could not update feedback: %w", err)
	}
	*fb = updated
	return nil
}

func (s *feedbackServiceImpl) Delete(ctx context.Context, fb *models.Feedback) error {
	if err := s.repo.DeleteFeedback(ctx, fb.ID, fb.Username); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrFeedbackNotFound
		}
		return fmt.Errorf("could not delete feedback: %w", err)
	}
	s.logger.Debug("Feedback removed", zap.Int64("feedback_id", fb.ID))
	return nil
}

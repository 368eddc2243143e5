package services

import (
	"context"
	"errors"
	"fmt"

	"feedback-webapp/internal/models"
	"feedback-webapp/internal/repositories"
	"go.uber.org/zap"
)

// UserService defines the operations on an existing account
type UserService interface {
	GetUser(ctx context.Context, username string) (*models.User, error)
	// DeleteUser removes the account and all of its feedback.
	DeleteUser(ctx context.Context, username string) error
}

type userServiceImpl struct {
	userRepo repositories.UserRepository
	logger   *zap.Logger
}

// NewUserService creates a new UserService
func NewUserService(userRepo repositories.UserRepository, logger *zap.Logger) UserService {
	return &userServiceImpl{userRepo: userRepo, logger: logger}
}

func (s *userServiceImpl) GetUser(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("could not retrieve user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *userServiceImpl) DeleteUser(ctx context.Context, username string) error {
	removed, err := s.userRepo.DeleteUser(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("could not delete user: %w", err)
	}
	s.logger.Info("User deleted with cascade", zap.String("username", username), zap.Int64("feedback_removed", removed))
	return nil
}

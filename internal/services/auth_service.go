package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"feedback-webapp/internal/models"
	"feedback-webapp/internal/repositories"
	"feedback-webapp/internal/utils"
	"go.uber.org/zap"
)

// RegisterInput carries an already validated registration form.
type RegisterInput struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
}

// AuthService defines the interface for authentication related operations
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	// Authenticate returns the user when the password matches, ErrInvalidCredentials otherwise.
	// Unknown usernames and wrong passwords are indistinguishable to the caller.
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	IssueToken(ctx context.Context, username, password string) (string, error)
}

type authServiceImpl struct {
	userRepo   repositories.UserRepository
	logger     *zap.Logger
	bcryptCost int
	jwtSecret  string
	jwtExpires time.Duration
	// compared against when the username is unknown so both paths cost one bcrypt check
	dummyHash string
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repositories.UserRepository, logger *zap.Logger, bcryptCost int, jwtSecret string, jwtExpires time.Duration) AuthService {
	dummy, err := utils.HashPassword("not-a-real-password", bcryptCost)
	if err != nil {
		logger.Warn("Failed to precompute dummy password hash", zap.Error(err))
	}
	return &authServiceImpl{
		userRepo:   userRepo,
		logger:     logger,
		bcryptCost: bcryptCost,
		jwtSecret:  jwtSecret,
		jwtExpires: jwtExpires,
		dummyHash:  dummy,
	}
}

// Register stores a new user with a one-way hash of in.Password.
func (s *authServiceImpl) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	s.logger.Info("Attempting to register user", zap.String("username", in.Username))

	existingUser, err := s.userRepo.FindByUsername(ctx, in.Username)
	if err != nil {
		s.logger.Error("Error checking for existing username", zap.String("username", in.Username), zap.Error(err))
		return nil, ErrRegistrationFailed
	}
	if existingUser != nil {
		s.logger.Warn("Registration attempt failed: username already exists", zap.String("username", in.Username))
		return nil, ErrUsernameExists
	}

	hashedPassword, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		s.logger.Error("Failed to hash password during registration", zap.String("username", in.Username), zap.Error(err))
		return nil, ErrRegistrationFailed
	}

	newUser := &models.User{
		Username:     in.Username,
		PasswordHash: hashedPassword,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
	}

	if err := s.userRepo.CreateUser(ctx, newUser); err != nil {
		// Lost a race with a concurrent registration of the same name.
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrUsernameExists
		}
		s.logger.Error("Failed to create user in database", zap.String("username", in.Username), zap.Error(err))
		return nil, ErrRegistrationFailed
	}

	s.logger.Info("User registered successfully", zap.String("username", in.Username))
	return newUser, nil
}

func (s *authServiceImpl) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		s.logger.Error("Error finding user during login", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("authenticate %s: %w", username, err)
	}
	if user == nil {
		utils.CheckPasswordHash(password, s.dummyHash)
		s.logger.Debug("Login attempt failed: user not found", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}

	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		s.logger.Debug("Login attempt failed: invalid password", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// IssueToken authenticates and signs a bearer token for the JSON API.
func (s *authServiceImpl) IssueToken(ctx context.Context, username, password string) (string, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return "", err
	}

	token, err := utils.GenerateToken(user.Username, s.jwtSecret, s.jwtExpires)
	if err != nil {
		s.logger.Error("Failed to generate JWT token", zap.String("username", username), zap.Error(err))
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

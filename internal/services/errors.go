package services

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameExists     = errors.New("username already exists")
	ErrRegistrationFailed = errors.New("failed to register user")
	ErrFeedbackNotFound   = errors.New("feedback not found")
	ErrUnauthorized       = errors.New("unauthorized")
)

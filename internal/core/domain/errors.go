package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("Invalid login credentials")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUserExists         = errors.New("User already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrProfileExists      = errors.New("profile already exists")
	ErrRoleRequired       = errors.New("Please select a role")
	ErrInvalidRole        = errors.New("Please select a valid role")
	ErrForbidden          = errors.New("access forbidden")
)

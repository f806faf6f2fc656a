package handler

import "github.com/hockeyunion/membership/internal/core/domain"

type signUpRequest struct {
	Email    string                  `json:"email"    validate:"required,email"`
	Password string                  `json:"password" validate:"required,min=6"`
	Data     domain.IdentityMetadata `json:"data"`
}

type passwordGrantRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshGrantRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type signUpResponse struct {
	User    *domain.Identity `json:"user"`
	Session *domain.Session  `json:"session"`
}

const (
	grantPassword     = "password"
	grantRefreshToken = "refresh_token"
)

// ErrorResponse is the canonical error envelope for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

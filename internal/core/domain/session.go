package domain

import "time"

// Session is the backend-issued proof of authentication for an Identity.
type Session struct {
	ID           string    `json:"id" yaml:"id"`
	AccessToken  string    `json:"access_token" yaml:"access_token"`
	RefreshToken string    `json:"refresh_token" yaml:"refresh_token"`
	TokenType    string    `json:"token_type" yaml:"token_type"`
	ExpiresAt    time.Time `json:"expires_at" yaml:"expires_at"`
	User         Identity  `json:"user" yaml:"user"`
}

// Expired reports whether the access token is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}

// Subject returns the identity id the session belongs to.
func (s *Session) Subject() string {
	if s == nil {
		return ""
	}
	return s.User.ID
}

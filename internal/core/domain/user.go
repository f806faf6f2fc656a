package domain

import (
	"strings"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidRole reports whether role belongs to the recognised role set.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// IdentityMetadata is attached to an identity at sign-up so the profile
// provisioning trigger can see the requested name and role.
type IdentityMetadata struct {
	Name string `json:"name,omitempty" bson:"name,omitempty" yaml:"name,omitempty"`
	Role string `json:"role,omitempty" bson:"role,omitempty" yaml:"role,omitempty"`
}

// Identity is the backend's authentication record.
type Identity struct {
	ID           string           `json:"id" yaml:"id"`
	Email        string           `json:"email" yaml:"email"`
	PasswordHash string           `json:"-" yaml:"-"`
	Metadata     IdentityMetadata `json:"user_metadata" yaml:"user_metadata"`
	CreatedAt    time.Time        `json:"created_at" yaml:"created_at"`
}

// Profile is the application-level record keyed one-to-one with an Identity.
type Profile struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url"`
	Role      string    `json:"role"`
	TeamID    *string   `json:"team_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileUpdate carries a partial profile patch. Nil fields are left untouched.
type ProfileUpdate struct {
	FullName  *string `json:"full_name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Role      *string `json:"role,omitempty"`
	TeamID    *string `json:"team_id,omitempty"`
}

// Empty reports whether the patch carries no fields.
func (u ProfileUpdate) Empty() bool {
	return u.FullName == nil && u.AvatarURL == nil && u.Role == nil && u.TeamID == nil
}

// AuthenticatedUser is the merged Identity + Profile view handed to the app.
type AuthenticatedUser struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Avatar string  `json:"avatar"`
	Role   string  `json:"role"`
	Team   *string `json:"team,omitempty"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *AuthenticatedUser) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// EmailLocalPart returns the part of an address before the '@'.
func EmailLocalPart(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

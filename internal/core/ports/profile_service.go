package ports

import (
	"context"

	"github.com/hockeyunion/membership/internal/core/domain"
)

// Caller identifies who is acting on a profile. Subject comes from the
// verified access token.
type Caller struct {
	Subject string
	Email   string
}

// ProfilePage is one page of a profile listing.
type ProfilePage struct {
	Items []*domain.Profile
	Total int64
	Page  int
	Limit int
}

// ProfileService defines use-case operations on profiles behind /rest/v1.
type ProfileService interface {
	Get(ctx context.Context, caller Caller, id string) (*domain.Profile, error)
	Create(ctx context.Context, caller Caller, profile *domain.Profile) (*domain.Profile, error)
	Update(ctx context.Context, caller Caller, id string, fields domain.ProfileUpdate) (*domain.Profile, error)
	// List is only reachable through admin-gated routes.
	List(ctx context.Context, filter ListProfilesFilter) (*ProfilePage, error)
	// RoleOf returns the role stored on subject's profile, or "" without one.
	RoleOf(ctx context.Context, subject string) (string, error)
}

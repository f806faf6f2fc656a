package ports

import (
	"context"

	"github.com/hockeyunion/membership/internal/core/domain"
)

// ListProfilesFilter carries the query parameters for listing profiles.
type ListProfilesFilter struct {
	TeamID string // optional: exact team match
	Role   string // optional: exact role match
	Page   int    // 1-based
	Limit  int    // max rows per page (capped at 100 by service)
}

// ProfileRepository defines persistence operations for profiles.
type ProfileRepository interface {
	// FindByID returns domain.ErrProfileNotFound when no profile exists.
	FindByID(ctx context.Context, id string) (*domain.Profile, error)
	// Create returns domain.ErrProfileExists when id is taken.
	Create(ctx context.Context, profile *domain.Profile) error
	// Update applies a partial patch and returns the stored result.
	Update(ctx context.Context, id string, fields domain.ProfileUpdate) (*domain.Profile, error)
	// List returns a page of profiles matching filter and the total count.
	List(ctx context.Context, filter ListProfilesFilter) ([]*domain.Profile, int64, error)
}

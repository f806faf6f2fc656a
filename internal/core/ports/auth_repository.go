package ports

import (
	"context"

	"github.com/hockeyunion/membership/internal/core/domain"
)

// IdentityRepository defines the interface for identity persistence.
type IdentityRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
	FindByID(ctx context.Context, id string) (*domain.Identity, error)
	Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error)
}

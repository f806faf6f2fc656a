package ports

import (
	"context"

	"github.com/hockeyunion/membership/internal/core/domain"
)

// AuthService is the backend-side credential service behind /auth/v1.
type AuthService interface {
	SignUp(ctx context.Context, email, password string, meta domain.IdentityMetadata) (*domain.Identity, *domain.Session, error)
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.Session, error)
	GetSession(ctx context.Context, accessToken string) (*domain.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

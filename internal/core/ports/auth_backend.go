package ports

import (
	"context"

	"github.com/hockeyunion/membership/internal/core/domain"
)

// SessionListener receives the new session, or nil once the session is gone.
type SessionListener func(session *domain.Session)

// AuthBackend is the credential side of the remote backend as seen by the
// session manager.
type AuthBackend interface {
	// GetCurrentSession returns the restorable session, or nil when there is none.
	GetCurrentSession(ctx context.Context) (*domain.Session, error)
	// OnSessionChange registers listener for session changes. The returned
	// function removes it.
	OnSessionChange(listener SessionListener) (unsubscribe func())
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	SignUp(ctx context.Context, email, password string, meta domain.IdentityMetadata) (*domain.Identity, *domain.Session, error)
	SignOut(ctx context.Context) error
}

// ProfileStore is the profile table of the remote backend.
type ProfileStore interface {
	// GetProfile returns domain.ErrProfileNotFound when no row exists.
	GetProfile(ctx context.Context, id string) (*domain.Profile, error)
	CreateProfile(ctx context.Context, profile *domain.Profile) error
	UpdateProfile(ctx context.Context, id string, fields domain.ProfileUpdate) error
}

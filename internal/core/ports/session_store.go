package ports

import (
	"context"
	"time"
)

// StoredSession is what the backend keeps for an issued session.
type StoredSession struct {
	SessionID    string
	Subject      string
	RefreshToken string
}

// SessionStore tracks issued sessions so they can be revoked before expiry.
type SessionStore interface {
	Save(ctx context.Context, s StoredSession, ttl, refreshTTL time.Duration) error
	// Exists reports whether sessionID is still live.
	Exists(ctx context.Context, sessionID string) (bool, error)
	// Consume atomically retires refreshToken together with its session and
	// returns what it pointed at. Unknown or already used tokens yield
	// domain.ErrSessionNotFound, so each token can be exchanged once.
	Consume(ctx context.Context, refreshToken string) (*StoredSession, error)
	Revoke(ctx context.Context, sessionID string) error
}

package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hockeyunion/membership/internal/core/domain"
	"github.com/hockeyunion/membership/internal/core/ports"
)

// SessionStore keeps issued sessions in Redis.
// Key format:
//
//	auth:session:<sid>          -> subject        (TTL = access token TTL)
//	auth:refresh:<token>        -> {sid, subject} (TTL = refresh TTL)
//	auth:session_refresh:<sid>  -> token          (TTL = refresh TTL)
type SessionStore struct {
	client *redis.Client
}

// NewSessionStore creates a SessionStore wrapping the given Redis client.
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) Save(ctx context.Context, st ports.StoredSession, ttl, refreshTTL time.Duration) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(st.SessionID), st.Subject, ttl)
		pipe.HSet(ctx, refreshKey(st.RefreshToken), "sid", st.SessionID, "subject", st.Subject)
		pipe.Expire(ctx, refreshKey(st.RefreshToken), refreshTTL)
		pipe.Set(ctx, reverseKey(st.SessionID), st.RefreshToken, refreshTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Exists reports whether the access token's session is still live.
func (s *SessionStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("session lookup: %w", err)
	}
	return n > 0, nil
}

// Consume reads and deletes the refresh hash in one MULTI block, so of two
// concurrent exchanges of the same token only one sees its contents.
func (s *SessionStore) Consume(ctx context.Context, refreshToken string) (*ports.StoredSession, error) {
	var get *redis.MapStringStringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.HGetAll(ctx, refreshKey(refreshToken))
		pipe.Del(ctx, refreshKey(refreshToken))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}

	vals := get.Val()
	if vals["sid"] == "" || vals["subject"] == "" {
		return nil, domain.ErrSessionNotFound
	}
	if err := s.client.Del(ctx, sessionKey(vals["sid"]), reverseKey(vals["sid"])).Err(); err != nil {
		return nil, fmt.Errorf("retire refreshed session: %w", err)
	}
	return &ports.StoredSession{
		SessionID:    vals["sid"],
		Subject:      vals["subject"],
		RefreshToken: refreshToken,
	}, nil
}

// Revoke removes the session and its refresh token. Unknown sessions are
// ignored.
func (s *SessionStore) Revoke(ctx context.Context, sessionID string) error {
	token, err := s.client.Get(ctx, reverseKey(sessionID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("revoke lookup: %w", err)
	}

	keys := []string{sessionKey(sessionID), reverseKey(sessionID)}
	if token != "" {
		keys = append(keys, refreshKey(token))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func sessionKey(sessionID string) string { return "auth:session:" + sessionID }
func refreshKey(token string) string     { return "auth:refresh:" + token }
func reverseKey(sessionID string) string { return "auth:session_refresh:" + sessionID }

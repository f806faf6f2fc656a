// Package backendclient talks to the membership API over HTTP and keeps the
// signed-in session for the member client.
package backendclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hockeyunion/membership/internal/core/domain"
	"github.com/hockeyunion/membership/internal/core/ports"
)

const defaultTimeout = 10 * time.Second

// SessionPersister stores the session between process runs.
type SessionPersister interface {
	Load() (*domain.Session, error)
	Save(session *domain.Session) error
	Clear() error
}

// Client implements ports.AuthBackend and ports.ProfileStore against the
// membership API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	persist SessionPersister
	log     zerolog.Logger
	now     func() time.Time

	mu      sync.Mutex
	session *domain.Session
	loaded  bool
	// verified is false for a session read back from the persister until the
	// backend has confirmed it.
	verified  bool
	listeners map[int]ports.SessionListener
	nextID    int
}

var (
	_ ports.AuthBackend  = (*Client)(nil)
	_ ports.ProfileStore = (*Client)(nil)
)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithSessionPersister(p SessionPersister) Option {
	return func(c *Client) { c.persist = p }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a Client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL:   u,
		http:      &http.Client{Timeout: defaultTimeout},
		log:       zerolog.Nop(),
		now:       time.Now,
		listeners: make(map[int]ports.SessionListener),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetCurrentSession returns the held session, restoring it from the persister
// on first use. A restored session is confirmed with the backend before it is
// returned. An expired session is refreshed. A session the backend refuses is
// dropped and listeners are told.
func (c *Client) GetCurrentSession(ctx context.Context) (*domain.Session, error) {
	session, err := c.current()
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	if !session.Expired(c.now()) {
		return c.verify(ctx, session)
	}

	refreshed, err := c.refresh(ctx, session.RefreshToken)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			c.log.Info().Str("subject", session.Subject()).Msg("stored session expired, refresh refused")
			c.setSession(nil)
			return nil, nil
		}
		return nil, err
	}
	return refreshed, nil
}

// OnSessionChange registers listener. Listeners run on the goroutine that
// caused the change.
func (c *Client) OnSessionChange(listener ports.SessionListener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = listener
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// verify asks the backend whether a restored session is still live. A 401
// drops the session inside do.
func (c *Client) verify(ctx context.Context, session *domain.Session) (*domain.Session, error) {
	c.mu.Lock()
	verified := c.verified && c.session == session
	c.mu.Unlock()
	if verified {
		return session, nil
	}

	var identity domain.Identity
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", session.AccessToken, nil, &identity); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("verify session: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != session {
		return c.session, nil
	}
	if identity.ID != "" {
		session.User = identity
	}
	c.verified = true
	return session, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	var session domain.Session
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &session); err != nil {
		return nil, err
	}
	c.setSession(&session)
	return &session, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string, meta domain.IdentityMetadata) (*domain.Identity, *domain.Session, error) {
	var resp struct {
		User    *domain.Identity `json:"user"`
		Session *domain.Session  `json:"session"`
	}
	body := map[string]any{"email": email, "password": password, "data": meta}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", "", body, &resp); err != nil {
		return nil, nil, err
	}
	if resp.Session != nil {
		c.setSession(resp.Session)
	}
	return resp.User, resp.Session, nil
}

// SignOut forgets the local session even when the backend cannot be reached,
// then reports the revocation error if any.
func (c *Client) SignOut(ctx context.Context) error {
	session, err := c.current()
	if err != nil {
		c.log.Warn().Err(err).Msg("could not read stored session before sign out")
	}
	c.setSession(nil)

	if session == nil {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", session.AccessToken, nil, nil)
}

func (c *Client) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	var profile domain.Profile
	if err := c.do(ctx, http.MethodGet, "/rest/v1/profiles/"+url.PathEscape(id), token, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	body := map[string]any{
		"id":         profile.ID,
		"full_name":  profile.FullName,
		"avatar_url": profile.AvatarURL,
		"role":       profile.Role,
		"team_id":    profile.TeamID,
	}
	return c.do(ctx, http.MethodPost, "/rest/v1/profiles", token, body, nil)
}

func (c *Client) UpdateProfile(ctx context.Context, id string, fields domain.ProfileUpdate) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPatch, "/rest/v1/profiles/"+url.PathEscape(id), token, fields, nil)
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	if refreshToken == "" {
		return nil, newAPIError(http.StatusUnauthorized, "missing refresh token")
	}
	var session domain.Session
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", body, &session); err != nil {
		return nil, err
	}
	c.setSession(&session)
	return &session, nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	session, err := c.GetCurrentSession(ctx)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", domain.ErrSessionNotFound
	}
	return session.AccessToken, nil
}

func (c *Client) current() (*domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded && c.persist != nil {
		session, err := c.persist.Load()
		if err != nil {
			return nil, fmt.Errorf("restore session: %w", err)
		}
		c.session = session
		c.verified = false
	}
	c.loaded = true
	return c.session, nil
}

// setSession records session, persists it and notifies listeners.
func (c *Client) setSession(session *domain.Session) {
	c.mu.Lock()
	c.session = session
	c.loaded = true
	c.verified = session != nil
	listeners := make([]ports.SessionListener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	if c.persist != nil {
		if err := c.persist.Save(session); err != nil {
			c.log.Warn().Err(err).Msg("could not persist session")
		}
	}
	for _, l := range listeners {
		l(session)
	}
}

// dropSession forgets the held session when the backend has refused token.
// A session replaced in the meantime is left alone.
func (c *Client) dropSession(token string) {
	c.mu.Lock()
	held := c.session != nil && c.session.AccessToken == token
	subject := c.session.Subject()
	c.mu.Unlock()
	if !held {
		return
	}
	c.log.Info().Str("subject", subject).Msg("backend refused the session, signing out locally")
	c.setSession(nil)
}

type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// do performs one JSON request. out may be nil.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var env errorEnvelope
		msg := ""
		if json.Unmarshal(raw, &env) == nil {
			msg = env.Error
			if msg == "" {
				msg = env.Message
			}
		}
		c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Str("error", msg).Msg("backend request failed")
		apiErr := newAPIError(resp.StatusCode, msg)
		if token != "" && errors.Is(apiErr, domain.ErrSessionNotFound) {
			c.dropSession(token)
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

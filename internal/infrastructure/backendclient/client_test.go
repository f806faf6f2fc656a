package backendclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hockeyunion/membership/internal/core/domain"
	"github.com/hockeyunion/membership/internal/core/service"
)

type memPersister struct {
	mu      sync.Mutex
	session *domain.Session
	saves   int
}

func (m *memPersister) Load() (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, nil
}

func (m *memPersister) Save(s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s
	m.saves++
	return nil
}

func (m *memPersister) Clear() error { return m.Save(nil) }

type fakeAPI struct {
	t         *testing.T
	mux       *http.ServeMux
	logouts   int
	lastAuth  string
	userCalls int
}

// acceptTokens serves /auth/v1/user, answering 401 for any bearer not in live.
func (api *fakeAPI) acceptTokens(live ...string) {
	api.mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		api.userCalls++
		for _, token := range live {
			if r.Header.Get("Authorization") == "Bearer "+token {
				writeJSON(w, http.StatusOK, domain.Identity{ID: "U1", Email: "nia@club.na"})
				return
			}
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired session"})
	})
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	api := &fakeAPI{t: t, mux: http.NewServeMux()}
	srv := httptest.NewServer(api.mux)
	t.Cleanup(srv.Close)
	return api, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func session(id, token string, expires time.Time) *domain.Session {
	return &domain.Session{
		ID:           id,
		AccessToken:  token,
		RefreshToken: "refresh-" + id,
		TokenType:    "bearer",
		ExpiresAt:    expires,
		User:         domain.Identity{ID: "U1", Email: "nia@club.na"},
	}
}

func TestClient_SignInNotifiesAndPersists(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "secret1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid login credentials"})
			return
		}
		writeJSON(w, http.StatusOK, session("S1", "tok-1", time.Now().Add(time.Hour)))
	})

	store := &memPersister{}
	c, err := New(srv.URL, WithSessionPersister(store))
	require.NoError(t, err)

	var seen []*domain.Session
	unsubscribe := c.OnSessionChange(func(s *domain.Session) { seen = append(seen, s) })

	_, err = c.SignIn(context.Background(), "nia@club.na", "wrong")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidCredentials))
	assert.Equal(t, "Invalid login credentials", err.Error())
	assert.Empty(t, seen)

	s, err := c.SignIn(context.Background(), "nia@club.na", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", s.AccessToken)
	require.Len(t, seen, 1)
	assert.Equal(t, "S1", seen[0].ID)
	assert.Equal(t, "tok-1", store.session.AccessToken)

	current, err := c.GetCurrentSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "S1", current.ID)

	unsubscribe()
	_, err = c.SignIn(context.Background(), "nia@club.na", "secret1")
	require.NoError(t, err)
	assert.Len(t, seen, 1, "unsubscribed listener must not be called")
}

func TestClient_SignUpMapsConflict(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.mux.HandleFunc("/auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email string                  `json:"email"`
			Data  domain.IdentityMetadata `json:"data"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Email == "taken@club.na" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "User already registered"})
			return
		}
		assert.Equal(t, "admin", body.Data.Role)
		s := session("S2", "tok-2", time.Now().Add(time.Hour))
		writeJSON(w, http.StatusCreated, map[string]any{"user": s.User, "session": s})
	})

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, _, err = c.SignUp(context.Background(), "taken@club.na", "secret1", domain.IdentityMetadata{})
	assert.True(t, errors.Is(err, domain.ErrUserExists))

	identity, s, err := c.SignUp(context.Background(), "new@club.na", "secret1", domain.IdentityMetadata{Name: "New", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "U1", identity.ID)
	assert.Equal(t, "tok-2", s.AccessToken)
}

func TestClient_ProfilesUseBearerAndMap404(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.mux.HandleFunc("/rest/v1/profiles/", func(w http.ResponseWriter, r *http.Request) {
		api.lastAuth = r.Header.Get("Authorization")
		switch r.Method {
		case http.MethodGet:
			if r.URL.Path == "/rest/v1/profiles/U1" {
				writeJSON(w, http.StatusOK, map[string]any{
					"id": "U1", "full_name": "Nia", "role": "admin", "team_id": "falcons",
					"created_at": "2026-01-02T03:04:05Z", "updated_at": "2026-01-02T03:04:05Z",
				})
				return
			}
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "profile not found"})
		case http.MethodPatch:
			var patch map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
			assert.Equal(t, map[string]any{"role": "admin"}, patch)
			writeJSON(w, http.StatusOK, map[string]any{"id": "U1"})
		}
	})
	api.mux.HandleFunc("/rest/v1/profiles", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "profile already exists"})
	})
	api.acceptTokens("tok-1")

	store := &memPersister{session: session("S1", "tok-1", time.Now().Add(time.Hour))}
	c, err := New(srv.URL, WithSessionPersister(store))
	require.NoError(t, err)

	p, err := c.GetProfile(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", api.lastAuth)
	assert.Equal(t, "Nia", p.FullName)
	require.NotNil(t, p.TeamID)
	assert.Equal(t, "falcons", *p.TeamID)

	_, err = c.GetProfile(context.Background(), "U9")
	assert.True(t, errors.Is(err, domain.ErrProfileNotFound))

	role := "admin"
	require.NoError(t, c.UpdateProfile(context.Background(), "U1", domain.ProfileUpdate{Role: &role}))

	err = c.CreateProfile(context.Background(), &domain.Profile{ID: "U1"})
	assert.True(t, errors.Is(err, domain.ErrProfileExists))
	assert.Equal(t, 1, api.userCalls, "restored session is confirmed once")
}

func TestClient_ProfilesWithoutSession(t *testing.T) {
	_, srv := newFakeAPI(t)
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.GetProfile(context.Background(), "U1")
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))
}

func TestClient_RefreshesExpiredSession(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["refresh_token"] != "refresh-S1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired session"})
			return
		}
		writeJSON(w, http.StatusOK, session("S2", "tok-2", time.Now().Add(time.Hour)))
	})

	store := &memPersister{session: session("S1", "tok-1", time.Now().Add(-time.Minute))}
	c, err := New(srv.URL, WithSessionPersister(store))
	require.NoError(t, err)

	var seen []*domain.Session
	c.OnSessionChange(func(s *domain.Session) { seen = append(seen, s) })

	s, err := c.GetCurrentSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "S2", s.ID)
	require.Len(t, seen, 1)
	assert.Equal(t, "tok-2", store.session.AccessToken)
}

func TestClient_RefusedRefreshDropsSession(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired session"})
	})

	store := &memPersister{session: session("S1", "tok-1", time.Now().Add(-time.Minute))}
	c, err := New(srv.URL, WithSessionPersister(store))
	require.NoError(t, err)

	s, err := c.GetCurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Nil(t, store.session)
}

func TestClient_SignOutClearsEvenWhenBackendFails(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.mux.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		api.logouts++
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	})

	store := &memPersister{session: session("S1", "tok-1", time.Now().Add(time.Hour))}
	c, err := New(srv.URL, WithSessionPersister(store))
	require.NoError(t, err)

	var notified []*domain.Session
	c.OnSessionChange(func(s *domain.Session) { notified = append(notified, s) })

	err = c.SignOut(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, api.logouts)
	assert.Nil(t, store.session)
	require.Len(t, notified, 1)
	assert.Nil(t, notified[0])

	current, err := c.GetCurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, current)

	require.NoError(t, c.SignOut(context.Background()), "signing out without a session is a no-op")
	assert.Equal(t, 1, api.logouts)
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New("localhost:8080")
	assert.Error(t, err)
	_, err = New("/api")
	assert.Error(t, err)
}

func TestClient_RevokedRestoredSessionIsDropped(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.acceptTokens()

	store := &memPersister{session: session("S1", "revoked-token", time.Now().Add(time.Hour))}
	c, err := New(srv.URL, WithSessionPersister(store))
	require.NoError(t, err)

	var notified []*domain.Session
	c.OnSessionChange(func(s *domain.Session) { notified = append(notified, s) })

	s, err := c.GetCurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Nil(t, store.session)
	require.Len(t, notified, 1)
	assert.Nil(t, notified[0])
}

func TestClient_UnreachableBackendDoesNotConfirmSession(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "unavailable"})
	})

	store := &memPersister{session: session("S1", "tok-1", time.Now().Add(time.Hour))}
	c, err := New(srv.URL, WithSessionPersister(store))
	require.NoError(t, err)

	s, err := c.GetCurrentSession(context.Background())
	assert.Error(t, err)
	assert.Nil(t, s)
	assert.NotNil(t, store.session, "a transient failure keeps the stored session for later")
}

func TestClient_UnauthorizedProfileReadDropsSession(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.acceptTokens("tok-1")
	api.mux.HandleFunc("/rest/v1/profiles/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired session"})
	})

	store := &memPersister{session: session("S1", "tok-1", time.Now().Add(time.Hour))}
	c, err := New(srv.URL, WithSessionPersister(store))
	require.NoError(t, err)

	var notified []*domain.Session
	c.OnSessionChange(func(s *domain.Session) { notified = append(notified, s) })

	_, err = c.GetProfile(context.Background(), "U1")
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))
	assert.Nil(t, store.session)
	require.Len(t, notified, 1)
	assert.Nil(t, notified[0])

	current, err := c.GetCurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestSessionManager_DoesNotRestoreRevokedSession(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.acceptTokens()
	api.mux.HandleFunc("/rest/v1/profiles/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired session"})
	})

	store := &memPersister{session: session("S1", "revoked-token", time.Now().Add(time.Hour))}
	c, err := New(srv.URL, WithSessionPersister(store))
	require.NoError(t, err)

	m := service.NewSessionManager(c, c, service.SessionManagerConfig{}, zerolog.Nop())
	t.Cleanup(m.Close)
	m.Start(context.Background())

	assert.False(t, m.IsAuthenticated())
	assert.Nil(t, m.CurrentUser())
	assert.Nil(t, store.session)
}

func TestSessionManager_RestoresConfirmedSession(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.acceptTokens("tok-1")
	api.mux.HandleFunc("/rest/v1/profiles/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "U1", "full_name": "Nia", "role": "admin"})
	})

	store := &memPersister{session: session("S1", "tok-1", time.Now().Add(time.Hour))}
	c, err := New(srv.URL, WithSessionPersister(store))
	require.NoError(t, err)

	m := service.NewSessionManager(c, c, service.SessionManagerConfig{}, zerolog.Nop())
	t.Cleanup(m.Close)
	m.Start(context.Background())

	require.True(t, m.IsAuthenticated())
	assert.Equal(t, "Nia", m.CurrentUser().Name)
	assert.Equal(t, domain.RoleAdmin, m.CurrentUser().Role)
}

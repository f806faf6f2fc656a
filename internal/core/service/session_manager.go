package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/hockeyunion/membership/internal/core/domain"
	"github.com/hockeyunion/membership/internal/core/ports"
)

const (
	// DefaultProfileGrace is how long Register waits for the backend trigger
	// to create the profile before reading it back.
	DefaultProfileGrace = time.Second

	msgUnexpected = "An unexpected error occurred"

	changeBuffer = 16
)

// State is the snapshot of the session manager the rest of the app reads.
type State struct {
	CurrentUser *domain.AuthenticatedUser
	Session     *domain.Session
	IsLoading   bool
	LastError   string
}

// IsAuthenticated reports whether a user is signed in.
func (s State) IsAuthenticated() bool {
	return s.CurrentUser != nil
}

// SessionManagerConfig tunes the session manager.
type SessionManagerConfig struct {
	ProfileGrace  time.Duration
	AvatarBaseURL string
}

type stateWrite struct {
	seq    uint64
	mutate func(*State)
	ack    chan struct{}
}

// SessionManager owns the member's session and the derived AuthenticatedUser.
//
// All writes to State go through a single actor goroutine. Writes that carry a
// sequence number are applied only when newer than the last applied one, so a
// slow profile resolution cannot undo a later logout. Loading and error flags
// are written with sequence 0 and always applied.
//
// Session-change notifications that arrive while Login or Register is running
// are held back and replayed, in order, once the operation has written its
// outcome. The operation's own sign-in notification then matches the held
// session and is a no-op; anything else, such as a revocation, still applies.
type SessionManager struct {
	auth       ports.AuthBackend
	profiles   ports.ProfileStore
	log        zerolog.Logger
	grace      time.Duration
	avatarBase string
	sleep      func(ctx context.Context, d time.Duration) error

	seq     atomic.Uint64
	writes  chan stateWrite
	changes chan *domain.Session
	opsDone chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup

	opMu     sync.Mutex
	ops      int
	deferred []*domain.Session

	startOnce sync.Once
	closeOnce sync.Once

	mu           sync.RWMutex
	ctx          context.Context
	cancel       context.CancelFunc
	unsubscribe  func()
	state        State
	applied      uint64
	listeners    map[int]func(State)
	nextListener int
}

// NewSessionManager builds a manager and starts its state actor. Call Start to
// restore the session and Close to release it.
func NewSessionManager(auth ports.AuthBackend, profiles ports.ProfileStore, cfg SessionManagerConfig, log zerolog.Logger) *SessionManager {
	if cfg.ProfileGrace < 0 {
		cfg.ProfileGrace = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &SessionManager{
		auth:       auth,
		profiles:   profiles,
		log:        log.With().Str("component", "session_manager").Logger(),
		grace:      cfg.ProfileGrace,
		avatarBase: cfg.AvatarBaseURL,
		sleep:      sleepContext,
		writes:     make(chan stateWrite),
		changes:    make(chan *domain.Session, changeBuffer),
		opsDone:    make(chan struct{}, 1),
		done:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
		listeners:  make(map[int]func(State)),
	}
	m.wg.Add(1)
	go m.run()
	return m
}

// Start restores an existing session and subscribes to session changes for
// the lifetime of the manager. Only the first call has any effect.
func (m *SessionManager) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		seq := m.nextSeq()
		m.submit(0, func(s *State) { s.IsLoading = true })

		session, err := m.auth.GetCurrentSession(ctx)
		if err != nil {
			m.log.Warn().Err(err).Str("operation", "restore_session").Msg("session query failed")
			session = nil
		}

		var user *domain.AuthenticatedUser
		if session != nil {
			user = m.resolveProfile(ctx, session.User)
			if user == nil {
				session = nil
			}
		}
		m.submit(seq, func(s *State) {
			s.Session = session
			s.CurrentUser = user
			s.IsLoading = false
		})

		unsubscribe := m.auth.OnSessionChange(m.enqueueChange)
		m.mu.Lock()
		m.unsubscribe = unsubscribe
		m.mu.Unlock()

		m.wg.Add(1)
		go m.watch()
	})
}

// Close drops the session-change subscription and stops the manager.
func (m *SessionManager) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		unsubscribe := m.unsubscribe
		m.unsubscribe = nil
		m.mu.Unlock()
		if unsubscribe != nil {
			unsubscribe()
		}
		m.cancel()
		close(m.done)
		m.wg.Wait()
	})
}

// State returns the current snapshot.
func (m *SessionManager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *SessionManager) CurrentUser() *domain.AuthenticatedUser { return m.State().CurrentUser }
func (m *SessionManager) IsAuthenticated() bool                  { return m.State().IsAuthenticated() }
func (m *SessionManager) IsLoading() bool                        { return m.State().IsLoading }
func (m *SessionManager) LastError() string                      { return m.State().LastError }

// Subscribe calls fn with every applied state change, on the actor goroutine.
// fn may read State but must not call Login, Register or Logout.
func (m *SessionManager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Login signs in with email and password. On success CurrentUser reflects the
// member's profile; on failure LastError carries the backend's reason and
// nothing else changes.
func (m *SessionManager) Login(ctx context.Context, email, password string) (ok bool) {
	seq := m.nextSeq()
	m.beginOperation()
	defer m.endOperation("login", &ok)

	session, err := m.auth.SignIn(ctx, email, password)
	if err != nil {
		m.log.Info().Err(err).Str("operation", "login").Str("email", email).Msg("sign in rejected")
		m.setError(err.Error())
		return false
	}
	if session == nil {
		m.log.Error().Str("operation", "login").Str("email", email).Msg("sign in returned no session")
		m.setError(msgUnexpected)
		return false
	}

	user := m.resolveProfile(ctx, session.User)
	if user == nil {
		m.setError(domain.ErrSessionNotFound.Error())
		return false
	}
	m.submit(seq, func(s *State) {
		s.Session = session
		s.CurrentUser = user
	})

	m.log.Info().Str("operation", "login").Str("subject", user.ID).Msg("signed in")
	return true
}

// Register creates an identity with the requested role and signs the member
// in. Profile repair after sign-up is best effort and never fails the call.
func (m *SessionManager) Register(ctx context.Context, name, email, password, role string) (ok bool) {
	if role == "" {
		m.setError(domain.ErrRoleRequired.Error())
		return false
	}
	if !domain.ValidRole(role) {
		m.setError(domain.ErrInvalidRole.Error())
		return false
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = domain.EmailLocalPart(email)
	}

	seq := m.nextSeq()
	m.beginOperation()
	defer m.endOperation("register", &ok)

	identity, session, err := m.auth.SignUp(ctx, email, password, domain.IdentityMetadata{Name: name, Role: role})
	if err != nil {
		m.log.Info().Err(err).Str("operation", "register").Str("email", email).Msg("sign up rejected")
		m.setError(err.Error())
		return false
	}
	if identity == nil && session != nil {
		identity = &session.User
	}
	if identity == nil {
		m.log.Error().Str("operation", "register").Str("email", email).Msg("sign up returned no identity")
		m.setError(msgUnexpected)
		return false
	}

	avatar := AvatarURL(m.avatarBase, name)
	m.reconcileRegisteredProfile(ctx, &domain.Profile{
		ID:        identity.ID,
		FullName:  name,
		Email:     email,
		AvatarURL: avatar,
		Role:      role,
	})

	user := &domain.AuthenticatedUser{
		ID:     identity.ID,
		Name:   name,
		Email:  email,
		Avatar: avatar,
		Role:   role,
	}
	m.submit(seq, func(s *State) {
		s.Session = session
		s.CurrentUser = user
	})

	m.log.Info().Str("operation", "register").Str("subject", user.ID).Str("role", role).Msg("registered")
	return true
}

// Logout revokes the session on a best-effort basis and always clears local
// state.
func (m *SessionManager) Logout(ctx context.Context) {
	seq := m.nextSeq()
	defer m.submit(seq, func(s *State) {
		s.Session = nil
		s.CurrentUser = nil
	})
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Str("operation", "logout").Msg("sign out aborted")
		}
	}()

	if err := m.auth.SignOut(ctx); err != nil {
		m.log.Warn().Err(err).Str("operation", "logout").Msg("sign out failed, clearing local session anyway")
	}
}

// reconcileRegisteredProfile waits for the sign-up trigger, then makes sure
// the profile exists and carries the requested role.
func (m *SessionManager) reconcileRegisteredProfile(ctx context.Context, want *domain.Profile) {
	if m.grace > 0 {
		if err := m.sleep(ctx, m.grace); err != nil {
			m.log.Warn().Err(err).Str("operation", "register").Str("subject", want.ID).Msg("profile grace period interrupted")
		}
	}

	existing, err := m.profiles.GetProfile(ctx, want.ID)
	if err != nil || existing == nil {
		if err := m.profiles.CreateProfile(ctx, want); err != nil {
			m.log.Warn().Err(err).Str("operation", "register").Str("subject", want.ID).Msg("profile create failed")
		}
		return
	}

	role := want.Role
	if err := m.profiles.UpdateProfile(ctx, want.ID, domain.ProfileUpdate{Role: &role}); err != nil {
		m.log.Warn().Err(err).Str("operation", "register").Str("subject", want.ID).Msg("profile role update failed")
	}
}

func (m *SessionManager) beginOperation() {
	m.opMu.Lock()
	m.ops++
	m.opMu.Unlock()
	m.submit(0, func(s *State) {
		s.IsLoading = true
		s.LastError = ""
	})
}

// endOperation runs deferred: it turns a panic into a generic error and
// always clears the loading flag.
func (m *SessionManager) endOperation(op string, ok *bool) {
	if r := recover(); r != nil {
		m.log.Error().Interface("panic", r).Str("operation", op).Msg("operation aborted")
		m.setError(msgUnexpected)
		*ok = false
	}
	m.submit(0, func(s *State) { s.IsLoading = false })

	m.opMu.Lock()
	m.ops--
	wake := m.ops == 0 && len(m.deferred) > 0
	m.opMu.Unlock()
	if wake {
		select {
		case m.opsDone <- struct{}{}:
		default:
		}
	}
}

func (m *SessionManager) setError(msg string) {
	m.submit(0, func(s *State) { s.LastError = msg })
}

func (m *SessionManager) nextSeq() uint64 {
	return m.seq.Add(1)
}

// enqueueChange is the backend listener. It only queues; the watcher does the
// work so the backend is never blocked on profile reads.
func (m *SessionManager) enqueueChange(session *domain.Session) {
	select {
	case m.changes <- session:
	case <-m.done:
	}
}

func (m *SessionManager) watch() {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case <-m.opsDone:
			m.replayDeferred()
		case session := <-m.changes:
			if m.deferChange(session) {
				continue
			}
			m.replayDeferred()
			m.handleChange(session)
		}
	}
}

// deferChange holds session back while Login or Register is running.
func (m *SessionManager) deferChange(session *domain.Session) bool {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	if m.ops == 0 {
		return false
	}
	m.deferred = append(m.deferred, session)
	m.log.Debug().Str("subject", session.Subject()).Msg("session change held until operation ends")
	return true
}

func (m *SessionManager) replayDeferred() {
	m.opMu.Lock()
	if m.ops > 0 {
		m.opMu.Unlock()
		return
	}
	pending := m.deferred
	m.deferred = nil
	m.opMu.Unlock()

	for _, session := range pending {
		m.handleChange(session)
	}
}

func (m *SessionManager) handleChange(session *domain.Session) {
	seq := m.nextSeq()
	if session == nil {
		m.submit(seq, func(s *State) {
			s.Session = nil
			s.CurrentUser = nil
		})
		return
	}

	current := m.State()
	if current.Session != nil && current.Session.AccessToken == session.AccessToken {
		return
	}
	if current.CurrentUser != nil && current.CurrentUser.ID == session.Subject() {
		m.submit(seq, func(s *State) {
			if s.CurrentUser != nil && s.CurrentUser.ID == session.Subject() {
				s.Session = session
			}
		})
		return
	}

	user := m.resolveProfile(m.ctx, session.User)
	if user == nil {
		session = nil
	}
	m.submit(seq, func(s *State) {
		s.Session = session
		s.CurrentUser = user
	})
}

func (m *SessionManager) submit(seq uint64, mutate func(*State)) {
	w := stateWrite{seq: seq, mutate: mutate, ack: make(chan struct{})}
	select {
	case m.writes <- w:
	case <-m.done:
		return
	}
	<-w.ack
}

func (m *SessionManager) run() {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case w := <-m.writes:
			m.apply(w)
			close(w.ack)
		}
	}
}

func (m *SessionManager) apply(w stateWrite) {
	m.mu.Lock()
	if w.seq != 0 {
		if w.seq < m.applied {
			m.mu.Unlock()
			m.log.Debug().Uint64("seq", w.seq).Uint64("applied", m.applied).Msg("stale state write dropped")
			return
		}
		m.applied = w.seq
	}
	next := m.state
	w.mutate(&next)
	m.state = next

	listeners := make([]func(State), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/hockeyunion/membership/internal/core/domain"
	"github.com/hockeyunion/membership/internal/core/ports"
)

const minPasswordLength = 6

// TokenConfig controls how sessions are minted.
type TokenConfig struct {
	Secret     string
	TTL        time.Duration
	RefreshTTL time.Duration
}

type sessionClaims struct {
	Email     string `json:"email"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// AuthService implements sign-up, sign-in and session lifecycle on the backend.
type AuthService struct {
	repo         ports.IdentityRepository
	sessions     ports.SessionStore
	provisioning ports.ProvisionQueue
	tokens       TokenConfig
	log          zerolog.Logger
	nowFn        func() time.Time
}

func NewAuthService(repo ports.IdentityRepository, sessions ports.SessionStore, provisioning ports.ProvisionQueue, tokens TokenConfig, log zerolog.Logger) *AuthService {
	if tokens.TTL <= 0 {
		tokens.TTL = time.Hour
	}
	if tokens.RefreshTTL <= 0 {
		tokens.RefreshTTL = 30 * 24 * time.Hour
	}
	return &AuthService{
		repo:         repo,
		sessions:     sessions,
		provisioning: provisioning,
		tokens:       tokens,
		log:          log,
		nowFn:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *AuthService) SignUp(ctx context.Context, email, password string, meta domain.IdentityMetadata) (*domain.Identity, *domain.Session, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, nil, fmt.Errorf("%w: a valid email is required", domain.ErrInvalidInput)
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return nil, nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}
	meta.Name = strings.TrimSpace(meta.Name)
	if meta.Role != "" && !domain.ValidRole(meta.Role) {
		return nil, nil, domain.ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	identity := &domain.Identity{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Metadata:     meta,
		CreatedAt:    s.nowFn(),
	}

	created, err := s.repo.Create(ctx, identity)
	if err != nil {
		return nil, nil, err
	}

	s.provisioning.Enqueue(ports.ProvisionInput{
		Subject: created.ID,
		Email:   created.Email,
		Name:    meta.Name,
		Role:    meta.Role,
	})

	session, err := s.issueSession(ctx, created)
	if err != nil {
		return nil, nil, err
	}

	s.log.Info().Str("subject", created.ID).Str("role", meta.Role).Msg("identity registered")
	return publicIdentity(created), session, nil
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	identity, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issueSession(ctx, identity)
}

// Refresh exchanges a refresh token for a new session. The old session is
// retired by the same store call that reads the token, so each refresh token
// works once even under concurrent use.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	if refreshToken == "" {
		return nil, domain.ErrSessionNotFound
	}

	stored, err := s.sessions.Consume(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	identity, err := s.repo.FindByID(ctx, stored.Subject)
	if err != nil {
		return nil, err
	}
	return s.issueSession(ctx, identity)
}

// GetSession verifies an access token and checks it has not been revoked.
func (s *AuthService) GetSession(ctx context.Context, accessToken string) (*domain.Session, error) {
	claims, err := s.parseToken(accessToken, true)
	if err != nil {
		return nil, domain.ErrSessionNotFound
	}

	live, err := s.sessions.Exists(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if !live {
		return nil, domain.ErrSessionNotFound
	}

	identity, err := s.repo.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	return &domain.Session{
		ID:          claims.SessionID,
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresAt:   claims.ExpiresAt.Time.UTC(),
		User:        *publicIdentity(identity),
	}, nil
}

// SignOut revokes the session behind accessToken. Expired tokens are still
// accepted so their refresh token can be retired.
func (s *AuthService) SignOut(ctx context.Context, accessToken string) error {
	claims, err := s.parseToken(accessToken, false)
	if err != nil {
		return domain.ErrSessionNotFound
	}
	if err := s.sessions.Revoke(ctx, claims.SessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.log.Info().Str("subject", claims.Subject).Str("session_id", claims.SessionID).Msg("session revoked")
	return nil
}

func (s *AuthService) issueSession(ctx context.Context, identity *domain.Identity) (*domain.Session, error) {
	now := s.nowFn()
	expiresAt := now.Add(s.tokens.TTL)
	sessionID := uuid.NewString()
	refreshToken := uuid.NewString()

	claims := sessionClaims{
		Email:     identity.Email,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.tokens.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	err = s.sessions.Save(ctx, ports.StoredSession{
		SessionID:    sessionID,
		Subject:      identity.ID,
		RefreshToken: refreshToken,
	}, s.tokens.TTL, s.tokens.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return &domain.Session{
		ID:           sessionID,
		AccessToken:  token,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresAt:    expiresAt.Truncate(time.Second),
		User:         *publicIdentity(identity),
	}, nil
}

func (s *AuthService) parseToken(raw string, validate bool) (*sessionClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if validate {
		opts = append(opts, jwt.WithExpirationRequired())
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := &sessionClaims{}
	tkn, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.tokens.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !tkn.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Subject == "" || claims.SessionID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func publicIdentity(identity *domain.Identity) *domain.Identity {
	clone := *identity
	clone.PasswordHash = ""
	return &clone
}

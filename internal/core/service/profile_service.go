package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hockeyunion/membership/internal/core/domain"
	"github.com/hockeyunion/membership/internal/core/ports"
)

type profileService struct {
	repo ports.ProfileRepository
	log  zerolog.Logger
	now  func() time.Time
}

// NewProfileService returns a ProfileService implementation. Callers may act
// on their own profile; admins may act on any.
func NewProfileService(repo ports.ProfileRepository, log zerolog.Logger) ports.ProfileService {
	return &profileService{
		repo: repo,
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *profileService) Get(ctx context.Context, caller ports.Caller, id string) (*domain.Profile, error) {
	if err := s.authorize(ctx, caller, id); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

func (s *profileService) Create(ctx context.Context, caller ports.Caller, p *domain.Profile) (*domain.Profile, error) {
	if p == nil {
		return nil, domain.ErrInvalidInput
	}
	profile := *p
	if profile.ID == "" {
		profile.ID = caller.Subject
	}
	if profile.Role == "" {
		profile.Role = domain.RoleUser
	}
	if !domain.ValidRole(profile.Role) {
		return nil, domain.ErrInvalidRole
	}
	if err := s.authorize(ctx, caller, profile.ID); err != nil {
		return nil, err
	}

	profile.FullName = strings.TrimSpace(profile.FullName)
	if profile.Email == "" && profile.ID == caller.Subject {
		profile.Email = caller.Email
	}
	now := s.now()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	if err := s.repo.Create(ctx, &profile); err != nil {
		return nil, err
	}
	s.log.Info().Str("subject", profile.ID).Str("role", profile.Role).Msg("profile created")
	return &profile, nil
}

func (s *profileService) Update(ctx context.Context, caller ports.Caller, id string, fields domain.ProfileUpdate) (*domain.Profile, error) {
	if fields.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrInvalidInput)
	}
	if fields.Role != nil && !domain.ValidRole(*fields.Role) {
		return nil, domain.ErrInvalidRole
	}
	if err := s.authorize(ctx, caller, id); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("subject", id).Str("caller", caller.Subject).Msg("profile updated")
	return updated, nil
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

func (s *profileService) List(ctx context.Context, f ports.ListProfilesFilter) (*ports.ProfilePage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}
	if f.Role != "" && !domain.ValidRole(f.Role) {
		return nil, domain.ErrInvalidRole
	}

	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &ports.ProfilePage{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (s *profileService) RoleOf(ctx context.Context, subject string) (string, error) {
	p, err := s.repo.FindByID(ctx, subject)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return "", nil
		}
		return "", err
	}
	return p.Role, nil
}

// authorize lets callers touch their own profile, and admins any profile.
func (s *profileService) authorize(ctx context.Context, caller ports.Caller, id string) error {
	if caller.Subject == "" {
		return domain.ErrForbidden
	}
	if caller.Subject == id {
		return nil
	}

	own, err := s.repo.FindByID(ctx, caller.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return domain.ErrForbidden
		}
		return err
	}
	if own.Role != domain.RoleAdmin {
		return domain.ErrForbidden
	}
	return nil
}

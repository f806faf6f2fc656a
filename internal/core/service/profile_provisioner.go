package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hockeyunion/membership/internal/core/domain"
	"github.com/hockeyunion/membership/internal/core/ports"
)

type profileProvisioner struct {
	repo       ports.ProfileRepository
	avatarBase string
	log        zerolog.Logger
}

// NewProfileProvisioner returns the sign-up trigger that creates a profile for
// a new identity.
func NewProfileProvisioner(repo ports.ProfileRepository, avatarBase string, log zerolog.Logger) ports.ProfileProvisioner {
	return &profileProvisioner{repo: repo, avatarBase: avatarBase, log: log}
}

// Process creates the profile unless one already exists. Role comes from the
// sign-up metadata and falls back to user.
func (p *profileProvisioner) Process(ctx context.Context, in ports.ProvisionInput) error {
	role := in.Role
	if !domain.ValidRole(role) {
		role = domain.RoleUser
	}
	name := in.Name
	if name == "" {
		name = domain.EmailLocalPart(in.Email)
	}

	now := time.Now().UTC()
	err := p.repo.Create(ctx, &domain.Profile{
		ID:        in.Subject,
		FullName:  name,
		Email:     in.Email,
		AvatarURL: AvatarURL(p.avatarBase, name),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if errors.Is(err, domain.ErrProfileExists) {
		p.log.Debug().Str("subject", in.Subject).Msg("profile already present, provisioning skipped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("provision profile: %w", err)
	}

	p.log.Info().Str("subject", in.Subject).Str("role", role).Msg("profile provisioned")
	return nil
}

package service

import (
	"context"
	"errors"

	"github.com/hockeyunion/membership/internal/core/domain"
)

// resolveProfile turns an identity into the user the app sees. A profile
// store failure falls back to identity-derived values so a validly signed-in
// member is not locked out. It returns nil only when the backend rejects the
// session itself, in which case nobody is signed in.
func (m *SessionManager) resolveProfile(ctx context.Context, identity domain.Identity) *domain.AuthenticatedUser {
	profile, err := m.profiles.GetProfile(ctx, identity.ID)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		m.log.Warn().Err(err).
			Str("operation", "resolve_profile").
			Str("subject", identity.ID).
			Msg("backend rejected the session")
		return nil

	case err == nil && profile != nil:
		return m.userFromProfile(identity, profile)

	case err == nil, errors.Is(err, domain.ErrProfileNotFound):
		user := m.userFromIdentity(identity)
		missing := &domain.Profile{
			ID:        identity.ID,
			FullName:  user.Name,
			Email:     identity.Email,
			AvatarURL: user.Avatar,
			Role:      domain.RoleUser,
		}
		if err := m.profiles.CreateProfile(ctx, missing); err != nil {
			m.log.Warn().Err(err).
				Str("operation", "resolve_profile").
				Str("subject", identity.ID).
				Msg("creating missing profile failed, using identity defaults")
			return user
		}
		m.log.Info().
			Str("operation", "resolve_profile").
			Str("subject", identity.ID).
			Msg("created missing profile")
		return user

	default:
		m.log.Warn().Err(err).
			Str("operation", "resolve_profile").
			Str("subject", identity.ID).
			Msg("profile read failed, using identity defaults")
		return m.userFromIdentity(identity)
	}
}

func (m *SessionManager) userFromProfile(identity domain.Identity, p *domain.Profile) *domain.AuthenticatedUser {
	user := m.userFromIdentity(identity)
	if p.FullName != "" {
		user.Name = p.FullName
	}
	if user.Email == "" {
		user.Email = p.Email
	}
	if p.Role != "" {
		user.Role = p.Role
	}
	if p.AvatarURL != "" {
		user.Avatar = p.AvatarURL
	} else {
		user.Avatar = AvatarURL(m.avatarBase, user.Name)
	}
	user.Team = p.TeamID
	return user
}

func (m *SessionManager) userFromIdentity(identity domain.Identity) *domain.AuthenticatedUser {
	name := domain.EmailLocalPart(identity.Email)
	return &domain.AuthenticatedUser{
		ID:     identity.ID,
		Name:   name,
		Email:  identity.Email,
		Avatar: AvatarURL(m.avatarBase, name),
		Role:   domain.RoleUser,
	}
}

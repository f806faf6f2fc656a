package handler

import (
	"time"

	"github.com/hockeyunion/membership/internal/core/domain"
)

type createProfileRequest struct {
	ID        string  `json:"id"`
	FullName  string  `json:"full_name"  validate:"max=120"`
	AvatarURL string  `json:"avatar_url" validate:"omitempty,url"`
	Role      string  `json:"role"       validate:"member_role"`
	TeamID    *string `json:"team_id"`
}

type updateProfileRequest struct {
	FullName  *string `json:"full_name"  validate:"omitempty,max=120"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url"`
	Role      *string `json:"role"       validate:"omitempty,member_role"`
	TeamID    *string `json:"team_id"`
}

type profileResponse struct {
	ID        string  `json:"id"`
	FullName  string  `json:"full_name"`
	Email     string  `json:"email"`
	AvatarURL string  `json:"avatar_url"`
	Role      string  `json:"role"`
	TeamID    *string `json:"team_id"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type listProfilesResponse struct {
	Items []profileResponse `json:"items"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

func toProfileResponse(p *domain.Profile) profileResponse {
	return profileResponse{
		ID:        p.ID,
		FullName:  p.FullName,
		Email:     p.Email,
		AvatarURL: p.AvatarURL,
		Role:      p.Role,
		TeamID:    p.TeamID,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (r createProfileRequest) toDomain() *domain.Profile {
	return &domain.Profile{
		ID:        r.ID,
		FullName:  r.FullName,
		AvatarURL: r.AvatarURL,
		Role:      r.Role,
		TeamID:    r.TeamID,
	}
}

func (r updateProfileRequest) toDomain() domain.ProfileUpdate {
	return domain.ProfileUpdate{
		FullName:  r.FullName,
		AvatarURL: r.AvatarURL,
		Role:      r.Role,
		TeamID:    r.TeamID,
	}
}

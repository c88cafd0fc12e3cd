package auth

import (
	"github.com/google/uuid"

	"github.com/revibe-app/revibe-backend/internal/users"
	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
)

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileSummary is the slice of the profile returned with session responses.
type ProfileSummary struct {
	ID          uuid.UUID         `json:"id"`
	Username    string            `json:"username"`
	DisplayName string            `json:"display_name"`
	AccountType enums.AccountType `json:"account_type"`
	AvatarURL   *string           `json:"avatar_url,omitempty"`
}

// LoginResponse contains the token pair and identity produced by a login.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
	Profile      ProfileSummary `json:"profile"`
}

// RefreshRequest rotates a session. The access token may be expired; it only
// proves which session the refresh token belongs to.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse carries the replacement token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterResponse returns the identity created by registration, including
// the username allocated by the bootstrap hook.
type RegisterResponse struct {
	User    *users.UserDTO `json:"user"`
	Profile ProfileSummary `json:"profile"`
}

func summarizeProfile(p *models.Profile) ProfileSummary {
	if p == nil {
		return ProfileSummary{}
	}
	return ProfileSummary{
		ID:          p.ID,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		AccountType: p.AccountType,
		AvatarURL:   p.AvatarURL,
	}
}

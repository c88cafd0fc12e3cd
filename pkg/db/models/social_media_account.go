package models

import (
	"time"

	"github.com/google/uuid"
)

// SocialMediaAccount links an external handle to a profile.
type SocialMediaAccount struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProfileID uuid.UUID `gorm:"column:profile_id;type:uuid;not null;index"`
	Platform  string    `gorm:"column:platform;not null"`
	Handle    string    `gorm:"column:handle;not null"`
	URL       *string   `gorm:"column:url"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/revibe-app/revibe-backend/pkg/enums"
)

// Profile is the public face of a user: closet, brand page, seller identity.
// Rows are created exclusively by the user bootstrap hook.
type Profile struct {
	ID               uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID         `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Username         string            `gorm:"column:username;not null;uniqueIndex"`
	DisplayName      string            `gorm:"column:display_name;not null"`
	Bio              *string           `gorm:"column:bio"`
	AccountType      enums.AccountType `gorm:"column:account_type;type:account_type;not null;default:'personal'"`
	BrandName        *string           `gorm:"column:brand_name"`
	BrandWebsite     *string           `gorm:"column:brand_website"`
	IsBrandVerified  bool              `gorm:"column:is_brand_verified;not null;default:false"`
	IsSeller         bool              `gorm:"column:is_seller;not null;default:false"`
	SetupCompleted   bool              `gorm:"column:setup_completed;not null;default:false"`
	SetupCompletedAt *time.Time        `gorm:"column:setup_completed_at"`
	AvatarURL        *string           `gorm:"column:avatar_url"`
	CoverURL         *string           `gorm:"column:cover_url"`
	DeletedAt        *time.Time        `gorm:"column:deleted_at"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

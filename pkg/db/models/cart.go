package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart is the single shopping cart attached to a profile at bootstrap.
type Cart struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProfileID uuid.UUID  `gorm:"column:profile_id;type:uuid;not null;uniqueIndex"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// CartItem references a listing placed in a cart.
type CartItem struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CartID    uuid.UUID `gorm:"column:cart_id;type:uuid;not null;index"`
	ListingID uuid.UUID `gorm:"column:listing_id;type:uuid;not null"`
	AddedAt   time.Time `gorm:"column:added_at;autoCreateTime"`
}

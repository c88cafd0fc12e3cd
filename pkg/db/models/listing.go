package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/revibe-app/revibe-backend/pkg/enums"
)

// Listing is an item offered for sale out of a seller's closet.
type Listing struct {
	ID              uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SellerProfileID uuid.UUID              `gorm:"column:seller_profile_id;type:uuid;not null;index"`
	CategoryID      uuid.UUID              `gorm:"column:category_id;type:uuid;not null;index"`
	Title           string                 `gorm:"column:title;not null"`
	Description     string                 `gorm:"column:description;not null"`
	Brand           *string                `gorm:"column:brand"`
	Size            *string                `gorm:"column:size"`
	Condition       enums.ListingCondition `gorm:"column:condition;type:listing_condition;not null"`
	Price           decimal.Decimal        `gorm:"column:price;type:numeric(12,2);not null"`
	Currency        string                 `gorm:"column:currency;not null;default:'USD'"`
	Photos          pq.StringArray         `gorm:"column:photos;type:text[];default:ARRAY[]::text[]"`
	Status          enums.ListingStatus    `gorm:"column:status;type:listing_status;not null;default:'draft'"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProfileStats is the denormalized counters row zeroed at bootstrap and
// mutated only by write hooks.
type ProfileStats struct {
	ProfileID      uuid.UUID       `gorm:"column:profile_id;type:uuid;primaryKey"`
	TotalSales     int             `gorm:"column:total_sales;not null;default:0"`
	TotalPurchases int             `gorm:"column:total_purchases;not null;default:0"`
	TotalListings  int             `gorm:"column:total_listings;not null;default:0"`
	RatingAvg      decimal.Decimal `gorm:"column:rating_avg;type:numeric(3,2);not null;default:0"`
	RatingCount    int             `gorm:"column:rating_count;not null;default:0"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

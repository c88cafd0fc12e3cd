package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/revibe-app/revibe-backend/pkg/enums"
)

// Payout is the seller's share of a completed order, created exactly once by
// the completion hook.
type Payout struct {
	ID              uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID          `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	SellerProfileID uuid.UUID          `gorm:"column:seller_profile_id;type:uuid;not null;index"`
	GrossAmount     decimal.Decimal    `gorm:"column:gross_amount;type:numeric(12,2);not null"`
	PlatformFee     decimal.Decimal    `gorm:"column:platform_fee;type:numeric(12,2);not null"`
	NetAmount       decimal.Decimal    `gorm:"column:net_amount;type:numeric(12,2);not null"`
	Status          enums.PayoutStatus `gorm:"column:status;type:payout_status;not null;default:'pending'"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
}

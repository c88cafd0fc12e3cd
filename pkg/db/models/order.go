package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/revibe-app/revibe-backend/pkg/enums"
)

// Order is a single-listing purchase between two distinct profiles.
type Order struct {
	ID              uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     string              `gorm:"column:order_number;not null;uniqueIndex"`
	BuyerProfileID  uuid.UUID           `gorm:"column:buyer_profile_id;type:uuid;not null;index"`
	SellerProfileID uuid.UUID           `gorm:"column:seller_profile_id;type:uuid;not null;index"`
	ListingID       uuid.UUID           `gorm:"column:listing_id;type:uuid;not null"`
	Status          enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'pending_payment'"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	Subtotal        decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ShippingCost    decimal.Decimal     `gorm:"column:shipping_cost;type:numeric(12,2);not null;default:0"`
	Tax             decimal.Decimal     `gorm:"column:tax;type:numeric(12,2);not null;default:0"`
	Discount        decimal.Decimal     `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	Total           decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	PlatformFee     decimal.Decimal     `gorm:"column:platform_fee;type:numeric(12,2);not null;default:0"`
	Currency        string              `gorm:"column:currency;not null;default:'USD'"`
	CancelledAt     *time.Time          `gorm:"column:cancelled_at"`
	ShippedAt       *time.Time          `gorm:"column:shipped_at"`
	DeliveredAt     *time.Time          `gorm:"column:delivered_at"`
	CompletedAt     *time.Time          `gorm:"column:completed_at"`
	Shipments       []OrderShipment     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/revibe-app/revibe-backend/pkg/enums"
)

// RefundRequest asks for money back on an order, optionally tied to a return.
type RefundRequest struct {
	ID                 uuid.UUID                 `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID            uuid.UUID                 `gorm:"column:order_id;type:uuid;not null;index"`
	ReturnID           *uuid.UUID                `gorm:"column:return_id;type:uuid"`
	RequesterProfileID uuid.UUID                 `gorm:"column:requester_profile_id;type:uuid;not null"`
	Amount             decimal.Decimal           `gorm:"column:amount;type:numeric(12,2);not null"`
	Status             enums.RefundRequestStatus `gorm:"column:status;type:refund_request_status;not null;default:'pending'"`
	ProcessedAt        *time.Time                `gorm:"column:processed_at"`
	CreatedAt          time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/revibe-app/revibe-backend/pkg/enums"
)

// Return is a buyer-initiated request to send an item back.
type Return struct {
	ID                 uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID            uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	RequesterProfileID uuid.UUID          `gorm:"column:requester_profile_id;type:uuid;not null"`
	Reason             string             `gorm:"column:reason;not null"`
	Status             enums.ReturnStatus `gorm:"column:status;type:return_status;not null;default:'requested'"`
	DeclineReason      *string            `gorm:"column:decline_reason"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

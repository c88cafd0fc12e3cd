package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/revibe-app/revibe-backend/pkg/enums"
)

// OrderShipment tracks one carrier shipment attached to an order.
type OrderShipment struct {
	ID             uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	Carrier        string               `gorm:"column:carrier;not null"`
	TrackingNumber string               `gorm:"column:tracking_number;not null"`
	Status         enums.TrackingStatus `gorm:"column:status;type:tracking_status;not null;default:'label_created'"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

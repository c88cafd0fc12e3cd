package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/revibe-app/revibe-backend/pkg/enums"
)

// Dispute is a disagreement raised by one order party against the other.
type Dispute struct {
	ID                  uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID             uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	InitiatorProfileID  uuid.UUID           `gorm:"column:initiator_profile_id;type:uuid;not null"`
	RespondentProfileID uuid.UUID           `gorm:"column:respondent_profile_id;type:uuid;not null"`
	Reason              string              `gorm:"column:reason;not null"`
	Status              enums.DisputeStatus `gorm:"column:status;type:dispute_status;not null;default:'open'"`
	Resolution          *string             `gorm:"column:resolution"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

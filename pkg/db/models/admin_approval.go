package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/revibe-app/revibe-backend/pkg/enums"
)

// AdminApproval records one administrative decision. Append-only: no update
// or delete policy exists for any role.
type AdminApproval struct {
	ID          uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AdminUserID uuid.UUID         `gorm:"column:admin_user_id;type:uuid;not null;index"`
	Action      enums.AdminAction `gorm:"column:action;type:admin_action;not null"`
	TargetType  string            `gorm:"column:target_type;not null"`
	TargetID    uuid.UUID         `gorm:"column:target_id;type:uuid;not null"`
	Note        *string           `gorm:"column:note"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}

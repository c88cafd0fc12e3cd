package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/revibe-app/revibe-backend/pkg/types"
)

// AdminAuditLog is the append-only trail of privileged writes. Admins read;
// only the service writes.
type AdminAuditLog struct {
	ID          uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AdminUserID uuid.UUID     `gorm:"column:admin_user_id;type:uuid;not null;index"`
	Action      string        `gorm:"column:action;not null"`
	TargetTable string        `gorm:"column:table_name;not null"`
	RecordID    *uuid.UUID    `gorm:"column:record_id;type:uuid"`
	Detail      types.JSONMap `gorm:"column:detail;type:jsonb"`
	CreatedAt   time.Time     `gorm:"column:created_at;autoCreateTime"`
}

// TableName keeps the collective singular used across the schema.
func (AdminAuditLog) TableName() string {
	return "admin_audit_log"
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/revibe-app/revibe-backend/pkg/types"
)

// SecurityEvent is written by the service role only. No request-scoped
// principal, admin included, can read or write these rows.
type SecurityEvent struct {
	ID        uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Kind      string        `gorm:"column:kind;not null"`
	Detail    types.JSONMap `gorm:"column:detail;type:jsonb"`
	CreatedAt time.Time     `gorm:"column:created_at;autoCreateTime"`
}

package models

import (
	"time"

	"github.com/lib/pq"
)

// StorageBucket declares upload rules for one object namespace. The five
// canonical buckets are seeded by migration.
type StorageBucket struct {
	Name             string         `gorm:"column:name;primaryKey"`
	Public           bool           `gorm:"column:public;not null;default:false"`
	AllowedMimeTypes pq.StringArray `gorm:"column:allowed_mime_types;type:text[];not null"`
	MaxSizeBytes     int64          `gorm:"column:max_size_bytes;not null"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// StorageObject is the metadata row for one stored file. object_path is
// namespaced under the owner's user id.
type StorageObject struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Bucket      string    `gorm:"column:bucket;not null;uniqueIndex:idx_storage_objects_bucket_path"`
	ObjectPath  string    `gorm:"column:object_path;not null;uniqueIndex:idx_storage_objects_bucket_path"`
	OwnerUserID uuid.UUID `gorm:"column:owner_user_id;type:uuid;not null;index"`
	MimeType    string    `gorm:"column:mime_type;not null"`
	SizeBytes   int64     `gorm:"column:size_bytes;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

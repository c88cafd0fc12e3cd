package storage

import (
	"time"

	"github.com/google/uuid"

	"github.com/revibe-app/revibe-backend/pkg/db/models"
)

// BucketDTO describes one upload namespace and its rules.
type BucketDTO struct {
	Name             string   `json:"name"`
	Public           bool     `json:"public"`
	AllowedMimeTypes []string `json:"allowed_mime_types"`
	MaxSizeBytes     int64    `json:"max_size_bytes"`
}

// ObjectDTO is the API view of one stored object. URL is a signed download
// link minted per request, not persisted.
type ObjectDTO struct {
	ID          uuid.UUID `json:"id"`
	Bucket      string    `json:"bucket"`
	ObjectPath  string    `json:"object_path"`
	OwnerUserID uuid.UUID `json:"owner_user_id"`
	MimeType    string    `json:"mime_type"`
	SizeBytes   int64     `json:"size_bytes"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// UploadAuthorizationDTO is returned to a client that may upload: the object
// row already exists and the signed PUT URL carries the write grant.
type UploadAuthorizationDTO struct {
	ObjectID    uuid.UUID `json:"object_id"`
	Bucket      string    `json:"bucket"`
	ObjectPath  string    `json:"object_path"`
	UploadURL   string    `json:"upload_url"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ObjectPage is one keyset page of objects.
type ObjectPage struct {
	Objects    []ObjectDTO `json:"objects"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

func bucketFromModel(b *models.StorageBucket) BucketDTO {
	return BucketDTO{
		Name:             b.Name,
		Public:           b.Public,
		AllowedMimeTypes: append([]string(nil), b.AllowedMimeTypes...),
		MaxSizeBytes:     b.MaxSizeBytes,
	}
}

func objectFromModel(o *models.StorageObject, url string) ObjectDTO {
	return ObjectDTO{
		ID:          o.ID,
		Bucket:      o.Bucket,
		ObjectPath:  o.ObjectPath,
		OwnerUserID: o.OwnerUserID,
		MimeType:    o.MimeType,
		SizeBytes:   o.SizeBytes,
		URL:         url,
		CreatedAt:   o.CreatedAt,
	}
}

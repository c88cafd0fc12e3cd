package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/revibe-app/revibe-backend/pkg/enums"
)

// BrandVerificationRequest is a brand account's application for the verified
// badge. Owner-editable only while pending.
type BrandVerificationRequest struct {
	ID                 uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProfileID          uuid.UUID                `gorm:"column:profile_id;type:uuid;not null;index"`
	BrandName          string                   `gorm:"column:brand_name;not null"`
	Website            *string                  `gorm:"column:website"`
	RegistrationNumber *string                  `gorm:"column:registration_number"`
	DocumentsPath      *string                  `gorm:"column:documents_path"`
	Status             enums.VerificationStatus `gorm:"column:verification_status;type:verification_status;not null;default:'pending'"`
	ReviewerUserID     *uuid.UUID               `gorm:"column:reviewer_user_id;type:uuid"`
	ReviewNote         *string                  `gorm:"column:review_note"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

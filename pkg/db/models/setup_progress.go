package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/revibe-app/revibe-backend/pkg/enums"
)

// SetupProgress records completion of one onboarding step for a profile.
type SetupProgress struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProfileID   uuid.UUID       `gorm:"column:profile_id;type:uuid;not null;uniqueIndex:idx_setup_progress_profile_step"`
	Step        enums.SetupStep `gorm:"column:step;type:setup_step;not null;uniqueIndex:idx_setup_progress_profile_step"`
	Completed   bool            `gorm:"column:completed;not null;default:false"`
	CompletedAt *time.Time      `gorm:"column:completed_at"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the singular form; the default pluralizer mangles
// "progress".
func (SetupProgress) TableName() string {
	return "setup_progress"
}

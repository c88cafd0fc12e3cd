package setup

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
)

// Repository exposes setup progress persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a setup repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListByProfile returns every recorded step row for the profile.
func (r *Repository) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.SetupProgress, error) {
	var rows []models.SetupProgress
	err := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindStepForUpdate loads one step row and locks it for the transaction.
// Callers must be inside a transaction; the lock holds until it commits.
func (r *Repository) FindStepForUpdate(ctx context.Context, profileID uuid.UUID, step enums.SetupStep) (*models.SetupProgress, error) {
	var row models.SetupProgress
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&row, "profile_id = ? AND step = ?", profileID, step).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Create inserts a step row.
func (r *Repository) Create(ctx context.Context, row *models.SetupProgress) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// Update applies the field map to the step row.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.SetupProgress{}).
		Where("id = ?", id).
		Updates(updates).Error
}

package verification

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	"github.com/revibe-app/revibe-backend/pkg/pagination"
)

// Repository exposes brand verification persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a verification repo bound to the provided GORM DB.
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

// ListQuery is one verification page request. ProfileID scopes to one
// applicant; admins leave it nil to see the whole queue.
type ListQuery struct {
	Pagination pagination.Params
	ProfileID  *uuid.UUID
	Status     *enums.VerificationStatus
}

// List returns one page ordered newest first plus the cursor for the next
// page, empty when this is the last one.
func (r *Repository) List(ctx context.Context, query ListQuery) ([]models.BrandVerificationRequest, string, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	cursor, err := pagination.Parse(query.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).Model(&models.BrandVerificationRequest{})
	if query.ProfileID != nil {
		qb = qb.Where("profile_id = ?", *query.ProfileID)
	}
	if query.Status != nil {
		qb = qb.Where("verification_status = ?", *query.Status)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.BrandVerificationRequest
	err = qb.Order("created_at DESC").Order("id DESC").
		Limit(pagination.FetchSize(query.Pagination.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	return rows, nextCursor, nil
}

// FindByID loads one verification request.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.BrandVerificationRequest, error) {
	var request models.BrandVerificationRequest
	err := r.db.WithContext(ctx).First(&request, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// FindByIDForUpdate loads one verification request with a row lock.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.BrandVerificationRequest, error) {
	var request models.BrandVerificationRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&request, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// HasPendingRequest reports whether the profile already has an application
// waiting for review.
func (r *Repository) HasPendingRequest(ctx context.Context, profileID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BrandVerificationRequest{}).
		Where("profile_id = ? AND verification_status = ?", profileID, enums.VerificationStatusPending).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new verification request.
func (r *Repository) Create(ctx context.Context, request *models.BrandVerificationRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

// Update applies a column map to one verification request.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.BrandVerificationRequest{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// FindProfileForUpdate loads the applicant's profile with a row lock. The
// verified flag flip and the submit-time checks both read it.
func (r *Repository) FindProfileForUpdate(ctx context.Context, profileID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&profile, "id = ?", profileID).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile applies a column map to one profile.
func (r *Repository) UpdateProfile(ctx context.Context, profileID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", profileID).
		Updates(updates).Error
}

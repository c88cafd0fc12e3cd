package profiles

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/revibe-app/revibe-backend/pkg/db/models"
)

// Repository exposes profile persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a profiles repo bound to the provided GORM DB.
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

// FindByID loads a profile by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByUserID loads the profile owned by the given user.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByUserIDForUpdate loads the user's profile under a row lock. Callers
// must be inside a transaction.
func (r *Repository) FindByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&profile, "user_id = ?", userID).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByUsername loads a profile by its unique username.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "username = ?", username).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// Update applies the field map to the profile row.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// FindStats loads the denormalized counters row for a profile.
func (r *Repository) FindStats(ctx context.Context, profileID uuid.UUID) (*models.ProfileStats, error) {
	var stats models.ProfileStats
	if err := r.db.WithContext(ctx).First(&stats, "profile_id = ?", profileID).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

// CreateSocialAccount inserts a social media account row.
func (r *Repository) CreateSocialAccount(ctx context.Context, account *models.SocialMediaAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// FindSocialAccount loads one social media account by id.
func (r *Repository) FindSocialAccount(ctx context.Context, id uuid.UUID) (*models.SocialMediaAccount, error) {
	var account models.SocialMediaAccount
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// ListSocialAccounts returns the profile's linked handles ordered by platform.
func (r *Repository) ListSocialAccounts(ctx context.Context, profileID uuid.UUID) ([]models.SocialMediaAccount, error) {
	var accounts []models.SocialMediaAccount
	err := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("platform asc").
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// DeleteSocialAccount removes a social media account row.
func (r *Repository) DeleteSocialAccount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.SocialMediaAccount{}, "id = ?", id).Error
}

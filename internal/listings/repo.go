package listings

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	"github.com/revibe-app/revibe-backend/pkg/pagination"
)

// Repository exposes listing persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a listings repo bound to the provided GORM DB.
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

// BrowseFilters narrow a listings page. Nil fields mean no clause.
type BrowseFilters struct {
	CategoryID      *uuid.UUID
	SellerProfileID *uuid.UUID
	Condition       *enums.ListingCondition
	PriceMin        *decimal.Decimal
	PriceMax        *decimal.Decimal
	Query           string
}

// ListQuery is one browse page request. PublicStatuses and ViewerProfileID
// together form the visibility prefilter: a row must hold a public status or
// belong to the viewer. Leaving both zero (admin) drops the clause; the
// policy registry stays the source of truth either way.
type ListQuery struct {
	Pagination      pagination.Params
	Filters         BrowseFilters
	PublicStatuses  []enums.ListingStatus
	ViewerProfileID *uuid.UUID
}

// List returns one page ordered newest first plus the cursor for the next
// page, empty when this is the last one.
func (r *Repository) List(ctx context.Context, query ListQuery) ([]models.Listing, string, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	cursor, err := pagination.Parse(query.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).Model(&models.Listing{})

	filter := query.Filters
	if filter.CategoryID != nil {
		qb = qb.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.SellerProfileID != nil {
		qb = qb.Where("seller_profile_id = ?", *filter.SellerProfileID)
	}
	if filter.Condition != nil {
		qb = qb.Where("condition = ?", *filter.Condition)
	}
	if filter.PriceMin != nil {
		qb = qb.Where("price >= ?", *filter.PriceMin)
	}
	if filter.PriceMax != nil {
		qb = qb.Where("price <= ?", *filter.PriceMax)
	}
	if search := strings.TrimSpace(filter.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(title) LIKE ? OR LOWER(brand) LIKE ?)", pattern, pattern)
	}

	switch {
	case len(query.PublicStatuses) > 0 && query.ViewerProfileID != nil:
		qb = qb.Where("(status IN ? OR seller_profile_id = ?)", query.PublicStatuses, *query.ViewerProfileID)
	case len(query.PublicStatuses) > 0:
		qb = qb.Where("status IN ?", query.PublicStatuses)
	}

	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Listing
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

// FindByID loads one listing.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.WithContext(ctx).First(&listing, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// FindByIDForUpdate loads one listing and locks it for the transaction.
// Callers must be inside a transaction; the lock holds until it commits.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&listing, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// Create inserts a listing row.
func (r *Repository) Create(ctx context.Context, listing *models.Listing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

// Update applies the field map to the listing row.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// Delete removes the listing row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Listing{}).Error
}

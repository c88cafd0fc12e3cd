package storage

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/pagination"
)

// Repository exposes bucket registry and object metadata persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a storage repo bound to the provided GORM DB.
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

// Buckets returns the whole bucket registry. Five rows in practice, seeded
// by migration.
func (r *Repository) Buckets(ctx context.Context) ([]models.StorageBucket, error) {
	var buckets []models.StorageBucket
	err := r.db.WithContext(ctx).Order("name ASC").Find(&buckets).Error
	if err != nil {
		return nil, err
	}
	return buckets, nil
}

// FindBucket loads one bucket's rules.
func (r *Repository) FindBucket(ctx context.Context, name string) (*models.StorageBucket, error) {
	var bucket models.StorageBucket
	err := r.db.WithContext(ctx).First(&bucket, "name = ?", name).Error
	if err != nil {
		return nil, err
	}
	return &bucket, nil
}

// ListQuery is one object page request. OwnerUserID scopes to one owner;
// admins leave it nil to see everything.
type ListQuery struct {
	Pagination  pagination.Params
	Bucket      *string
	OwnerUserID *uuid.UUID
}

// ListObjects returns one page ordered newest first plus the cursor for the
// next page, empty when this is the last one.
func (r *Repository) ListObjects(ctx context.Context, query ListQuery) ([]models.StorageObject, string, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	cursor, err := pagination.Parse(query.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).Model(&models.StorageObject{})
	if query.Bucket != nil {
		qb = qb.Where("bucket = ?", *query.Bucket)
	}
	if query.OwnerUserID != nil {
		qb = qb.Where("owner_user_id = ?", *query.OwnerUserID)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.StorageObject
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

// FindObjectByID loads one object row.
func (r *Repository) FindObjectByID(ctx context.Context, id uuid.UUID) (*models.StorageObject, error) {
	var object models.StorageObject
	err := r.db.WithContext(ctx).First(&object, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &object, nil
}

// FindObjectByIDForUpdate loads one object row with a row lock so delete and
// a racing delete serialize.
func (r *Repository) FindObjectByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.StorageObject, error) {
	var object models.StorageObject
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&object, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &object, nil
}

// CreateObject inserts one object metadata row.
func (r *Repository) CreateObject(ctx context.Context, object *models.StorageObject) error {
	return r.db.WithContext(ctx).Create(object).Error
}

// DeleteObject removes one object metadata row.
func (r *Repository) DeleteObject(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.StorageObject{}, "id = ?", id).Error
}

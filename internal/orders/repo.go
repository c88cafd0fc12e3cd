package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	"github.com/revibe-app/revibe-backend/pkg/pagination"
)

// Repository exposes order and shipment persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an orders repo bound to the provided GORM DB.
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

// ListQuery is one order page request. PartyProfileID matches either side of
// the order; BuyerProfileID and SellerProfileID pin one side. Leaving all
// three nil (admin) drops the ownership clause; the policy registry stays the
// source of truth either way.
type ListQuery struct {
	Pagination      pagination.Params
	PartyProfileID  *uuid.UUID
	BuyerProfileID  *uuid.UUID
	SellerProfileID *uuid.UUID
	Status          *enums.OrderStatus
}

// List returns one page ordered newest first plus the cursor for the next
// page, empty when this is the last one.
func (r *Repository) List(ctx context.Context, query ListQuery) ([]models.Order, string, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	cursor, err := pagination.Parse(query.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).Model(&models.Order{})

	switch {
	case query.PartyProfileID != nil:
		qb = qb.Where("(buyer_profile_id = ? OR seller_profile_id = ?)", *query.PartyProfileID, *query.PartyProfileID)
	case query.BuyerProfileID != nil:
		qb = qb.Where("buyer_profile_id = ?", *query.BuyerProfileID)
	case query.SellerProfileID != nil:
		qb = qb.Where("seller_profile_id = ?", *query.SellerProfileID)
	}
	if query.Status != nil {
		qb = qb.Where("status = ?", *query.Status)
	}

	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
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

// FindByID loads one order with its shipments.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Shipments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate loads one order and locks it for the transaction.
// Callers must be inside a transaction; the lock holds until it commits.
// Shipments are not loaded here; lock the child rows separately.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Create inserts an order row.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// Update applies the field map to the order row.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// CreateShipment inserts a shipment row.
func (r *Repository) CreateShipment(ctx context.Context, shipment *models.OrderShipment) error {
	return r.db.WithContext(ctx).Create(shipment).Error
}

// FindShipmentForUpdate loads one shipment and locks it for the transaction.
// Lock the parent order first so writers always take locks in the same order.
func (r *Repository) FindShipmentForUpdate(ctx context.Context, id uuid.UUID) (*models.OrderShipment, error) {
	var shipment models.OrderShipment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&shipment, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

// ListShipments returns an order's shipments oldest first.
func (r *Repository) ListShipments(ctx context.Context, orderID uuid.UUID) ([]models.OrderShipment, error) {
	var rows []models.OrderShipment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// UpdateShipment applies the field map to the shipment row.
func (r *Repository) UpdateShipment(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderShipment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

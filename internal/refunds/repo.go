package refunds

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	"github.com/revibe-app/revibe-backend/pkg/pagination"
)

// Repository exposes refund request persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a refunds repo bound to the provided GORM DB.
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

// ListQuery is one refund request page request. PartyProfileID matches either
// side of the order behind the request; leaving it nil (admin) drops the
// clause.
type ListQuery struct {
	Pagination     pagination.Params
	PartyProfileID *uuid.UUID
	OrderID        *uuid.UUID
	Status         *enums.RefundRequestStatus
}

// List returns one page ordered newest first plus the cursor for the next
// page, empty when this is the last one.
func (r *Repository) List(ctx context.Context, query ListQuery) ([]models.RefundRequest, string, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	cursor, err := pagination.Parse(query.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).Model(&models.RefundRequest{})
	if query.PartyProfileID != nil {
		qb = qb.Joins("JOIN orders ON orders.id = refund_requests.order_id").
			Where("(orders.buyer_profile_id = ? OR orders.seller_profile_id = ?)",
				*query.PartyProfileID, *query.PartyProfileID)
	}
	if query.OrderID != nil {
		qb = qb.Where("refund_requests.order_id = ?", *query.OrderID)
	}
	if query.Status != nil {
		qb = qb.Where("refund_requests.status = ?", *query.Status)
	}
	if cursor != nil {
		qb = qb.Where("(refund_requests.created_at < ?) OR (refund_requests.created_at = ? AND refund_requests.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.RefundRequest
	err = qb.Order("refund_requests.created_at DESC").Order("refund_requests.id DESC").
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

// FindByID loads one refund request.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error) {
	var refund models.RefundRequest
	err := r.db.WithContext(ctx).First(&refund, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

// FindByIDForUpdate loads one refund request and locks it for the
// transaction.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error) {
	var refund models.RefundRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&refund, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

// HasPendingRefund reports whether the order already has an undecided refund
// request.
func (r *Repository) HasPendingRefund(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RefundRequest{}).
		Where("order_id = ? AND status = ?", orderID, enums.RefundRequestStatusPending).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a refund request row.
func (r *Repository) Create(ctx context.Context, refund *models.RefundRequest) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

// Update applies the field map to the refund request row.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.RefundRequest{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// FindOrder loads the order a refund request hangs off.
func (r *Repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindOrderForUpdate locks the order row so concurrent requests on the same
// order serialize on the pending probe.
func (r *Repository) FindOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindReturn loads a return row for reference validation.
func (r *Repository) FindReturn(ctx context.Context, id uuid.UUID) (*models.Return, error) {
	var ret models.Return
	err := r.db.WithContext(ctx).First(&ret, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// OrdersByID batch-loads the orders behind one page of refund requests,
// keyed by id.
func (r *Repository) OrdersByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Order, error) {
	out := make(map[uuid.UUID]*models.Order, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Order
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

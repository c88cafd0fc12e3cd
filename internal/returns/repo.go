package returns

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/revibe-app/revibe-backend/internal/lifecycle"
	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	"github.com/revibe-app/revibe-backend/pkg/pagination"
)

// activeReturnStatuses are the states the one-live-return-per-order probe
// counts. Derived from the machine so terminality stays defined in one place.
var activeReturnStatuses = func() []enums.ReturnStatus {
	var out []enums.ReturnStatus
	for _, status := range enums.ReturnStatuses() {
		if !lifecycle.Returns().IsTerminal(status) {
			out = append(out, status)
		}
	}
	return out
}()

// Repository exposes return persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a returns repo bound to the provided GORM DB.
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

// ListQuery is one returns page request. PartyProfileID matches the
// requester or the order's seller; leaving it nil (admin) drops the clause.
type ListQuery struct {
	Pagination     pagination.Params
	PartyProfileID *uuid.UUID
	OrderID        *uuid.UUID
	Status         *enums.ReturnStatus
}

// List returns one page ordered newest first plus the cursor for the next
// page, empty when this is the last one. The seller side of the scope needs
// the order row, hence the join.
func (r *Repository) List(ctx context.Context, query ListQuery) ([]models.Return, string, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	cursor, err := pagination.Parse(query.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).Model(&models.Return{})
	if query.PartyProfileID != nil {
		qb = qb.Joins("JOIN orders ON orders.id = returns.order_id").
			Where("(returns.requester_profile_id = ? OR orders.seller_profile_id = ?)",
				*query.PartyProfileID, *query.PartyProfileID)
	}
	if query.OrderID != nil {
		qb = qb.Where("returns.order_id = ?", *query.OrderID)
	}
	if query.Status != nil {
		qb = qb.Where("returns.status = ?", *query.Status)
	}
	if cursor != nil {
		qb = qb.Where("(returns.created_at < ?) OR (returns.created_at = ? AND returns.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Return
	err = qb.Order("returns.created_at DESC").Order("returns.id DESC").
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

// FindByID loads one return.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Return, error) {
	var ret models.Return
	err := r.db.WithContext(ctx).First(&ret, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// FindByIDForUpdate loads one return and locks it for the transaction.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Return, error) {
	var ret models.Return
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&ret, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// HasActiveReturn reports whether the order already has a non-terminal
// return.
func (r *Repository) HasActiveReturn(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Return{}).
		Where("order_id = ? AND status IN ?", orderID, activeReturnStatuses).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a return row.
func (r *Repository) Create(ctx context.Context, ret *models.Return) error {
	return r.db.WithContext(ctx).Create(ret).Error
}

// Update applies the field map to the return row.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Return{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// FindOrder loads the order a return hangs off.
func (r *Repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindOrderForUpdate locks the order row so concurrent requests on the same
// order serialize on the active-return probe.
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

// OrdersByID batch-loads the orders behind one page of returns, keyed by id.
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

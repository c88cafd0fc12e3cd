package disputes

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

// activeDisputeStatuses are the states the one-live-dispute-per-order probe
// counts. Derived from the machine so terminality stays defined in one place.
var activeDisputeStatuses = func() []enums.DisputeStatus {
	var out []enums.DisputeStatus
	for _, status := range enums.DisputeStatuses() {
		if !lifecycle.Disputes().IsTerminal(status) {
			out = append(out, status)
		}
	}
	return out
}()

// Repository exposes dispute persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a disputes repo bound to the provided GORM DB.
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

// ListQuery is one dispute page request. PartyProfileID matches either side;
// leaving it nil (admin) drops the ownership clause.
type ListQuery struct {
	Pagination     pagination.Params
	PartyProfileID *uuid.UUID
	OrderID        *uuid.UUID
	Status         *enums.DisputeStatus
}

// List returns one page ordered newest first plus the cursor for the next
// page, empty when this is the last one.
func (r *Repository) List(ctx context.Context, query ListQuery) ([]models.Dispute, string, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	cursor, err := pagination.Parse(query.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).Model(&models.Dispute{})
	if query.PartyProfileID != nil {
		qb = qb.Where("(initiator_profile_id = ? OR respondent_profile_id = ?)",
			*query.PartyProfileID, *query.PartyProfileID)
	}
	if query.OrderID != nil {
		qb = qb.Where("order_id = ?", *query.OrderID)
	}
	if query.Status != nil {
		qb = qb.Where("status = ?", *query.Status)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Dispute
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

// FindByID loads one dispute.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.WithContext(ctx).First(&dispute, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

// FindByIDForUpdate loads one dispute and locks it for the transaction.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&dispute, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

// HasActiveDispute reports whether the order already has a non-terminal
// dispute.
func (r *Repository) HasActiveDispute(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Dispute{}).
		Where("order_id = ? AND status IN ?", orderID, activeDisputeStatuses).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a dispute row.
func (r *Repository) Create(ctx context.Context, dispute *models.Dispute) error {
	return r.db.WithContext(ctx).Create(dispute).Error
}

// Update applies the field map to the dispute row.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Dispute{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// FindOrder loads the order a dispute hangs off. Disputes never mutate the
// order row, so no lock is taken.
func (r *Repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindOrderForUpdate locks the order row so concurrent opens on the same
// order serialize on the active-dispute probe.
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

package refunds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/internal/audit"
	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/internal/hooks"
	"github.com/revibe-app/revibe-backend/internal/orders"
	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
	"github.com/revibe-app/revibe-backend/pkg/pagination"
	"github.com/revibe-app/revibe-backend/pkg/types"
)

// Service takes refund requests from order parties and walks them through
// the admin decision. Processing an approved request is what actually moves
// the order and its payment to refunded.
type Service interface {
	Request(ctx context.Context, input RequestInput) (*RefundRequestDTO, error)
	List(ctx context.Context, actor authz.Principal, input ListInput) (*RefundRequestPage, error)
	Get(ctx context.Context, actor authz.Principal, id uuid.UUID) (*RefundRequestDTO, error)
	Approve(ctx context.Context, input DecisionInput) (*RefundRequestDTO, error)
	Reject(ctx context.Context, input DecisionInput) (*RefundRequestDTO, error)
	Process(ctx context.Context, input DecisionInput) (*RefundRequestDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type hookRunner interface {
	Run(ctx context.Context, tx *gorm.DB, phase hooks.Phase, ev *hooks.Event) error
}

type adminTrail interface {
	RecordAction(ctx context.Context, tx *gorm.DB, in audit.ActionInput) error
}

// orderRefunder is the slice of the orders service processing needs.
type orderRefunder interface {
	AdminRefund(ctx context.Context, input orders.AdminActionInput) (*orders.OrderDTO, error)
}

type service struct {
	repo     *Repository
	orders   orderRefunder
	tx       txRunner
	registry *authz.Registry
	hooks    hookRunner
	trail    adminTrail
	now      func() time.Time
}

// ServiceParams bundles the dependencies for the refunds service.
type ServiceParams struct {
	Repo     *Repository
	Orders   orderRefunder
	TxRunner txRunner
	Registry *authz.Registry
	Hooks    hookRunner
	Trail    adminTrail
}

// NewService constructs a refunds service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("refunds repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("authz registry required")
	}
	if params.Hooks == nil {
		return nil, fmt.Errorf("hook engine required")
	}
	if params.Trail == nil {
		return nil, fmt.Errorf("audit trail required")
	}
	return &service{
		repo:     params.Repo,
		orders:   params.Orders,
		tx:       params.TxRunner,
		registry: params.Registry,
		hooks:    params.Hooks,
		trail:    params.Trail,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// RequestInput asks for money back on an order, optionally tied to a return.
type RequestInput struct {
	Actor    authz.Principal `json:"-"`
	OrderID  uuid.UUID       `json:"order_id" validate:"required"`
	ReturnID *uuid.UUID      `json:"return_id,omitempty"`
	Amount   decimal.Decimal `json:"amount" validate:"required"`
}

// ListInput selects one page of refund requests.
type ListInput struct {
	Pagination pagination.Params
	OrderID    *uuid.UUID
	Status     string
}

// DecisionInput carries an admin decision on a refund request.
type DecisionInput struct {
	Actor    authz.Principal `json:"-"`
	RefundID uuid.UUID       `json:"-"`
	Note     *string         `json:"note,omitempty" validate:"omitempty,max=500"`
}

func (s *service) Request(ctx context.Context, input RequestInput) (*RefundRequestDTO, error) {
	actor := input.Actor
	if !actor.Authenticated {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	var refund *models.RefundRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// The order lock serializes concurrent requests on the probe below.
		order, err := repo.FindOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !s.registry.CanSelect(actor, authz.TableOrders, order) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if !actor.HasProfile() ||
			(order.BuyerProfileID != actor.ProfileID && order.SellerProfileID != actor.ProfileID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only an order party requests a refund")
		}
		if order.PaymentStatus != enums.PaymentStatusSucceeded {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no settled payment to refund")
		}
		if input.Amount.GreaterThan(order.Total) {
			return pkgerrors.New(pkgerrors.CodeValidation, "refund amount exceeds the order total")
		}
		if input.ReturnID != nil {
			ret, err := repo.FindReturn(ctx, *input.ReturnID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "return not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return")
			}
			if ret.OrderID != order.ID {
				return pkgerrors.New(pkgerrors.CodeValidation, "return does not belong to the order")
			}
		}
		pending, err := repo.HasPendingRefund(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "probe refund requests")
		}
		if pending {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already has a pending refund request")
		}

		refund = &models.RefundRequest{
			ID:                 uuid.New(),
			OrderID:            order.ID,
			ReturnID:           input.ReturnID,
			RequesterProfileID: actor.ProfileID,
			Amount:             input.Amount,
			Status:             enums.RefundRequestStatusPending,
		}
		row := authz.RefundRequestRow{Refund: refund, Order: order}
		if err := s.registry.Authorize(actor, authz.OpInsert, authz.TableRefundRequests, row); err != nil {
			return err
		}
		if err := repo.Create(ctx, refund); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create refund request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(refund)
	return &dto, nil
}

func (s *service) List(ctx context.Context, actor authz.Principal, input ListInput) (*RefundRequestPage, error) {
	if !actor.Authenticated {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	query := ListQuery{Pagination: input.Pagination, OrderID: input.OrderID}
	if !actor.IsAdmin() {
		if !actor.HasProfile() {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
		}
		party := actor.ProfileID
		query.PartyProfileID = &party
	}
	if input.Status != "" {
		status, err := enums.ParseRefundRequestStatus(input.Status)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		query.Status = &status
	}

	rows, nextCursor, err := s.repo.List(ctx, query)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list refund requests")
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for i := range rows {
		ids = append(ids, rows[i].OrderID)
	}
	ordersByID, err := s.repo.OrdersByID(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund orders")
	}
	visible := authz.Filter(s.registry, actor, authz.TableRefundRequests, rows, func(refund models.RefundRequest) any {
		r := refund
		return authz.RefundRequestRow{Refund: &r, Order: ordersByID[refund.OrderID]}
	})
	return &RefundRequestPage{Refunds: fromModels(visible), NextCursor: nextCursor}, nil
}

func (s *service) Get(ctx context.Context, actor authz.Principal, id uuid.UUID) (*RefundRequestDTO, error) {
	refund, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund request")
	}
	order, err := s.repo.FindOrder(ctx, refund.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund order")
	}
	if !s.registry.CanSelect(actor, authz.TableRefundRequests, authz.RefundRequestRow{Refund: refund, Order: order}) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund request not found")
	}
	dto := fromModel(refund)
	return &dto, nil
}

// Approve accepts a pending refund request. The money does not move until
// Process.
func (s *service) Approve(ctx context.Context, input DecisionInput) (*RefundRequestDTO, error) {
	return s.decide(ctx, input, enums.RefundRequestStatusApproved, "refund.approve")
}

// Reject declines a pending refund request.
func (s *service) Reject(ctx context.Context, input DecisionInput) (*RefundRequestDTO, error) {
	return s.decide(ctx, input, enums.RefundRequestStatusRejected, "refund.reject")
}

func (s *service) decide(ctx context.Context, input DecisionInput, target enums.RefundRequestStatus, action string) (*RefundRequestDTO, error) {
	actor := input.Actor
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	var refund *models.RefundRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, order, err := s.lockRefund(ctx, repo, actor, input.RefundID)
		if err != nil {
			return err
		}
		refund = loaded
		if refund.Status != enums.RefundRequestStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund request has already been decided")
		}
		if err := s.updateRefund(ctx, tx, repo, actor, refund, order, map[string]any{"status": target}, target, nil); err != nil {
			return err
		}
		return s.recordRefundAction(ctx, tx, actor, refund, action, input.Note)
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(refund)
	return &dto, nil
}

// Process pays an approved request back. The order flip runs first in the
// orders service's own transaction, so order and payment move together with
// their audit entry; a request whose order is already refunded skips that
// step, which makes Process safe to retry.
func (s *service) Process(ctx context.Context, input DecisionInput) (*RefundRequestDTO, error) {
	actor := input.Actor
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	refund, err := s.repo.FindByID(ctx, input.RefundID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund request")
	}
	if refund.Status == enums.RefundRequestStatusProcessed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "refund request already processed")
	}
	if refund.Status != enums.RefundRequestStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "refund request is not approved")
	}

	order, err := s.repo.FindOrder(ctx, refund.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund order")
	}
	if order.PaymentStatus != enums.PaymentStatusRefunded {
		note := fmt.Sprintf("refund request %s", refund.ID)
		if _, err := s.orders.AdminRefund(ctx, orders.AdminActionInput{
			Actor:   actor,
			OrderID: refund.OrderID,
			Note:    &note,
		}); err != nil {
			return nil, err
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, lockedOrder, err := s.lockRefund(ctx, repo, actor, refund.ID)
		if err != nil {
			return err
		}
		refund = locked
		if refund.Status != enums.RefundRequestStatusApproved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund request already processed")
		}
		processedAt := s.now()
		updates := map[string]any{
			"status":       enums.RefundRequestStatusProcessed,
			"processed_at": processedAt,
		}
		if err := s.updateRefund(ctx, tx, repo, actor, refund, lockedOrder, updates, enums.RefundRequestStatusProcessed, &processedAt); err != nil {
			return err
		}
		return s.recordRefundAction(ctx, tx, actor, refund, "refund.process", input.Note)
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(refund)
	return &dto, nil
}

func (s *service) lockRefund(ctx context.Context, repo *Repository, actor authz.Principal, id uuid.UUID) (*models.RefundRequest, *models.Order, error) {
	refund, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund request not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund request")
	}
	order, err := repo.FindOrder(ctx, refund.OrderID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund order")
	}
	if !s.registry.CanSelect(actor, authz.TableRefundRequests, authz.RefundRequestRow{Refund: refund, Order: order}) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund request not found")
	}
	return refund, order, nil
}

// updateRefund runs the policy check and the update hook phases around the
// row write. Refund requests have no machine; the callers hold the
// pending→approved/rejected→processed sequencing.
func (s *service) updateRefund(ctx context.Context, tx *gorm.DB, repo *Repository, actor authz.Principal, refund *models.RefundRequest, order *models.Order, updates map[string]any, target enums.RefundRequestStatus, processedAt *time.Time) error {
	row := authz.RefundRequestRow{Refund: refund, Order: order}
	if err := s.registry.Authorize(actor, authz.OpUpdate, authz.TableRefundRequests, row); err != nil {
		return err
	}

	old := *refund
	refund.Status = target
	if processedAt != nil {
		refund.ProcessedAt = processedAt
	}
	ev := &hooks.Event{Table: authz.TableRefundRequests, Op: hooks.OpUpdate, Row: refund, Old: &old}
	if err := s.hooks.Run(ctx, tx, hooks.PhaseBefore, ev); err != nil {
		return err
	}
	updates["updated_at"] = refund.UpdatedAt
	if err := repo.Update(ctx, refund.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update refund request")
	}
	return nil
}

func (s *service) recordRefundAction(ctx context.Context, tx *gorm.DB, actor authz.Principal, refund *models.RefundRequest, action string, note *string) error {
	detail := types.JSONMap{
		"order_id": refund.OrderID.String(),
		"amount":   refund.Amount.String(),
	}
	if note != nil && *note != "" {
		detail["note"] = *note
	}
	recordID := refund.ID
	return s.trail.RecordAction(ctx, tx, audit.ActionInput{
		Actor:       actor,
		Action:      action,
		TargetTable: authz.TableRefundRequests,
		RecordID:    &recordID,
		Detail:      detail,
	})
}

package returns

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/internal/audit"
	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/internal/hooks"
	"github.com/revibe-app/revibe-backend/internal/lifecycle"
	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
	"github.com/revibe-app/revibe-backend/pkg/pagination"
	"github.com/revibe-app/revibe-backend/pkg/types"
)

// returnableStatuses are the order states a return may be requested in.
// Before delivery there is nothing to send back.
var returnableStatuses = []enums.OrderStatus{
	enums.OrderStatusDelivered,
	enums.OrderStatusCompleted,
}

// Service walks a return through request, seller decision, the trip back,
// inspection, and close. The money side lives with refund requests; a return
// reaching the refunded state is what makes one processable.
type Service interface {
	Request(ctx context.Context, input RequestInput) (*ReturnDTO, error)
	List(ctx context.Context, actor authz.Principal, input ListInput) (*ReturnPage, error)
	Get(ctx context.Context, actor authz.Principal, id uuid.UUID) (*ReturnDTO, error)
	Approve(ctx context.Context, actor authz.Principal, id uuid.UUID) (*ReturnDTO, error)
	Reject(ctx context.Context, input RejectInput) (*ReturnDTO, error)
	MarkShippedBack(ctx context.Context, actor authz.Principal, id uuid.UUID) (*ReturnDTO, error)
	MarkReceived(ctx context.Context, actor authz.Principal, id uuid.UUID) (*ReturnDTO, error)
	StartInspection(ctx context.Context, actor authz.Principal, id uuid.UUID) (*ReturnDTO, error)
	CompleteInspection(ctx context.Context, input InspectionInput) (*ReturnDTO, error)
	Close(ctx context.Context, actor authz.Principal, id uuid.UUID) (*ReturnDTO, error)
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

type service struct {
	repo     *Repository
	tx       txRunner
	registry *authz.Registry
	hooks    hookRunner
	trail    adminTrail
}

// ServiceParams bundles the dependencies for the returns service.
type ServiceParams struct {
	Repo     *Repository
	TxRunner txRunner
	Registry *authz.Registry
	Hooks    hookRunner
	Trail    adminTrail
}

// NewService constructs a returns service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("returns repository required")
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
		tx:       params.TxRunner,
		registry: params.Registry,
		hooks:    params.Hooks,
		trail:    params.Trail,
	}, nil
}

// RequestInput opens a return on a delivered or completed order.
type RequestInput struct {
	Actor   authz.Principal `json:"-"`
	OrderID uuid.UUID       `json:"order_id" validate:"required"`
	Reason  string          `json:"reason" validate:"required,max=500"`
}

// ListInput selects one page of returns.
type ListInput struct {
	Pagination pagination.Params
	OrderID    *uuid.UUID
	Status     string
}

// RejectInput declines a return with the reason shown to the buyer.
type RejectInput struct {
	Actor    authz.Principal `json:"-"`
	ReturnID uuid.UUID       `json:"-"`
	Reason   string          `json:"reason" validate:"required,max=500"`
}

// InspectionInput records the inspection outcome.
type InspectionInput struct {
	Actor    authz.Principal `json:"-"`
	ReturnID uuid.UUID       `json:"-"`
	Outcome  string          `json:"outcome" validate:"required,oneof=refunded replaced"`
}

func (s *service) Request(ctx context.Context, input RequestInput) (*ReturnDTO, error) {
	actor := input.Actor
	if !actor.Authenticated {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return reason is required")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var ret *models.Return
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
		if !actor.HasProfile() || order.BuyerProfileID != actor.ProfileID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer requests a return")
		}
		if !orderStatusIn(order.Status, returnableStatuses) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not in a returnable state")
		}
		active, err := repo.HasActiveReturn(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "probe returns")
		}
		if active {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already has an open return")
		}

		ret = &models.Return{
			ID:                 uuid.New(),
			OrderID:            order.ID,
			RequesterProfileID: actor.ProfileID,
			Reason:             reason,
			Status:             enums.ReturnStatusRequested,
		}
		row := authz.ReturnRow{Return: ret, Order: order}
		if err := s.registry.Authorize(actor, authz.OpInsert, authz.TableReturns, row); err != nil {
			return err
		}
		if err := repo.Create(ctx, ret); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(ret)
	return &dto, nil
}

func (s *service) List(ctx context.Context, actor authz.Principal, input ListInput) (*ReturnPage, error) {
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
		status, err := enums.ParseReturnStatus(input.Status)
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list returns")
	}

	// The select policy reads the order row, so the page's orders come along
	// for the filter.
	ids := make([]uuid.UUID, 0, len(rows))
	for i := range rows {
		ids = append(ids, rows[i].OrderID)
	}
	orders, err := s.repo.OrdersByID(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return orders")
	}
	visible := authz.Filter(s.registry, actor, authz.TableReturns, rows, func(ret models.Return) any {
		r := ret
		return authz.ReturnRow{Return: &r, Order: orders[ret.OrderID]}
	})
	return &ReturnPage{Returns: fromModels(visible), NextCursor: nextCursor}, nil
}

func (s *service) Get(ctx context.Context, actor authz.Principal, id uuid.UUID) (*ReturnDTO, error) {
	ret, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return")
	}
	order, err := s.repo.FindOrder(ctx, ret.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return order")
	}
	// Returns look absent to anyone outside the order.
	if !s.registry.CanSelect(actor, authz.TableReturns, authz.ReturnRow{Return: ret, Order: order}) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return not found")
	}
	dto := fromModel(ret)
	return &dto, nil
}

// Approve accepts the return; the buyer may ship the item back from here.
func (s *service) Approve(ctx context.Context, actor authz.Principal, id uuid.UUID) (*ReturnDTO, error) {
	return s.sellerStep(ctx, actor, id, enums.ReturnStatusApproved, nil)
}

// Reject declines the return with a reason the buyer sees.
func (s *service) Reject(ctx context.Context, input RejectInput) (*ReturnDTO, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a decline reason is required")
	}
	return s.sellerStep(ctx, input.Actor, input.ReturnID, enums.ReturnStatusRejected, &reason)
}

// MarkShippedBack records that the buyer handed the item to a carrier.
func (s *service) MarkShippedBack(ctx context.Context, actor authz.Principal, id uuid.UUID) (*ReturnDTO, error) {
	var ret *models.Return
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, order, err := s.lockReturn(ctx, repo, actor, id)
		if err != nil {
			return err
		}
		ret = loaded
		if !actor.HasProfile() || ret.RequesterProfileID != actor.ProfileID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the requester ships a return back")
		}
		return s.moveReturn(ctx, tx, repo, actor, ret, order, enums.ReturnStatusShippedBack, nil)
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(ret)
	return &dto, nil
}

// MarkReceived records that the item arrived back with the seller.
func (s *service) MarkReceived(ctx context.Context, actor authz.Principal, id uuid.UUID) (*ReturnDTO, error) {
	return s.sellerStep(ctx, actor, id, enums.ReturnStatusReceived, nil)
}

// StartInspection opens the seller's look at the returned item.
func (s *service) StartInspection(ctx context.Context, actor authz.Principal, id uuid.UUID) (*ReturnDTO, error) {
	return s.sellerStep(ctx, actor, id, enums.ReturnStatusInspecting, nil)
}

// CompleteInspection records the outcome: refunded puts the money side in
// motion, replaced means a like-for-like swap. Sellers decide their own
// inspections; admins step in when a dispute forces the outcome.
func (s *service) CompleteInspection(ctx context.Context, input InspectionInput) (*ReturnDTO, error) {
	actor := input.Actor
	var target enums.ReturnStatus
	switch input.Outcome {
	case "refunded":
		target = enums.ReturnStatusRefunded
	case "replaced":
		target = enums.ReturnStatusReplaced
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outcome must be refunded or replaced")
	}

	var ret *models.Return
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, order, err := s.lockReturn(ctx, repo, actor, input.ReturnID)
		if err != nil {
			return err
		}
		ret = loaded
		if !actor.IsAdmin() && (!actor.HasProfile() || order.SellerProfileID != actor.ProfileID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller or an admin completes an inspection")
		}
		if err := s.moveReturn(ctx, tx, repo, actor, ret, order, target, nil); err != nil {
			return err
		}
		if actor.IsAdmin() {
			return s.recordReturnAction(ctx, tx, actor, ret, "return.inspect",
				types.JSONMap{"outcome": input.Outcome})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(ret)
	return &dto, nil
}

// Close files away a settled return.
func (s *service) Close(ctx context.Context, actor authz.Principal, id uuid.UUID) (*ReturnDTO, error) {
	var ret *models.Return
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, order, err := s.lockReturn(ctx, repo, actor, id)
		if err != nil {
			return err
		}
		ret = loaded
		if !actor.IsAdmin() && (!actor.HasProfile() || order.SellerProfileID != actor.ProfileID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller or an admin closes a return")
		}
		if err := s.moveReturn(ctx, tx, repo, actor, ret, order, enums.ReturnStatusClosed, nil); err != nil {
			return err
		}
		if actor.IsAdmin() {
			return s.recordReturnAction(ctx, tx, actor, ret, "return.close", nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(ret)
	return &dto, nil
}

// sellerStep is the shared shape of the decisions only the seller makes.
func (s *service) sellerStep(ctx context.Context, actor authz.Principal, id uuid.UUID, target enums.ReturnStatus, declineReason *string) (*ReturnDTO, error) {
	var ret *models.Return
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, order, err := s.lockReturn(ctx, repo, actor, id)
		if err != nil {
			return err
		}
		ret = loaded
		if !actor.HasProfile() || order.SellerProfileID != actor.ProfileID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller decides a return")
		}
		return s.moveReturn(ctx, tx, repo, actor, ret, order, target, declineReason)
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(ret)
	return &dto, nil
}

// lockReturn loads and locks the return plus the order it hangs off, which
// carries the seller mapping the step gates need.
func (s *service) lockReturn(ctx context.Context, repo *Repository, actor authz.Principal, id uuid.UUID) (*models.Return, *models.Order, error) {
	ret, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "return not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return")
	}
	order, err := repo.FindOrder(ctx, ret.OrderID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return order")
	}
	if !s.registry.CanSelect(actor, authz.TableReturns, authz.ReturnRow{Return: ret, Order: order}) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "return not found")
	}
	return ret, order, nil
}

// moveReturn runs the machine, the policy check, and the update hook phases
// around the status write.
func (s *service) moveReturn(ctx context.Context, tx *gorm.DB, repo *Repository, actor authz.Principal, ret *models.Return, order *models.Order, target enums.ReturnStatus, declineReason *string) error {
	if err := lifecycle.Returns().Transition(ret.Status, target); err != nil {
		return err
	}
	row := authz.ReturnRow{Return: ret, Order: order}
	if err := s.registry.Authorize(actor, authz.OpUpdate, authz.TableReturns, row); err != nil {
		return err
	}

	old := *ret
	ret.Status = target
	if declineReason != nil {
		ret.DeclineReason = declineReason
	}
	ev := &hooks.Event{Table: authz.TableReturns, Op: hooks.OpUpdate, Row: ret, Old: &old}
	if err := s.hooks.Run(ctx, tx, hooks.PhaseBefore, ev); err != nil {
		return err
	}
	updates := map[string]any{
		"status":     ret.Status,
		"updated_at": ret.UpdatedAt,
	}
	if declineReason != nil {
		updates["decline_reason"] = ret.DeclineReason
	}
	if err := repo.Update(ctx, ret.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update return")
	}
	return nil
}

func (s *service) recordReturnAction(ctx context.Context, tx *gorm.DB, actor authz.Principal, ret *models.Return, action string, detail types.JSONMap) error {
	if detail == nil {
		detail = types.JSONMap{}
	}
	detail["order_id"] = ret.OrderID.String()
	recordID := ret.ID
	return s.trail.RecordAction(ctx, tx, audit.ActionInput{
		Actor:       actor,
		Action:      action,
		TargetTable: authz.TableReturns,
		RecordID:    &recordID,
		Detail:      detail,
	})
}

func orderStatusIn(status enums.OrderStatus, set []enums.OrderStatus) bool {
	for _, candidate := range set {
		if candidate == status {
			return true
		}
	}
	return false
}

package disputes

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

// disputableStatuses are the order states a dispute may be opened in: money
// has moved and the order has not already been unwound.
var disputableStatuses = []enums.OrderStatus{
	enums.OrderStatusPaid,
	enums.OrderStatusPreparing,
	enums.OrderStatusShipped,
	enums.OrderStatusInTransit,
	enums.OrderStatusDelivered,
	enums.OrderStatusCompleted,
}

// Service moves disputes through their lifecycle. The dispute row tracks
// whose turn it is; the words themselves travel through the order
// conversation.
type Service interface {
	Open(ctx context.Context, input OpenInput) (*DisputeDTO, error)
	List(ctx context.Context, actor authz.Principal, input ListInput) (*DisputePage, error)
	Get(ctx context.Context, actor authz.Principal, id uuid.UUID) (*DisputeDTO, error)
	Respond(ctx context.Context, actor authz.Principal, id uuid.UUID) (*DisputeDTO, error)
	Withdraw(ctx context.Context, actor authz.Principal, id uuid.UUID) (*DisputeDTO, error)
	RequestResponse(ctx context.Context, input RequestResponseInput) (*DisputeDTO, error)
	Escalate(ctx context.Context, input DecisionInput) (*DisputeDTO, error)
	Resolve(ctx context.Context, input DecisionInput) (*DisputeDTO, error)
	Close(ctx context.Context, input DecisionInput) (*DisputeDTO, error)
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

// ServiceParams bundles the dependencies for the disputes service.
type ServiceParams struct {
	Repo     *Repository
	TxRunner txRunner
	Registry *authz.Registry
	Hooks    hookRunner
	Trail    adminTrail
}

// NewService constructs a disputes service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("disputes repository required")
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

// OpenInput opens a dispute against the other party of an order.
type OpenInput struct {
	Actor   authz.Principal `json:"-"`
	OrderID uuid.UUID       `json:"order_id" validate:"required"`
	Reason  string          `json:"reason" validate:"required,max=500"`
}

// ListInput selects one page of disputes.
type ListInput struct {
	Pagination pagination.Params
	OrderID    *uuid.UUID
	Status     string
}

// RequestResponseInput routes an open dispute to the side that must answer.
type RequestResponseInput struct {
	Actor     authz.Principal `json:"-"`
	DisputeID uuid.UUID       `json:"-"`
	From      string          `json:"from" validate:"required,oneof=buyer seller"`
}

// DecisionInput carries an admin outcome for a dispute.
type DecisionInput struct {
	Actor      authz.Principal `json:"-"`
	DisputeID  uuid.UUID       `json:"-"`
	Resolution *string         `json:"resolution,omitempty" validate:"omitempty,max=1000"`
}

func (s *service) Open(ctx context.Context, input OpenInput) (*DisputeDTO, error) {
	actor := input.Actor
	if !actor.Authenticated {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute reason is required")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var dispute *models.Dispute
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// The order lock serializes concurrent opens on the probe below.
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
		respondent, err := counterparty(order, actor)
		if err != nil {
			return err
		}
		if !orderStatusIn(order.Status, disputableStatuses) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be disputed in its current state")
		}
		active, err := repo.HasActiveDispute(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "probe disputes")
		}
		if active {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already has an open dispute")
		}

		dispute = &models.Dispute{
			ID:                  uuid.New(),
			OrderID:             order.ID,
			InitiatorProfileID:  actor.ProfileID,
			RespondentProfileID: respondent,
			Reason:              reason,
			Status:              enums.DisputeStatusOpen,
		}
		if err := s.registry.Authorize(actor, authz.OpInsert, authz.TableDisputes, dispute); err != nil {
			return err
		}
		if err := repo.Create(ctx, dispute); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create dispute")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(dispute)
	return &dto, nil
}

func (s *service) List(ctx context.Context, actor authz.Principal, input ListInput) (*DisputePage, error) {
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
		status, err := enums.ParseDisputeStatus(input.Status)
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list disputes")
	}
	visible := authz.Filter(s.registry, actor, authz.TableDisputes, rows, func(d models.Dispute) any {
		dispute := d
		return &dispute
	})
	return &DisputePage{Disputes: fromModels(visible), NextCursor: nextCursor}, nil
}

func (s *service) Get(ctx context.Context, actor authz.Principal, id uuid.UUID) (*DisputeDTO, error) {
	dispute, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispute")
	}
	// Disputes look absent to anyone who is not a party to them.
	if !s.registry.CanSelect(actor, authz.TableDisputes, dispute) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
	}
	dto := fromModel(dispute)
	return &dto, nil
}

// Respond records that a party has spoken and moves the dispute into review.
// While a specific side's response is awaited only that side may respond.
func (s *service) Respond(ctx context.Context, actor authz.Principal, id uuid.UUID) (*DisputeDTO, error) {
	var dispute *models.Dispute
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, order, err := s.lockDispute(ctx, repo, actor, id)
		if err != nil {
			return err
		}
		dispute = loaded
		if !actor.HasProfile() ||
			(order.BuyerProfileID != actor.ProfileID && order.SellerProfileID != actor.ProfileID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only an order party responds to a dispute")
		}
		switch dispute.Status {
		case enums.DisputeStatusAwaitingSellerResponse:
			if actor.ProfileID != order.SellerProfileID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "waiting on the seller")
			}
		case enums.DisputeStatusAwaitingBuyerResponse:
			if actor.ProfileID != order.BuyerProfileID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "waiting on the buyer")
			}
		}
		return s.moveDispute(ctx, tx, repo, actor, dispute, enums.DisputeStatusUnderReview, nil)
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(dispute)
	return &dto, nil
}

// Withdraw cancels a dispute before review starts. Only the initiator may
// take their dispute back.
func (s *service) Withdraw(ctx context.Context, actor authz.Principal, id uuid.UUID) (*DisputeDTO, error) {
	var dispute *models.Dispute
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, _, err := s.lockDispute(ctx, repo, actor, id)
		if err != nil {
			return err
		}
		dispute = loaded
		if !actor.HasProfile() || dispute.InitiatorProfileID != actor.ProfileID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the initiator withdraws a dispute")
		}
		return s.moveDispute(ctx, tx, repo, actor, dispute, enums.DisputeStatusCancelled, nil)
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(dispute)
	return &dto, nil
}

// RequestResponse is admin triage: it routes an open dispute to the side
// whose answer is needed.
func (s *service) RequestResponse(ctx context.Context, input RequestResponseInput) (*DisputeDTO, error) {
	actor := input.Actor
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	var target enums.DisputeStatus
	switch input.From {
	case "buyer":
		target = enums.DisputeStatusAwaitingBuyerResponse
	case "seller":
		target = enums.DisputeStatusAwaitingSellerResponse
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "side must be buyer or seller")
	}

	var dispute *models.Dispute
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, _, err := s.lockDispute(ctx, repo, actor, input.DisputeID)
		if err != nil {
			return err
		}
		dispute = loaded
		if err := s.moveDispute(ctx, tx, repo, actor, dispute, target, nil); err != nil {
			return err
		}
		return s.recordDisputeAction(ctx, tx, actor, dispute, "dispute.request_response",
			types.JSONMap{"from": input.From})
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(dispute)
	return &dto, nil
}

// Escalate moves a dispute under review to the escalation queue.
func (s *service) Escalate(ctx context.Context, input DecisionInput) (*DisputeDTO, error) {
	return s.decide(ctx, input, enums.DisputeStatusEscalated, "dispute.escalate", false)
}

// Resolve closes a dispute with a sided outcome. The resolution text is the
// record of who prevailed and why.
func (s *service) Resolve(ctx context.Context, input DecisionInput) (*DisputeDTO, error) {
	return s.decide(ctx, input, enums.DisputeStatusResolved, "dispute.resolve", true)
}

// Close ends a dispute without a sided outcome, e.g. settled between the
// parties.
func (s *service) Close(ctx context.Context, input DecisionInput) (*DisputeDTO, error) {
	return s.decide(ctx, input, enums.DisputeStatusClosed, "dispute.close", false)
}

func (s *service) decide(ctx context.Context, input DecisionInput, target enums.DisputeStatus, action string, resolutionRequired bool) (*DisputeDTO, error) {
	actor := input.Actor
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	var resolution *string
	if input.Resolution != nil {
		text := strings.TrimSpace(*input.Resolution)
		if text != "" {
			resolution = &text
		}
	}
	if resolutionRequired && resolution == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "resolution is required")
	}

	var dispute *models.Dispute
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, _, err := s.lockDispute(ctx, repo, actor, input.DisputeID)
		if err != nil {
			return err
		}
		dispute = loaded
		if err := s.moveDispute(ctx, tx, repo, actor, dispute, target, resolution); err != nil {
			return err
		}
		detail := types.JSONMap{}
		if resolution != nil {
			detail["resolution"] = *resolution
		}
		return s.recordDisputeAction(ctx, tx, actor, dispute, action, detail)
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(dispute)
	return &dto, nil
}

// lockDispute loads and locks the dispute plus the order it hangs off, which
// carries the buyer/seller mapping the turn checks need.
func (s *service) lockDispute(ctx context.Context, repo *Repository, actor authz.Principal, id uuid.UUID) (*models.Dispute, *models.Order, error) {
	dispute, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispute")
	}
	if !s.registry.CanSelect(actor, authz.TableDisputes, dispute) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
	}
	order, err := repo.FindOrder(ctx, dispute.OrderID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispute order")
	}
	return dispute, order, nil
}

// moveDispute runs the machine, the policy check, and the update hook phases
// around the status write.
func (s *service) moveDispute(ctx context.Context, tx *gorm.DB, repo *Repository, actor authz.Principal, dispute *models.Dispute, target enums.DisputeStatus, resolution *string) error {
	if err := lifecycle.Disputes().Transition(dispute.Status, target); err != nil {
		return err
	}
	if err := s.registry.Authorize(actor, authz.OpUpdate, authz.TableDisputes, dispute); err != nil {
		return err
	}

	old := *dispute
	dispute.Status = target
	if resolution != nil {
		dispute.Resolution = resolution
	}
	ev := &hooks.Event{Table: authz.TableDisputes, Op: hooks.OpUpdate, Row: dispute, Old: &old}
	if err := s.hooks.Run(ctx, tx, hooks.PhaseBefore, ev); err != nil {
		return err
	}
	updates := map[string]any{
		"status":     dispute.Status,
		"updated_at": dispute.UpdatedAt,
	}
	if resolution != nil {
		updates["resolution"] = dispute.Resolution
	}
	if err := repo.Update(ctx, dispute.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update dispute")
	}
	return nil
}

func (s *service) recordDisputeAction(ctx context.Context, tx *gorm.DB, actor authz.Principal, dispute *models.Dispute, action string, detail types.JSONMap) error {
	if detail == nil {
		detail = types.JSONMap{}
	}
	detail["order_id"] = dispute.OrderID.String()
	recordID := dispute.ID
	return s.trail.RecordAction(ctx, tx, audit.ActionInput{
		Actor:       actor,
		Action:      action,
		TargetTable: authz.TableDisputes,
		RecordID:    &recordID,
		Detail:      detail,
	})
}

func counterparty(order *models.Order, actor authz.Principal) (uuid.UUID, error) {
	if actor.HasProfile() {
		switch actor.ProfileID {
		case order.BuyerProfileID:
			return order.SellerProfileID, nil
		case order.SellerProfileID:
			return order.BuyerProfileID, nil
		}
	}
	return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "only an order party opens a dispute")
}

func orderStatusIn(status enums.OrderStatus, set []enums.OrderStatus) bool {
	for _, candidate := range set {
		if candidate == status {
			return true
		}
	}
	return false
}

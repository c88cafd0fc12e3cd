package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/internal/audit"
	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/internal/hooks"
	"github.com/revibe-app/revibe-backend/internal/lifecycle"
	"github.com/revibe-app/revibe-backend/pkg/db"
	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
	"github.com/revibe-app/revibe-backend/pkg/pagination"
	"github.com/revibe-app/revibe-backend/pkg/types"
)

// buyerCancelStatuses is the window in which the buyer may still walk away.
// Once money cleared, cancellation becomes an admin operation.
var buyerCancelStatuses = []enums.OrderStatus{
	enums.OrderStatusPendingPayment,
	enums.OrderStatusPaymentProcessing,
}

// Service exposes the order flow: placement, payment, fulfillment, delivery
// confirmation and the admin money operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*OrderDTO, error)
	List(ctx context.Context, actor authz.Principal, input ListInput) (*OrderPage, error)
	Get(ctx context.Context, actor authz.Principal, id uuid.UUID) (*OrderDTO, error)
	Cancel(ctx context.Context, actor authz.Principal, id uuid.UUID) (*OrderDTO, error)
	Advance(ctx context.Context, input AdvanceInput) (*OrderDTO, error)
	Ship(ctx context.Context, input ShipInput) (*OrderDTO, error)
	UpdateTracking(ctx context.Context, input TrackingInput) (*OrderDTO, error)
	ConfirmDelivery(ctx context.Context, actor authz.Principal, id uuid.UUID) (*OrderDTO, error)
	MarkPayment(ctx context.Context, input PaymentInput) (*OrderDTO, error)
	AdminCancel(ctx context.Context, input AdminActionInput) (*OrderDTO, error)
	AdminRefund(ctx context.Context, input AdminActionInput) (*OrderDTO, error)
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
	listings ListingGate
	tx       txRunner
	registry *authz.Registry
	hooks    hookRunner
	trail    adminTrail
	now      func() time.Time
}

// ServiceParams bundles the dependencies for the orders service.
type ServiceParams struct {
	Repo     *Repository
	Listings ListingGate
	TxRunner txRunner
	Registry *authz.Registry
	Hooks    hookRunner
	Trail    adminTrail
}

// NewService constructs an orders service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Listings == nil {
		return nil, fmt.Errorf("listing gate required")
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
		return nil, fmt.Errorf("admin trail required")
	}
	return &service{
		repo:     params.Repo,
		listings: params.Listings,
		tx:       params.TxRunner,
		registry: params.Registry,
		hooks:    params.Hooks,
		trail:    params.Trail,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// CreateInput places an order for a listing. Total is the amount the client
// confirmed at checkout and must reproduce subtotal + shipping + tax -
// discount, with subtotal fixed to the listing price on the server.
type CreateInput struct {
	Actor        authz.Principal
	ListingID    uuid.UUID       `json:"listing_id" validate:"required"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Tax          decimal.Decimal `json:"tax"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total" validate:"required"`
}

// ListInput is one page request over the actor's orders. Party narrows to
// the buyer or seller side; admins with no party filter see every order.
type ListInput struct {
	Pagination pagination.Params
	Party      string
	Status     string
}

// AdvanceInput moves a paid order into fulfillment.
type AdvanceInput struct {
	Actor   authz.Principal
	OrderID uuid.UUID
	Status  string `json:"status" validate:"required"`
}

// ShipInput records the carrier handoff. Creating the shipment is what marks
// the order shipped; the two cannot drift apart.
type ShipInput struct {
	Actor          authz.Principal
	OrderID        uuid.UUID
	Carrier        string `json:"carrier" validate:"required,max=60"`
	TrackingNumber string `json:"tracking_number" validate:"required,max=100"`
}

// TrackingInput applies one carrier movement to a shipment.
type TrackingInput struct {
	Actor      authz.Principal
	OrderID    uuid.UUID
	ShipmentID uuid.UUID
	Status     string `json:"status" validate:"required"`
}

// PaymentInput records a processor outcome. Only the service role may call
// this; buyers and sellers never drive payment_status directly.
type PaymentInput struct {
	Actor   authz.Principal
	OrderID uuid.UUID
	Status  string `json:"status" validate:"required"`
}

// AdminActionInput is an admin cancel or refund with an optional note for
// the audit trail.
type AdminActionInput struct {
	Actor   authz.Principal
	OrderID uuid.UUID
	Note    *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

func (s *service) Create(ctx context.Context, input CreateInput) (*OrderDTO, error) {
	actor := input.Actor
	if !actor.Authenticated || !actor.HasProfile() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	if input.ShippingCost.IsNegative() || input.Tax.IsNegative() || input.Discount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order amounts cannot be negative")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		listing, err := s.listings.Reserve(ctx, tx, input.ListingID)
		if err != nil {
			return err
		}
		if listing.SellerProfileID == actor.ProfileID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "cannot buy your own listing")
		}

		order = &models.Order{
			ID:              uuid.New(),
			BuyerProfileID:  actor.ProfileID,
			SellerProfileID: listing.SellerProfileID,
			ListingID:       listing.ID,
			Status:          enums.OrderStatusPendingPayment,
			PaymentStatus:   enums.PaymentStatusPending,
			Subtotal:        listing.Price,
			ShippingCost:    input.ShippingCost,
			Tax:             input.Tax,
			Discount:        input.Discount,
			Total:           input.Total,
			Currency:        listing.Currency,
		}
		if err := s.registry.Authorize(actor, authz.OpInsert, authz.TableOrders, order); err != nil {
			return err
		}

		// Totals are checked and the order number allocated here; a failure
		// rolls the reservation back with everything else.
		ev := &hooks.Event{Table: authz.TableOrders, Op: hooks.OpInsert, Row: order}
		if err := s.hooks.Run(ctx, tx, hooks.PhaseBefore, ev); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique order number")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return s.hooks.Run(ctx, tx, hooks.PhaseAfter, ev)
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(order)
	return &dto, nil
}

func (s *service) List(ctx context.Context, actor authz.Principal, input ListInput) (*OrderPage, error) {
	if !actor.Authenticated {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	query := ListQuery{Pagination: input.Pagination}
	switch input.Party {
	case "":
		if !actor.IsAdmin() {
			if !actor.HasProfile() {
				return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
			}
			party := actor.ProfileID
			query.PartyProfileID = &party
		}
	case "buyer":
		if !actor.HasProfile() {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
		}
		buyer := actor.ProfileID
		query.BuyerProfileID = &buyer
	case "seller":
		if !actor.HasProfile() {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
		}
		seller := actor.ProfileID
		query.SellerProfileID = &seller
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party must be buyer or seller")
	}
	if input.Status != "" {
		status, err := enums.ParseOrderStatus(input.Status)
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	visible := authz.Filter(s.registry, actor, authz.TableOrders, rows, func(o models.Order) any {
		order := o
		return &order
	})
	return &OrderPage{Orders: fromModels(visible), NextCursor: nextCursor}, nil
}

func (s *service) Get(ctx context.Context, actor authz.Principal, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	// Orders look absent to anyone who is not a party to them.
	if !s.registry.CanSelect(actor, authz.TableOrders, order) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	dto := fromModel(order)
	return &dto, nil
}

func (s *service) Cancel(ctx context.Context, actor authz.Principal, id uuid.UUID) (*OrderDTO, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.lockOrder(ctx, repo, actor, id)
		if err != nil {
			return err
		}
		order = loaded
		if order.BuyerProfileID != actor.ProfileID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can cancel an order")
		}
		if !statusIn(order.Status, buyerCancelStatuses) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled")
		}
		if err := lifecycle.Orders().Transition(order.Status, enums.OrderStatusCancelled); err != nil {
			return err
		}
		if err := s.registry.Authorize(actor, authz.OpUpdate, authz.TableOrders, order); err != nil {
			return err
		}

		old := *order
		now := s.now()
		order.Status = enums.OrderStatusCancelled
		order.CancelledAt = &now
		updates := map[string]any{
			"status":       order.Status,
			"cancelled_at": order.CancelledAt,
		}
		if err := s.writeOrder(ctx, tx, repo, order, &old, updates); err != nil {
			return err
		}
		return s.listings.Move(ctx, tx, order.ListingID,
			[]enums.ListingStatus{enums.ListingStatusReserved}, enums.ListingStatusActive)
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(order)
	return &dto, nil
}

func (s *service) Advance(ctx context.Context, input AdvanceInput) (*OrderDTO, error) {
	target, err := enums.ParseOrderStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	switch target {
	case enums.OrderStatusPreparing:
	case enums.OrderStatusShipped:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mark an order shipped by creating a shipment")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sellers can only advance an order to preparing")
	}

	actor := input.Actor
	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.lockOrder(ctx, repo, actor, input.OrderID)
		if err != nil {
			return err
		}
		order = loaded
		if order.SellerProfileID != actor.ProfileID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can advance an order")
		}
		if err := lifecycle.Orders().Transition(order.Status, target); err != nil {
			return err
		}
		if err := s.registry.Authorize(actor, authz.OpUpdate, authz.TableOrders, order); err != nil {
			return err
		}

		old := *order
		order.Status = target
		return s.writeOrder(ctx, tx, repo, order, &old, map[string]any{"status": order.Status})
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(order)
	return &dto, nil
}

func (s *service) Ship(ctx context.Context, input ShipInput) (*OrderDTO, error) {
	carrier := strings.TrimSpace(input.Carrier)
	trackingNumber := strings.TrimSpace(input.TrackingNumber)
	if carrier == "" || trackingNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "carrier and tracking number are required")
	}

	actor := input.Actor
	var order *models.Order
	var shipment *models.OrderShipment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.lockOrder(ctx, repo, actor, input.OrderID)
		if err != nil {
			return err
		}
		order = loaded
		if order.SellerProfileID != actor.ProfileID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller ships an order")
		}
		if err := lifecycle.Orders().Transition(order.Status, enums.OrderStatusShipped); err != nil {
			return err
		}

		shipment = &models.OrderShipment{
			ID:             uuid.New(),
			OrderID:        order.ID,
			Carrier:        carrier,
			TrackingNumber: trackingNumber,
			Status:         enums.TrackingStatusLabelCreated,
		}
		row := authz.OrderShipmentRow{Shipment: shipment, Order: order}
		if err := s.registry.Authorize(actor, authz.OpInsert, authz.TableOrderShipments, row); err != nil {
			return err
		}
		if err := s.registry.Authorize(actor, authz.OpUpdate, authz.TableOrders, order); err != nil {
			return err
		}
		if err := repo.CreateShipment(ctx, shipment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shipment")
		}

		old := *order
		now := s.now()
		order.Status = enums.OrderStatusShipped
		order.ShippedAt = &now
		updates := map[string]any{
			"status":     order.Status,
			"shipped_at": order.ShippedAt,
		}
		return s.writeOrder(ctx, tx, repo, order, &old, updates)
	})
	if err != nil {
		return nil, err
	}
	order.Shipments = append(order.Shipments, *shipment)
	dto := fromModel(order)
	return &dto, nil
}

func (s *service) UpdateTracking(ctx context.Context, input TrackingInput) (*OrderDTO, error) {
	target, err := enums.ParseTrackingStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	actor := input.Actor
	var order *models.Order
	var shipment *models.OrderShipment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.lockOrder(ctx, repo, actor, input.OrderID)
		if err != nil {
			return err
		}
		order = loaded
		if !actor.IsAdmin() && order.SellerProfileID != actor.ProfileID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the seller updates tracking")
		}

		shipment, err = repo.FindShipmentForUpdate(ctx, input.ShipmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipment")
		}
		if shipment.OrderID != order.ID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "shipment does not belong to order")
		}
		if shipment.Status == target {
			return nil
		}
		if err := lifecycle.Tracking().Transition(shipment.Status, target); err != nil {
			return err
		}
		row := authz.OrderShipmentRow{Shipment: shipment, Order: order}
		if err := s.registry.Authorize(actor, authz.OpUpdate, authz.TableOrderShipments, row); err != nil {
			return err
		}

		oldShipment := *shipment
		shipment.Status = target
		ev := &hooks.Event{
			Table: authz.TableOrderShipments,
			Op:    hooks.OpUpdate,
			Row:   shipment,
			Old:   &oldShipment,
		}
		if err := s.hooks.Run(ctx, tx, hooks.PhaseBefore, ev); err != nil {
			return err
		}
		err = repo.UpdateShipment(ctx, shipment.ID, map[string]any{
			"status":     shipment.Status,
			"updated_at": shipment.UpdatedAt,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shipment")
		}

		return s.followCarrier(ctx, tx, repo, actor, order, target)
	})
	if err != nil {
		return nil, err
	}
	order.Shipments = append(order.Shipments, *shipment)
	dto := fromModel(order)
	return &dto, nil
}

// followCarrier moves the order status along with the carrier movement. The
// tracking machine sequences movements, so the order arrives at delivered
// through in_transit and never skips it.
func (s *service) followCarrier(ctx context.Context, tx *gorm.DB, repo *Repository, actor authz.Principal, order *models.Order, movement enums.TrackingStatus) error {
	var target enums.OrderStatus
	switch movement {
	case enums.TrackingStatusPickedUp, enums.TrackingStatusInTransit, enums.TrackingStatusOutForDelivery:
		if order.Status != enums.OrderStatusShipped {
			return nil
		}
		target = enums.OrderStatusInTransit
	case enums.TrackingStatusDelivered:
		target = enums.OrderStatusDelivered
	default:
		return nil
	}

	if err := lifecycle.Orders().Transition(order.Status, target); err != nil {
		return err
	}
	if err := s.registry.Authorize(actor, authz.OpUpdate, authz.TableOrders, order); err != nil {
		return err
	}

	old := *order
	order.Status = target
	updates := map[string]any{"status": order.Status}
	if target == enums.OrderStatusDelivered {
		now := s.now()
		order.DeliveredAt = &now
		updates["delivered_at"] = order.DeliveredAt
	}
	return s.writeOrder(ctx, tx, repo, order, &old, updates)
}

func (s *service) ConfirmDelivery(ctx context.Context, actor authz.Principal, id uuid.UUID) (*OrderDTO, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.lockOrder(ctx, repo, actor, id)
		if err != nil {
			return err
		}
		order = loaded
		if order.BuyerProfileID != actor.ProfileID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer confirms delivery")
		}
		if err := lifecycle.Orders().Transition(order.Status, enums.OrderStatusCompleted); err != nil {
			return err
		}
		if err := s.registry.Authorize(actor, authz.OpUpdate, authz.TableOrders, order); err != nil {
			return err
		}

		old := *order
		now := s.now()
		order.Status = enums.OrderStatusCompleted
		order.CompletedAt = &now
		updates := map[string]any{
			"status":       order.Status,
			"completed_at": order.CompletedAt,
		}
		// The after hooks settle the sale: stats bump and the one payout.
		if err := s.writeOrder(ctx, tx, repo, order, &old, updates); err != nil {
			return err
		}
		return s.listings.Move(ctx, tx, order.ListingID,
			[]enums.ListingStatus{enums.ListingStatusReserved}, enums.ListingStatusSold)
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(order)
	return &dto, nil
}

func (s *service) MarkPayment(ctx context.Context, input PaymentInput) (*OrderDTO, error) {
	actor := input.Actor
	if !actor.ServiceRole {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment updates are service-driven")
	}
	target, err := enums.ParsePaymentStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	orderTarget, err := orderStatusForPayment(target)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.lockOrder(ctx, repo, actor, input.OrderID)
		if err != nil {
			return err
		}
		order = loaded
		if err := lifecycle.Payments().Transition(order.PaymentStatus, target); err != nil {
			return err
		}
		if err := lifecycle.Orders().Transition(order.Status, orderTarget); err != nil {
			return err
		}
		if err := s.registry.Authorize(actor, authz.OpUpdate, authz.TableOrders, order); err != nil {
			return err
		}

		old := *order
		order.PaymentStatus = target
		order.Status = orderTarget
		updates := map[string]any{
			"payment_status": order.PaymentStatus,
			"status":         order.Status,
		}
		return s.writeOrder(ctx, tx, repo, order, &old, updates)
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(order)
	return &dto, nil
}

func (s *service) AdminCancel(ctx context.Context, input AdminActionInput) (*OrderDTO, error) {
	actor := input.Actor
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.lockOrder(ctx, repo, actor, input.OrderID)
		if err != nil {
			return err
		}
		order = loaded
		if err := lifecycle.Orders().Transition(order.Status, enums.OrderStatusCancelled); err != nil {
			return err
		}
		if err := s.registry.Authorize(actor, authz.OpUpdate, authz.TableOrders, order); err != nil {
			return err
		}

		old := *order
		now := s.now()
		order.Status = enums.OrderStatusCancelled
		order.CancelledAt = &now
		updates := map[string]any{
			"status":       order.Status,
			"cancelled_at": order.CancelledAt,
		}
		// Cancelling a paid order gives the money back in the same write.
		if order.PaymentStatus == enums.PaymentStatusSucceeded {
			if err := lifecycle.Payments().Transition(order.PaymentStatus, enums.PaymentStatusRefunded); err != nil {
				return err
			}
			order.PaymentStatus = enums.PaymentStatusRefunded
			updates["payment_status"] = order.PaymentStatus
		}
		if err := s.writeOrder(ctx, tx, repo, order, &old, updates); err != nil {
			return err
		}
		if err := s.listings.Move(ctx, tx, order.ListingID,
			[]enums.ListingStatus{enums.ListingStatusReserved}, enums.ListingStatusActive); err != nil {
			return err
		}
		return s.recordOrderAction(ctx, tx, actor, order, "order.cancel", input.Note)
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(order)
	return &dto, nil
}

func (s *service) AdminRefund(ctx context.Context, input AdminActionInput) (*OrderDTO, error) {
	actor := input.Actor
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.lockOrder(ctx, repo, actor, input.OrderID)
		if err != nil {
			return err
		}
		order = loaded
		if err := lifecycle.Orders().Transition(order.Status, enums.OrderStatusRefunded); err != nil {
			return err
		}
		if err := lifecycle.Payments().Transition(order.PaymentStatus, enums.PaymentStatusRefunded); err != nil {
			return err
		}
		if err := s.registry.Authorize(actor, authz.OpUpdate, authz.TableOrders, order); err != nil {
			return err
		}

		old := *order
		order.Status = enums.OrderStatusRefunded
		order.PaymentStatus = enums.PaymentStatusRefunded
		updates := map[string]any{
			"status":         order.Status,
			"payment_status": order.PaymentStatus,
		}
		if err := s.writeOrder(ctx, tx, repo, order, &old, updates); err != nil {
			return err
		}
		// Pre-fulfillment refunds free the listing. Once the item shipped,
		// the return flow decides whether it goes back on sale.
		if err := s.listings.Move(ctx, tx, order.ListingID,
			[]enums.ListingStatus{enums.ListingStatusReserved}, enums.ListingStatusActive); err != nil {
			return err
		}
		return s.recordOrderAction(ctx, tx, actor, order, "order.refund", input.Note)
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(order)
	return &dto, nil
}

// lockOrder loads an order FOR UPDATE and applies the select policy first, so
// strangers learn nothing from mutation endpoints either.
func (s *service) lockOrder(ctx context.Context, repo *Repository, actor authz.Principal, id uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !s.registry.CanSelect(actor, authz.TableOrders, order) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// writeOrder runs the update hook phases around the row write. The before
// phase stamps updated_at on the model; the after phase settles completion
// side effects.
func (s *service) writeOrder(ctx context.Context, tx *gorm.DB, repo *Repository, order, old *models.Order, updates map[string]any) error {
	ev := &hooks.Event{Table: authz.TableOrders, Op: hooks.OpUpdate, Row: order, Old: old}
	if err := s.hooks.Run(ctx, tx, hooks.PhaseBefore, ev); err != nil {
		return err
	}
	updates["updated_at"] = order.UpdatedAt
	if err := repo.Update(ctx, order.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
	}
	return s.hooks.Run(ctx, tx, hooks.PhaseAfter, ev)
}

func (s *service) recordOrderAction(ctx context.Context, tx *gorm.DB, actor authz.Principal, order *models.Order, action string, note *string) error {
	detail := types.JSONMap{"order_number": order.OrderNumber}
	if note != nil && strings.TrimSpace(*note) != "" {
		detail["note"] = strings.TrimSpace(*note)
	}
	recordID := order.ID
	return s.trail.RecordAction(ctx, tx, audit.ActionInput{
		Actor:       actor,
		Action:      action,
		TargetTable: authz.TableOrders,
		RecordID:    &recordID,
		Detail:      detail,
	})
}

func orderStatusForPayment(target enums.PaymentStatus) (enums.OrderStatus, error) {
	switch target {
	case enums.PaymentStatusProcessing:
		return enums.OrderStatusPaymentProcessing, nil
	case enums.PaymentStatusSucceeded:
		return enums.OrderStatusPaid, nil
	case enums.PaymentStatusFailed:
		return enums.OrderStatusPaymentFailed, nil
	case enums.PaymentStatusRefunded:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "refunds go through the refund flow")
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment status cannot be set to "+target.String())
	}
}

func statusIn(status enums.OrderStatus, set []enums.OrderStatus) bool {
	for _, candidate := range set {
		if status == candidate {
			return true
		}
	}
	return false
}

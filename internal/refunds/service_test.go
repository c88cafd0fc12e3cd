package refunds

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/revibe-app/revibe-backend/internal/audit"
	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/internal/hooks"
	"github.com/revibe-app/revibe-backend/internal/orders"
	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
	"github.com/revibe-app/revibe-backend/pkg/fees"
	"github.com/revibe-app/revibe-backend/pkg/pagination"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupRefundsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:refunds_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	ddl := []string{
		`CREATE TABLE orders (
			id TEXT PRIMARY KEY,
			order_number TEXT NOT NULL UNIQUE,
			buyer_profile_id TEXT NOT NULL,
			seller_profile_id TEXT NOT NULL,
			listing_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending_payment',
			payment_status TEXT NOT NULL DEFAULT 'pending',
			subtotal NUMERIC NOT NULL,
			shipping_cost NUMERIC NOT NULL DEFAULT 0,
			tax NUMERIC NOT NULL DEFAULT 0,
			discount NUMERIC NOT NULL DEFAULT 0,
			total NUMERIC NOT NULL,
			platform_fee NUMERIC NOT NULL DEFAULT 0,
			currency TEXT NOT NULL DEFAULT 'USD',
			cancelled_at DATETIME,
			shipped_at DATETIME,
			delivered_at DATETIME,
			completed_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE refund_requests (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			return_id TEXT,
			requester_profile_id TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			processed_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE returns (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			requester_profile_id TEXT NOT NULL,
			reason TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'requested',
			decline_reason TEXT,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE listings (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			updated_at DATETIME
		)`,
		`CREATE TABLE admin_audit_log (
			id TEXT PRIMARY KEY,
			admin_user_id TEXT NOT NULL,
			action TEXT NOT NULL,
			table_name TEXT NOT NULL,
			record_id TEXT,
			detail TEXT,
			created_at DATETIME
		)`,
	}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

// newRefundsTestService wires the refunds service to a real orders service
// so Process exercises the actual order flip.
func newRefundsTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	calc, err := fees.NewCalculator("0.10")
	require.NoError(t, err)
	engine, err := hooks.NewDefaultEngine(hooks.DefaultEngineParams{Fees: calc})
	require.NoError(t, err)
	registry := authz.BuildRegistry(nil)
	trail, err := audit.NewRecorder(registry, db)
	require.NoError(t, err)

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(db),
		Listings: orders.NewListingGate(),
		TxRunner: gormTxRunner{db: db},
		Registry: registry,
		Hooks:    engine,
		Trail:    trail,
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(db),
		Orders:   ordersSvc,
		TxRunner: gormTxRunner{db: db},
		Registry: registry,
		Hooks:    engine,
		Trail:    trail,
	})
	require.NoError(t, err)
	return svc
}

func seedOrder(t *testing.T, db *gorm.DB, buyer, seller uuid.UUID, status enums.OrderStatus, payment enums.PaymentStatus) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     "ORD-" + uuid.NewString(),
		BuyerProfileID:  buyer,
		SellerProfileID: seller,
		ListingID:       uuid.New(),
		Status:          status,
		PaymentStatus:   payment,
		Subtotal:        decimal.RequireFromString("40.00"),
		Total:           decimal.RequireFromString("40.00"),
		Currency:        "USD",
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func seedListing(t *testing.T, db *gorm.DB, id uuid.UUID, status enums.ListingStatus) {
	t.Helper()
	require.NoError(t, db.Exec("INSERT INTO listings (id, status) VALUES (?, ?)", id, status).Error)
}

func listingStatus(t *testing.T, db *gorm.DB, id uuid.UUID) string {
	t.Helper()
	var status string
	require.NoError(t, db.Raw("SELECT status FROM listings WHERE id = ?", id).Scan(&status).Error)
	return status
}

func seedReturn(t *testing.T, db *gorm.DB, orderID, requester uuid.UUID, status enums.ReturnStatus) *models.Return {
	t.Helper()

	ret := &models.Return{
		ID:                 uuid.New(),
		OrderID:            orderID,
		RequesterProfileID: requester,
		Reason:             "does not fit",
		Status:             status,
	}
	require.NoError(t, db.Create(ret).Error)
	return ret
}

func partyPrincipal(profileID uuid.UUID) authz.Principal {
	return authz.Principal{
		UserID:        uuid.New(),
		ProfileID:     profileID,
		Role:          enums.UserRoleUser,
		Authenticated: true,
	}
}

func refundsAdminPrincipal() authz.Principal {
	return authz.Principal{
		UserID:        uuid.New(),
		ProfileID:     uuid.New(),
		Role:          enums.UserRoleAdmin,
		Authenticated: true,
	}
}

func requestRefund(t *testing.T, svc Service, actor authz.Principal, orderID uuid.UUID, amount string) *RefundRequestDTO {
	t.Helper()

	refund, err := svc.Request(context.Background(), RequestInput{
		Actor:   actor,
		OrderID: orderID,
		Amount:  decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
	return refund
}

func TestRequestRefund(t *testing.T) {
	t.Parallel()

	db := setupRefundsTestDB(t)
	svc := newRefundsTestService(t, db)
	buyer := uuid.New()
	seller := uuid.New()
	ctx := context.Background()

	order := seedOrder(t, db, buyer, seller, enums.OrderStatusDelivered, enums.PaymentStatusSucceeded)
	refund := requestRefund(t, svc, partyPrincipal(buyer), order.ID, "40.00")
	require.Equal(t, enums.RefundRequestStatusPending, refund.Status)
	require.Equal(t, buyer, refund.RequesterProfileID)
	require.True(t, refund.Amount.Equal(decimal.RequireFromString("40.00")))
	require.Nil(t, refund.ProcessedAt)

	// The seller is an order party too.
	sellerSide := seedOrder(t, db, buyer, seller, enums.OrderStatusPaid, enums.PaymentStatusSucceeded)
	fromSeller := requestRefund(t, svc, partyPrincipal(seller), sellerSide.ID, "10.00")
	require.Equal(t, seller, fromSeller.RequesterProfileID)

	// One pending request per order.
	_, err := svc.Request(ctx, RequestInput{
		Actor: partyPrincipal(buyer), OrderID: order.ID, Amount: decimal.RequireFromString("5.00"),
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	unpaid := seedOrder(t, db, buyer, seller, enums.OrderStatusPendingPayment, enums.PaymentStatusPending)
	_, err = svc.Request(ctx, RequestInput{
		Actor: partyPrincipal(buyer), OrderID: unpaid.ID, Amount: decimal.RequireFromString("5.00"),
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.Request(ctx, RequestInput{
		Actor: partyPrincipal(buyer), OrderID: order.ID, Amount: decimal.RequireFromString("41.00"),
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.Request(ctx, RequestInput{
		Actor: partyPrincipal(buyer), OrderID: order.ID, Amount: decimal.Zero,
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.Request(ctx, RequestInput{
		Actor: partyPrincipal(buyer), Amount: decimal.RequireFromString("5.00"),
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.Request(ctx, RequestInput{
		Actor: authz.Anonymous(), OrderID: order.ID, Amount: decimal.RequireFromString("5.00"),
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.Request(ctx, RequestInput{
		Actor: partyPrincipal(uuid.New()), OrderID: order.ID, Amount: decimal.RequireFromString("5.00"),
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Request(ctx, RequestInput{
		Actor: partyPrincipal(buyer), OrderID: uuid.New(), Amount: decimal.RequireFromString("5.00"),
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestRequestRefundTiedToReturn(t *testing.T) {
	t.Parallel()

	db := setupRefundsTestDB(t)
	svc := newRefundsTestService(t, db)
	buyer := uuid.New()
	seller := uuid.New()
	ctx := context.Background()

	order := seedOrder(t, db, buyer, seller, enums.OrderStatusDelivered, enums.PaymentStatusSucceeded)
	other := seedOrder(t, db, buyer, seller, enums.OrderStatusDelivered, enums.PaymentStatusSucceeded)
	ret := seedReturn(t, db, order.ID, buyer, enums.ReturnStatusRefunded)
	foreign := seedReturn(t, db, other.ID, buyer, enums.ReturnStatusRefunded)

	unknown := uuid.New()
	_, err := svc.Request(ctx, RequestInput{
		Actor: partyPrincipal(buyer), OrderID: order.ID, ReturnID: &unknown,
		Amount: decimal.RequireFromString("40.00"),
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Request(ctx, RequestInput{
		Actor: partyPrincipal(buyer), OrderID: order.ID, ReturnID: &foreign.ID,
		Amount: decimal.RequireFromString("40.00"),
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	refund, err := svc.Request(ctx, RequestInput{
		Actor: partyPrincipal(buyer), OrderID: order.ID, ReturnID: &ret.ID,
		Amount: decimal.RequireFromString("40.00"),
	})
	require.NoError(t, err)
	require.NotNil(t, refund.ReturnID)
	require.Equal(t, ret.ID, *refund.ReturnID)
}

func TestRefundDecisions(t *testing.T) {
	t.Parallel()

	db := setupRefundsTestDB(t)
	svc := newRefundsTestService(t, db)
	buyer := uuid.New()
	seller := uuid.New()
	admin := refundsAdminPrincipal()
	ctx := context.Background()

	order := seedOrder(t, db, buyer, seller, enums.OrderStatusDelivered, enums.PaymentStatusSucceeded)
	refund := requestRefund(t, svc, partyPrincipal(buyer), order.ID, "40.00")

	_, err := svc.Approve(ctx, DecisionInput{Actor: partyPrincipal(buyer), RefundID: refund.ID})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	approved, err := svc.Approve(ctx, DecisionInput{Actor: admin, RefundID: refund.ID})
	require.NoError(t, err)
	require.Equal(t, enums.RefundRequestStatusApproved, approved.Status)

	// Decisions are final.
	_, err = svc.Approve(ctx, DecisionInput{Actor: admin, RefundID: refund.ID})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	_, err = svc.Reject(ctx, DecisionInput{Actor: admin, RefundID: refund.ID})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	second := seedOrder(t, db, buyer, seller, enums.OrderStatusDelivered, enums.PaymentStatusSucceeded)
	declined := requestRefund(t, svc, partyPrincipal(buyer), second.ID, "12.00")
	note := "photos show no defect"
	rejected, err := svc.Reject(ctx, DecisionInput{Actor: admin, RefundID: declined.ID, Note: &note})
	require.NoError(t, err)
	require.Equal(t, enums.RefundRequestStatusRejected, rejected.Status)

	// A rejected request does not block asking again.
	requestRefund(t, svc, partyPrincipal(buyer), second.ID, "6.00")

	var entries []models.AdminAuditLog
	require.NoError(t, db.Find(&entries, "action = ?", "refund.approve").Error)
	require.Len(t, entries, 1)
	require.Equal(t, refund.ID, *entries[0].RecordID)

	require.NoError(t, db.Find(&entries, "action = ?", "refund.reject").Error)
	require.Len(t, entries, 1)
	require.Equal(t, declined.ID, *entries[0].RecordID)
}

func TestProcessRefund(t *testing.T) {
	t.Parallel()

	db := setupRefundsTestDB(t)
	svc := newRefundsTestService(t, db)
	buyer := uuid.New()
	seller := uuid.New()
	admin := refundsAdminPrincipal()
	ctx := context.Background()

	order := seedOrder(t, db, buyer, seller, enums.OrderStatusDelivered, enums.PaymentStatusSucceeded)
	seedListing(t, db, order.ListingID, enums.ListingStatusReserved)
	refund := requestRefund(t, svc, partyPrincipal(buyer), order.ID, "40.00")

	// Only approved requests pay out.
	_, err := svc.Process(ctx, DecisionInput{Actor: admin, RefundID: refund.ID})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.Approve(ctx, DecisionInput{Actor: admin, RefundID: refund.ID})
	require.NoError(t, err)

	_, err = svc.Process(ctx, DecisionInput{Actor: partyPrincipal(seller), RefundID: refund.ID})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	processed, err := svc.Process(ctx, DecisionInput{Actor: admin, RefundID: refund.ID})
	require.NoError(t, err)
	require.Equal(t, enums.RefundRequestStatusProcessed, processed.Status)
	require.NotNil(t, processed.ProcessedAt)

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", order.ID).Error)
	require.Equal(t, enums.OrderStatusRefunded, reloaded.Status)
	require.Equal(t, enums.PaymentStatusRefunded, reloaded.PaymentStatus)
	require.Equal(t, enums.ListingStatusActive.String(), listingStatus(t, db, order.ListingID))

	var entries []models.AdminAuditLog
	require.NoError(t, db.Find(&entries, "action = ?", "order.refund").Error)
	require.Len(t, entries, 1)
	require.NoError(t, db.Find(&entries, "action = ?", "refund.process").Error)
	require.Len(t, entries, 1)
	require.Equal(t, refund.ID, *entries[0].RecordID)

	_, err = svc.Process(ctx, DecisionInput{Actor: admin, RefundID: refund.ID})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestProcessResumesAfterOrderFlip(t *testing.T) {
	t.Parallel()

	db := setupRefundsTestDB(t)
	svc := newRefundsTestService(t, db)
	buyer := uuid.New()
	seller := uuid.New()
	admin := refundsAdminPrincipal()
	ctx := context.Background()

	order := seedOrder(t, db, buyer, seller, enums.OrderStatusDelivered, enums.PaymentStatusSucceeded)
	refund := requestRefund(t, svc, partyPrincipal(buyer), order.ID, "40.00")
	_, err := svc.Approve(ctx, DecisionInput{Actor: admin, RefundID: refund.ID})
	require.NoError(t, err)

	// An earlier attempt flipped the order and died before marking the
	// request. Retrying must not try to refund the order twice.
	require.NoError(t, db.Exec(
		"UPDATE orders SET status = ?, payment_status = ? WHERE id = ?",
		enums.OrderStatusRefunded, enums.PaymentStatusRefunded, order.ID,
	).Error)

	processed, err := svc.Process(ctx, DecisionInput{Actor: admin, RefundID: refund.ID})
	require.NoError(t, err)
	require.Equal(t, enums.RefundRequestStatusProcessed, processed.Status)

	var entries []models.AdminAuditLog
	require.NoError(t, db.Find(&entries, "action = ?", "order.refund").Error)
	require.Empty(t, entries)
	require.NoError(t, db.Find(&entries, "action = ?", "refund.process").Error)
	require.Len(t, entries, 1)
}

func TestListRefundsScoped(t *testing.T) {
	t.Parallel()

	db := setupRefundsTestDB(t)
	svc := newRefundsTestService(t, db)
	buyer := uuid.New()
	seller := uuid.New()
	admin := refundsAdminPrincipal()
	ctx := context.Background()

	first := seedOrder(t, db, buyer, seller, enums.OrderStatusDelivered, enums.PaymentStatusSucceeded)
	second := seedOrder(t, db, buyer, uuid.New(), enums.OrderStatusDelivered, enums.PaymentStatusSucceeded)
	firstRefund := requestRefund(t, svc, partyPrincipal(buyer), first.ID, "40.00")
	requestRefund(t, svc, partyPrincipal(buyer), second.ID, "15.00")
	_, err := svc.Approve(ctx, DecisionInput{Actor: admin, RefundID: firstRefund.ID})
	require.NoError(t, err)

	page, err := svc.List(ctx, partyPrincipal(buyer), ListInput{Pagination: pagination.Params{Limit: 10}})
	require.NoError(t, err)
	require.Len(t, page.Refunds, 2)

	// The seller only sees requests on their own sales.
	page, err = svc.List(ctx, partyPrincipal(seller), ListInput{Pagination: pagination.Params{Limit: 10}})
	require.NoError(t, err)
	require.Len(t, page.Refunds, 1)
	require.Equal(t, firstRefund.ID, page.Refunds[0].ID)

	page, err = svc.List(ctx, partyPrincipal(uuid.New()), ListInput{Pagination: pagination.Params{Limit: 10}})
	require.NoError(t, err)
	require.Empty(t, page.Refunds)

	page, err = svc.List(ctx, admin, ListInput{Pagination: pagination.Params{Limit: 10}})
	require.NoError(t, err)
	require.Len(t, page.Refunds, 2)

	page, err = svc.List(ctx, partyPrincipal(buyer), ListInput{
		Pagination: pagination.Params{Limit: 10}, OrderID: &second.ID,
	})
	require.NoError(t, err)
	require.Len(t, page.Refunds, 1)

	page, err = svc.List(ctx, partyPrincipal(buyer), ListInput{
		Pagination: pagination.Params{Limit: 10}, Status: "approved",
	})
	require.NoError(t, err)
	require.Len(t, page.Refunds, 1)
	require.Equal(t, firstRefund.ID, page.Refunds[0].ID)

	_, err = svc.List(ctx, partyPrincipal(buyer), ListInput{
		Pagination: pagination.Params{Limit: 10}, Status: "stalled",
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.List(ctx, authz.Anonymous(), ListInput{Pagination: pagination.Params{Limit: 10}})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
}

func TestGetRefundVisibility(t *testing.T) {
	t.Parallel()

	db := setupRefundsTestDB(t)
	svc := newRefundsTestService(t, db)
	buyer := uuid.New()
	seller := uuid.New()
	ctx := context.Background()

	order := seedOrder(t, db, buyer, seller, enums.OrderStatusDelivered, enums.PaymentStatusSucceeded)
	refund := requestRefund(t, svc, partyPrincipal(buyer), order.ID, "40.00")

	got, err := svc.Get(ctx, partyPrincipal(buyer), refund.ID)
	require.NoError(t, err)
	require.Equal(t, refund.ID, got.ID)

	_, err = svc.Get(ctx, partyPrincipal(seller), refund.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, refundsAdminPrincipal(), refund.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, partyPrincipal(uuid.New()), refund.ID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Get(ctx, partyPrincipal(buyer), uuid.New())
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

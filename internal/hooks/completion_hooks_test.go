package hooks

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	"github.com/revibe-app/revibe-backend/pkg/fees"
)

type completionFixture struct {
	db     *gorm.DB
	buyer  *models.Profile
	seller *models.Profile
	order  *models.Order
}

func newCompletionFixture(t *testing.T) *completionFixture {
	t.Helper()

	db := setupHooksTestDB(t)
	buyer := newTestProfile(t, db, "buyer")
	seller := newTestProfile(t, db, "seller")

	total := decimal.RequireFromString("120.00")
	order := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     "ORD-20260207-1111",
		BuyerProfileID:  buyer.ID,
		SellerProfileID: seller.ID,
		ListingID:       uuid.New(),
		Status:          enums.OrderStatusCompleted,
		Subtotal:        total,
		Total:           total,
	}
	require.NoError(t, db.Create(order).Error)
	return &completionFixture{db: db, buyer: buyer, seller: seller, order: order}
}

func completionEvent(order *models.Order, oldStatus enums.OrderStatus) *Event {
	old := *order
	old.Status = oldStatus
	return &Event{Table: authz.TableOrders, Op: OpUpdate, Row: order, Old: &old}
}

func (f *completionFixture) stats(t *testing.T, profileID uuid.UUID) models.ProfileStats {
	t.Helper()

	var stats models.ProfileStats
	require.NoError(t, f.db.First(&stats, "profile_id = ?", profileID).Error)
	return stats
}

func TestStatsOnCompletionBumpsBothParties(t *testing.T) {
	t.Parallel()

	f := newCompletionFixture(t)
	hook := NewStatsOnCompletionHook()

	ev := completionEvent(f.order, enums.OrderStatusDelivered)
	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
		return hook.Run(context.Background(), tx, ev)
	}))

	assert.Equal(t, 1, f.stats(t, f.seller.ID).TotalSales)
	assert.Equal(t, 1, f.stats(t, f.buyer.ID).TotalPurchases)
	assert.Zero(t, f.stats(t, f.seller.ID).TotalPurchases)
	assert.Zero(t, f.stats(t, f.buyer.ID).TotalSales)
}

func TestStatsOnCompletionIgnoresOtherTransitions(t *testing.T) {
	t.Parallel()

	f := newCompletionFixture(t)
	hook := NewStatsOnCompletionHook()

	// already completed before the write: no double count
	ev := completionEvent(f.order, enums.OrderStatusCompleted)
	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
		return hook.Run(context.Background(), tx, ev)
	}))
	assert.Zero(t, f.stats(t, f.seller.ID).TotalSales)

	// not completed after the write
	f.order.Status = enums.OrderStatusDelivered
	ev = completionEvent(f.order, enums.OrderStatusInTransit)
	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
		return hook.Run(context.Background(), tx, ev)
	}))
	assert.Zero(t, f.stats(t, f.seller.ID).TotalSales)

	// update event without prior state never fires
	f.order.Status = enums.OrderStatusCompleted
	ev = &Event{Table: authz.TableOrders, Op: OpUpdate, Row: f.order}
	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
		return hook.Run(context.Background(), tx, ev)
	}))
	assert.Zero(t, f.stats(t, f.seller.ID).TotalSales)
}

func TestPayoutOnCompletionCreatesPayoutOnce(t *testing.T) {
	t.Parallel()

	f := newCompletionFixture(t)
	calc, err := fees.NewCalculator("0.10")
	require.NoError(t, err)
	hook, err := NewPayoutOnCompletionHook(calc)
	require.NoError(t, err)

	ev := completionEvent(f.order, enums.OrderStatusDelivered)
	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
		return hook.Run(context.Background(), tx, ev)
	}))

	var payout models.Payout
	require.NoError(t, f.db.First(&payout, "order_id = ?", f.order.ID).Error)
	assert.Equal(t, f.seller.ID, payout.SellerProfileID)
	assert.Equal(t, "120", payout.GrossAmount.String())
	assert.Equal(t, "12", payout.PlatformFee.String())
	assert.Equal(t, "108", payout.NetAmount.String())

	// replaying the transition must not mint a second payout
	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
		return hook.Run(context.Background(), tx, ev)
	}))
	var count int64
	require.NoError(t, f.db.Model(&models.Payout{}).Where("order_id = ?", f.order.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestListingCountOnCreateBumpsSeller(t *testing.T) {
	t.Parallel()

	db := setupHooksTestDB(t)
	seller := newTestProfile(t, db, "closet")
	hook := NewListingCountHook()

	listing := &models.Listing{
		ID:              uuid.New(),
		SellerProfileID: seller.ID,
		CategoryID:      uuid.New(),
		Title:           "wool coat",
		Description:     "barely worn",
		Condition:       enums.ListingConditionVeryGood,
		Price:           decimal.RequireFromString("80.00"),
		Status:          enums.ListingStatusActive,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(listing).Error; err != nil {
			return err
		}
		ev := &Event{Table: authz.TableListings, Op: OpInsert, Row: listing}
		return hook.Run(context.Background(), tx, ev)
	})
	require.NoError(t, err)

	var stats models.ProfileStats
	require.NoError(t, db.First(&stats, "profile_id = ?", seller.ID).Error)
	assert.Equal(t, 1, stats.TotalListings)
}

package hooks

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/pkg/config"
	"github.com/revibe-app/revibe-backend/pkg/db/models"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
)

func newTestOrder() *models.Order {
	price := decimal.RequireFromString("25.00")
	return &models.Order{
		ID:              uuid.New(),
		BuyerProfileID:  uuid.New(),
		SellerProfileID: uuid.New(),
		ListingID:       uuid.New(),
		Subtotal:        price,
		Total:           price,
	}
}

func insertOrderWithNumber(t *testing.T, db *gorm.DB, hook Hook) *models.Order {
	t.Helper()

	order := newTestOrder()
	err := db.Transaction(func(tx *gorm.DB) error {
		ev := &Event{Table: authz.TableOrders, Op: OpInsert, Row: order}
		if err := hook.Run(context.Background(), tx, ev); err != nil {
			return err
		}
		return tx.Create(order).Error
	})
	require.NoError(t, err)
	return order
}

func TestOrderNumberFormat(t *testing.T) {
	t.Parallel()

	db := setupHooksTestDB(t)
	frozen := time.Date(2026, 2, 7, 15, 0, 0, 0, time.UTC)
	hook := &orderNumberHook{
		now:      func() time.Time { return frozen },
		pick:     func() int { return 123 },
		prefix:   "ORD",
		attempts: 5,
	}

	order := insertOrderWithNumber(t, db, hook)
	assert.Equal(t, "ORD-20260207-0123", order.OrderNumber)
}

func TestOrderNumberHonorsConfiguredPrefix(t *testing.T) {
	t.Parallel()

	db := setupHooksTestDB(t)
	hook := NewOrderNumberHook(config.OrdersConfig{NumberPrefix: "RVB", NumberMaxAttempts: 3})

	order := insertOrderWithNumber(t, db, hook)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "RVB-"), "got %s", order.OrderNumber)
}

func TestOrderNumberHundredSameDayCreationsAreUnique(t *testing.T) {
	t.Parallel()

	db := setupHooksTestDB(t)
	hook := NewOrderNumberHook(config.OrdersConfig{})

	seen := make(map[string]bool, 100)
	for i := 0; i < 100; i++ {
		order := insertOrderWithNumber(t, db, hook)
		require.NotEmpty(t, order.OrderNumber)
		require.False(t, seen[order.OrderNumber], "duplicate order number %s", order.OrderNumber)
		seen[order.OrderNumber] = true
	}
}

func TestOrderNumberRetriesOnCollision(t *testing.T) {
	t.Parallel()

	db := setupHooksTestDB(t)
	frozen := time.Date(2026, 2, 7, 15, 0, 0, 0, time.UTC)

	taken := newTestOrder()
	taken.OrderNumber = fmt.Sprintf("ORD-%s-%04d", frozen.Format("20060102"), 7)
	require.NoError(t, db.Create(taken).Error)

	picks := []int{7, 7, 42}
	hook := &orderNumberHook{
		now: func() time.Time { return frozen },
		pick: func() int {
			next := picks[0]
			if len(picks) > 1 {
				picks = picks[1:]
			}
			return next
		},
		prefix:   "ORD",
		attempts: 5,
	}

	order := insertOrderWithNumber(t, db, hook)
	assert.Equal(t, "ORD-20260207-0042", order.OrderNumber)
}

func TestOrderNumberExhaustionFailsCreation(t *testing.T) {
	t.Parallel()

	db := setupHooksTestDB(t)
	frozen := time.Date(2026, 2, 7, 15, 0, 0, 0, time.UTC)

	taken := newTestOrder()
	taken.OrderNumber = fmt.Sprintf("ORD-%s-%04d", frozen.Format("20060102"), 7)
	require.NoError(t, db.Create(taken).Error)

	hook := &orderNumberHook{
		now:      func() time.Time { return frozen },
		pick:     func() int { return 7 },
		prefix:   "ORD",
		attempts: 5,
	}

	order := newTestOrder()
	err := db.Transaction(func(tx *gorm.DB) error {
		ev := &Event{Table: authz.TableOrders, Op: OpInsert, Row: order}
		return hook.Run(context.Background(), tx, ev)
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict), "expected CONFLICT, got %v", err)
	assert.Empty(t, order.OrderNumber)
}

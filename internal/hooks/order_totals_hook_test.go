package hooks

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/pkg/db/models"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
	"github.com/revibe-app/revibe-backend/pkg/fees"
)

func newTotalsHook(t *testing.T) Hook {
	t.Helper()

	calc, err := fees.NewCalculator("0.10")
	require.NoError(t, err)
	hook, err := NewOrderTotalsHook(calc)
	require.NoError(t, err)
	return hook
}

func TestOrderTotalsStampsPlatformFee(t *testing.T) {
	t.Parallel()

	hook := newTotalsHook(t)
	order := &models.Order{
		Subtotal:     decimal.RequireFromString("40.00"),
		ShippingCost: decimal.RequireFromString("5.00"),
		Tax:          decimal.RequireFromString("3.60"),
		Discount:     decimal.RequireFromString("2.00"),
		Total:        decimal.RequireFromString("46.60"),
	}

	ev := &Event{Table: authz.TableOrders, Op: OpInsert, Row: order}
	require.NoError(t, hook.Run(context.Background(), nil, ev))
	assert.Equal(t, "4.66", order.PlatformFee.String())
}

func TestOrderTotalsRejectsBadArithmetic(t *testing.T) {
	t.Parallel()

	hook := newTotalsHook(t)
	order := &models.Order{
		Subtotal: decimal.RequireFromString("40.00"),
		Total:    decimal.RequireFromString("41.00"),
	}

	ev := &Event{Table: authz.TableOrders, Op: OpInsert, Row: order}
	err := hook.Run(context.Background(), nil, ev)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "expected VALIDATION_ERROR, got %v", err)
	assert.True(t, order.PlatformFee.IsZero(), "fee must not be stamped on rejected orders")
}

func TestOrderTotalsRejectsNegativeTotal(t *testing.T) {
	t.Parallel()

	hook := newTotalsHook(t)
	order := &models.Order{
		Subtotal: decimal.RequireFromString("10.00"),
		Discount: decimal.RequireFromString("15.00"),
		Total:    decimal.RequireFromString("-5.00"),
	}

	ev := &Event{Table: authz.TableOrders, Op: OpInsert, Row: order}
	err := hook.Run(context.Background(), nil, ev)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

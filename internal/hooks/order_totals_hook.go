package hooks

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/pkg/db/models"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
	"github.com/revibe-app/revibe-backend/pkg/fees"
)

// NewOrderTotalsHook builds the hook that checks the order arithmetic and
// stamps the platform fee before insert. The fee comes from the shared
// calculator so the payout hook can never disagree with it.
func NewOrderTotalsHook(calc *fees.Calculator) (Hook, error) {
	if calc == nil {
		return nil, fmt.Errorf("fee calculator required")
	}
	return &orderTotalsHook{calc: calc}, nil
}

type orderTotalsHook struct {
	calc *fees.Calculator
}

func (h *orderTotalsHook) Name() string { return "order_totals" }

func (h *orderTotalsHook) Run(ctx context.Context, tx *gorm.DB, ev *Event) error {
	order, ok := ev.Row.(*models.Order)
	if !ok || order == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "order totals fired without an order row")
	}

	expected := order.Subtotal.
		Add(order.ShippingCost).
		Add(order.Tax).
		Sub(order.Discount)
	if !order.Total.Equal(expected) {
		return pkgerrors.New(pkgerrors.CodeValidation, "order total does not match subtotal + shipping + tax - discount")
	}
	if order.Total.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "order total cannot be negative")
	}

	order.PlatformFee = h.calc.PlatformFee(order.Total)
	return nil
}

package hooks

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/pkg/db/models"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
	"github.com/revibe-app/revibe-backend/pkg/fees"
)

// NewPayoutOnCompletionHook builds the hook that creates the seller payout
// when an order transitions into completed. The in-tx probe plus the unique
// index on payouts.order_id make the payout exactly-once.
func NewPayoutOnCompletionHook(calc *fees.Calculator) (Hook, error) {
	if calc == nil {
		return nil, fmt.Errorf("fee calculator required")
	}
	return &payoutOnCompletionHook{calc: calc}, nil
}

type payoutOnCompletionHook struct {
	calc *fees.Calculator
}

func (h *payoutOnCompletionHook) Name() string { return "payout_on_completion" }

func (h *payoutOnCompletionHook) Run(ctx context.Context, tx *gorm.DB, ev *Event) error {
	order, ok := completionTransition(ev)
	if !ok {
		return nil
	}

	var existing models.Payout
	err := tx.WithContext(ctx).
		Where("order_id = ?", order.ID).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "probe payout")
	}

	payout := &models.Payout{
		ID:              uuid.New(),
		OrderID:         order.ID,
		SellerProfileID: order.SellerProfileID,
		GrossAmount:     order.Total,
		PlatformFee:     h.calc.PlatformFee(order.Total),
		NetAmount:       h.calc.NetAmount(order.Total),
	}
	if err := tx.WithContext(ctx).Create(payout).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout")
	}
	return nil
}

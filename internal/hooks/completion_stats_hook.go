package hooks

import (
	"context"

	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
)

// NewStatsOnCompletionHook builds the hook that bumps seller sales and buyer
// purchases when an order transitions into completed.
func NewStatsOnCompletionHook() Hook {
	return &statsOnCompletionHook{}
}

type statsOnCompletionHook struct{}

func (h *statsOnCompletionHook) Name() string { return "stats_on_completion" }

func (h *statsOnCompletionHook) Run(ctx context.Context, tx *gorm.DB, ev *Event) error {
	order, ok := completionTransition(ev)
	if !ok {
		return nil
	}

	if err := bumpStat(ctx, tx, order.SellerProfileID, "total_sales"); err != nil {
		return err
	}
	return bumpStat(ctx, tx, order.BuyerProfileID, "total_purchases")
}

// completionTransition reports whether the event is an order moving into
// completed from some other status. Events without the prior row state never
// match, so replays cannot double-fire.
func completionTransition(ev *Event) (*models.Order, bool) {
	order, ok := ev.Row.(*models.Order)
	if !ok || order == nil || order.Status != enums.OrderStatusCompleted {
		return nil, false
	}
	old, ok := ev.Old.(*models.Order)
	if !ok || old == nil || old.Status == enums.OrderStatusCompleted {
		return nil, false
	}
	return order, true
}

func bumpStat(ctx context.Context, tx *gorm.DB, profileID any, column string) error {
	res := tx.WithContext(ctx).
		Model(&models.ProfileStats{}).
		Where("profile_id = ?", profileID).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "bump "+column)
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInternal, "profile stats row missing")
	}
	return nil
}

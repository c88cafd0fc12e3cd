package hooks

import (
	"context"

	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/pkg/db/models"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
)

// NewListingCountHook builds the hook that bumps the seller's total_listings
// counter when a listing row is created.
func NewListingCountHook() Hook {
	return &listingCountHook{}
}

type listingCountHook struct{}

func (h *listingCountHook) Name() string { return "listing_count_on_create" }

func (h *listingCountHook) Run(ctx context.Context, tx *gorm.DB, ev *Event) error {
	listing, ok := ev.Row.(*models.Listing)
	if !ok || listing == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "listing count fired without a listing row")
	}
	return bumpStat(ctx, tx, listing.SellerProfileID, "total_listings")
}

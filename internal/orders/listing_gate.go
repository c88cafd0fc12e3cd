package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
)

// ListingGate applies the listing status flips the order flow drives:
// reserve on creation, release on cancellation, sell on completion. These
// are consistency writes that ride the order transaction, not actor
// operations, so they run beneath the request policy layer the same way
// hooks do.
type ListingGate interface {
	Reserve(ctx context.Context, tx *gorm.DB, listingID uuid.UUID) (*models.Listing, error)
	Move(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, from []enums.ListingStatus, to enums.ListingStatus) error
}

type listingGateImpl struct {
	now func() time.Time
}

// NewListingGate exposes the default listing gate implementation.
func NewListingGate() ListingGate {
	return &listingGateImpl{now: time.Now}
}

// Reserve locks the listing row and moves it active to reserved. Anything
// other than active means the item cannot be bought right now, including a
// reservation won by a racing buyer.
func (g *listingGateImpl) Reserve(ctx context.Context, tx *gorm.DB, listingID uuid.UUID) (*models.Listing, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required to reserve a listing")
	}

	var listing models.Listing
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&listing, "id = ?", listingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock listing")
	}
	if listing.Status != enums.ListingStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "listing is not available")
	}

	err = tx.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", listing.ID).
		Updates(map[string]any{
			"status":     enums.ListingStatusReserved,
			"updated_at": g.now().UTC(),
		}).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve listing")
	}
	listing.Status = enums.ListingStatusReserved
	return &listing, nil
}

// Move flips the listing status when its current value is in from. Zero rows
// affected is not an error: a moderation hold placed mid-order outlives the
// order, so a release must not lift it.
func (g *listingGateImpl) Move(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, from []enums.ListingStatus, to enums.ListingStatus) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required to move a listing")
	}

	err := tx.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ? AND status IN ?", listingID, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": g.now().UTC(),
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "move listing to "+to.String())
	}
	return nil
}

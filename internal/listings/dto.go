package listings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
)

// ListingDTO is the transport shape for a listing.
type ListingDTO struct {
	ID              uuid.UUID              `json:"id"`
	SellerProfileID uuid.UUID              `json:"seller_profile_id"`
	CategoryID      uuid.UUID              `json:"category_id"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	Brand           *string                `json:"brand,omitempty"`
	Size            *string                `json:"size,omitempty"`
	Condition       enums.ListingCondition `json:"condition"`
	Price           decimal.Decimal        `json:"price"`
	Currency        string                 `json:"currency"`
	Photos          []string               `json:"photos"`
	Status          enums.ListingStatus    `json:"status"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// BrowsePage is one page of listings plus the cursor for the next one.
type BrowsePage struct {
	Listings   []ListingDTO `json:"listings"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

func fromModel(l *models.Listing) ListingDTO {
	photos := make([]string, len(l.Photos))
	copy(photos, l.Photos)
	return ListingDTO{
		ID:              l.ID,
		SellerProfileID: l.SellerProfileID,
		CategoryID:      l.CategoryID,
		Title:           l.Title,
		Description:     l.Description,
		Brand:           l.Brand,
		Size:            l.Size,
		Condition:       l.Condition,
		Price:           l.Price,
		Currency:        l.Currency,
		Photos:          photos,
		Status:          l.Status,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}

func fromModels(rows []models.Listing) []ListingDTO {
	out := make([]ListingDTO, 0, len(rows))
	for i := range rows {
		out = append(out, fromModel(&rows[i]))
	}
	return out
}

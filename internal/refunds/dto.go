package refunds

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
)

// RefundRequestDTO is the API shape of a refund request.
type RefundRequestDTO struct {
	ID                 uuid.UUID                 `json:"id"`
	OrderID            uuid.UUID                 `json:"order_id"`
	ReturnID           *uuid.UUID                `json:"return_id,omitempty"`
	RequesterProfileID uuid.UUID                 `json:"requester_profile_id"`
	Amount             decimal.Decimal           `json:"amount"`
	Status             enums.RefundRequestStatus `json:"status"`
	ProcessedAt        *time.Time                `json:"processed_at,omitempty"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}

// RefundRequestPage is one keyset page of refund requests, newest first.
type RefundRequestPage struct {
	Refunds    []RefundRequestDTO `json:"refunds"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

func fromModel(r *models.RefundRequest) RefundRequestDTO {
	return RefundRequestDTO{
		ID:                 r.ID,
		OrderID:            r.OrderID,
		ReturnID:           r.ReturnID,
		RequesterProfileID: r.RequesterProfileID,
		Amount:             r.Amount,
		Status:             r.Status,
		ProcessedAt:        r.ProcessedAt,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func fromModels(rows []models.RefundRequest) []RefundRequestDTO {
	out := make([]RefundRequestDTO, 0, len(rows))
	for i := range rows {
		out = append(out, fromModel(&rows[i]))
	}
	return out
}

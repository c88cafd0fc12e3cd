package returns

import (
	"time"

	"github.com/google/uuid"

	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
)

// ReturnDTO is the API shape of a return request.
type ReturnDTO struct {
	ID                 uuid.UUID          `json:"id"`
	OrderID            uuid.UUID          `json:"order_id"`
	RequesterProfileID uuid.UUID          `json:"requester_profile_id"`
	Reason             string             `json:"reason"`
	Status             enums.ReturnStatus `json:"status"`
	DeclineReason      *string            `json:"decline_reason,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// ReturnPage is one keyset page of returns, newest first.
type ReturnPage struct {
	Returns    []ReturnDTO `json:"returns"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

func fromModel(r *models.Return) ReturnDTO {
	return ReturnDTO{
		ID:                 r.ID,
		OrderID:            r.OrderID,
		RequesterProfileID: r.RequesterProfileID,
		Reason:             r.Reason,
		Status:             r.Status,
		DeclineReason:      r.DeclineReason,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func fromModels(rows []models.Return) []ReturnDTO {
	out := make([]ReturnDTO, 0, len(rows))
	for i := range rows {
		out = append(out, fromModel(&rows[i]))
	}
	return out
}

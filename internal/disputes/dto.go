package disputes

import (
	"time"

	"github.com/google/uuid"

	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
)

// DisputeDTO is the API shape of a dispute.
type DisputeDTO struct {
	ID                  uuid.UUID           `json:"id"`
	OrderID             uuid.UUID           `json:"order_id"`
	InitiatorProfileID  uuid.UUID           `json:"initiator_profile_id"`
	RespondentProfileID uuid.UUID           `json:"respondent_profile_id"`
	Reason              string              `json:"reason"`
	Status              enums.DisputeStatus `json:"status"`
	Resolution          *string             `json:"resolution,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// DisputePage is one keyset page of disputes, newest first.
type DisputePage struct {
	Disputes   []DisputeDTO `json:"disputes"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

func fromModel(d *models.Dispute) DisputeDTO {
	return DisputeDTO{
		ID:                  d.ID,
		OrderID:             d.OrderID,
		InitiatorProfileID:  d.InitiatorProfileID,
		RespondentProfileID: d.RespondentProfileID,
		Reason:              d.Reason,
		Status:              d.Status,
		Resolution:          d.Resolution,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}

func fromModels(rows []models.Dispute) []DisputeDTO {
	out := make([]DisputeDTO, 0, len(rows))
	for i := range rows {
		out = append(out, fromModel(&rows[i]))
	}
	return out
}

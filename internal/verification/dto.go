package verification

import (
	"time"

	"github.com/google/uuid"

	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
)

// RequestDTO is the API shape of a brand verification request.
type RequestDTO struct {
	ID                 uuid.UUID                `json:"id"`
	ProfileID          uuid.UUID                `json:"profile_id"`
	BrandName          string                   `json:"brand_name"`
	Website            *string                  `json:"website,omitempty"`
	RegistrationNumber *string                  `json:"registration_number,omitempty"`
	DocumentsPath      *string                  `json:"documents_path,omitempty"`
	Status             enums.VerificationStatus `json:"status"`
	ReviewerUserID     *uuid.UUID               `json:"reviewer_user_id,omitempty"`
	ReviewNote         *string                  `json:"review_note,omitempty"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}

// RequestPage is one keyset page of verification requests, newest first.
type RequestPage struct {
	Requests   []RequestDTO `json:"requests"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

func fromModel(r *models.BrandVerificationRequest) RequestDTO {
	return RequestDTO{
		ID:                 r.ID,
		ProfileID:          r.ProfileID,
		BrandName:          r.BrandName,
		Website:            r.Website,
		RegistrationNumber: r.RegistrationNumber,
		DocumentsPath:      r.DocumentsPath,
		Status:             r.Status,
		ReviewerUserID:     r.ReviewerUserID,
		ReviewNote:         r.ReviewNote,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func fromModels(rows []models.BrandVerificationRequest) []RequestDTO {
	out := make([]RequestDTO, 0, len(rows))
	for i := range rows {
		out = append(out, fromModel(&rows[i]))
	}
	return out
}

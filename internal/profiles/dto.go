package profiles

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
)

// ProfileDTO is the transport shape for a profile row.
type ProfileDTO struct {
	ID              uuid.UUID         `json:"id"`
	Username        string            `json:"username"`
	DisplayName     string            `json:"display_name"`
	Bio             *string           `json:"bio,omitempty"`
	AccountType     enums.AccountType `json:"account_type"`
	BrandName       *string           `json:"brand_name,omitempty"`
	BrandWebsite    *string           `json:"brand_website,omitempty"`
	IsBrandVerified bool              `json:"is_brand_verified"`
	IsSeller        bool              `json:"is_seller"`
	SetupCompleted  bool              `json:"setup_completed"`
	AvatarURL       *string           `json:"avatar_url,omitempty"`
	CoverURL        *string           `json:"cover_url,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// StatsDTO carries the public counters shown on a profile page.
type StatsDTO struct {
	TotalSales     int             `json:"total_sales"`
	TotalPurchases int             `json:"total_purchases"`
	TotalListings  int             `json:"total_listings"`
	RatingAvg      decimal.Decimal `json:"rating_avg"`
	RatingCount    int             `json:"rating_count"`
}

// SocialAccountDTO is the transport shape for a linked handle.
type SocialAccountDTO struct {
	ID       uuid.UUID `json:"id"`
	Platform string    `json:"platform"`
	Handle   string    `json:"handle"`
	URL      *string   `json:"url,omitempty"`
}

// ProfileDetail is the assembled profile page payload.
type ProfileDetail struct {
	Profile        ProfileDTO         `json:"profile"`
	Stats          StatsDTO           `json:"stats"`
	SocialAccounts []SocialAccountDTO `json:"social_accounts"`
}

func fromModel(p *models.Profile) ProfileDTO {
	return ProfileDTO{
		ID:              p.ID,
		Username:        p.Username,
		DisplayName:     p.DisplayName,
		Bio:             p.Bio,
		AccountType:     p.AccountType,
		BrandName:       p.BrandName,
		BrandWebsite:    p.BrandWebsite,
		IsBrandVerified: p.IsBrandVerified,
		IsSeller:        p.IsSeller,
		SetupCompleted:  p.SetupCompleted,
		AvatarURL:       p.AvatarURL,
		CoverURL:        p.CoverURL,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func statsFromModel(s *models.ProfileStats) StatsDTO {
	if s == nil {
		return StatsDTO{}
	}
	return StatsDTO{
		TotalSales:     s.TotalSales,
		TotalPurchases: s.TotalPurchases,
		TotalListings:  s.TotalListings,
		RatingAvg:      s.RatingAvg,
		RatingCount:    s.RatingCount,
	}
}

func socialAccountsFromModels(accounts []models.SocialMediaAccount) []SocialAccountDTO {
	out := make([]SocialAccountDTO, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, SocialAccountDTO{
			ID:       a.ID,
			Platform: a.Platform,
			Handle:   a.Handle,
			URL:      a.URL,
		})
	}
	return out
}

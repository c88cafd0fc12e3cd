package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/internal/hooks"
	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type hookRunner interface {
	Run(ctx context.Context, tx *gorm.DB, phase hooks.Phase, ev *hooks.Event) error
}

// Service exposes profile page and self-serve profile operations.
type Service interface {
	Me(ctx context.Context, actor authz.Principal) (*ProfileDetail, error)
	GetByUsername(ctx context.Context, actor authz.Principal, username string) (*ProfileDetail, error)
	Update(ctx context.Context, input UpdateInput) (*ProfileDTO, error)
	Delete(ctx context.Context, actor authz.Principal) error
	AddSocialAccount(ctx context.Context, input AddSocialAccountInput) (*SocialAccountDTO, error)
	RemoveSocialAccount(ctx context.Context, actor authz.Principal, accountID uuid.UUID) error
}

type service struct {
	repo     *Repository
	tx       txRunner
	registry *authz.Registry
	hooks    hookRunner
	now      func() time.Time
}

// ServiceParams bundles the dependencies for the profiles service.
type ServiceParams struct {
	Repo     *Repository
	TxRunner txRunner
	Registry *authz.Registry
	Hooks    hookRunner
}

// NewService constructs a profiles service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("authz registry required")
	}
	if params.Hooks == nil {
		return nil, fmt.Errorf("hook engine required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.TxRunner,
		registry: params.Registry,
		hooks:    params.Hooks,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// UpdateInput carries the self-serve editable profile fields. Nil fields are
// left untouched.
type UpdateInput struct {
	Actor        authz.Principal
	DisplayName  *string `json:"display_name,omitempty" validate:"omitempty,min=1,max=80"`
	Bio          *string `json:"bio,omitempty" validate:"omitempty,max=500"`
	BrandWebsite *string `json:"brand_website,omitempty" validate:"omitempty,url"`
	AvatarURL    *string `json:"avatar_url,omitempty"`
	CoverURL     *string `json:"cover_url,omitempty"`
}

// AddSocialAccountInput links an external handle to the actor's profile.
type AddSocialAccountInput struct {
	Actor    authz.Principal
	Platform string  `json:"platform" validate:"required,max=40"`
	Handle   string  `json:"handle" validate:"required,max=120"`
	URL      *string `json:"url,omitempty" validate:"omitempty,url"`
}

func (s *service) Me(ctx context.Context, actor authz.Principal) (*ProfileDetail, error) {
	if !actor.Authenticated {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	profile, err := s.repo.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	// The owner still sees a soft-deleted profile; CanSelect allows it.
	if !s.registry.CanSelect(actor, authz.TableProfiles, profile) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	return s.assembleDetail(ctx, profile)
}

func (s *service) GetByUsername(ctx context.Context, actor authz.Principal, username string) (*ProfileDetail, error) {
	normalized := strings.ToLower(strings.TrimSpace(username))
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username required")
	}
	profile, err := s.repo.FindByUsername(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	// Soft-deleted profiles look absent to everyone but the owner and admins.
	if !s.registry.CanSelect(actor, authz.TableProfiles, profile) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	return s.assembleDetail(ctx, profile)
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*ProfileDTO, error) {
	if !input.Actor.Authenticated {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	var updated *models.Profile
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		profile, err := repo.FindByUserIDForUpdate(ctx, input.Actor.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
		}
		if err := s.registry.Authorize(input.Actor, authz.OpUpdate, authz.TableProfiles, profile); err != nil {
			return err
		}
		if input.BrandWebsite != nil && profile.AccountType != enums.AccountTypeBrand {
			return pkgerrors.New(pkgerrors.CodeValidation, "brand fields only apply to brand accounts")
		}

		old := *profile
		updates := applyUpdate(profile, input)
		if len(updates) == 0 {
			updated = profile
			return nil
		}
		ev := &hooks.Event{Table: authz.TableProfiles, Op: hooks.OpUpdate, Row: profile, Old: &old}
		if err := s.hooks.Run(ctx, tx, hooks.PhaseBefore, ev); err != nil {
			return err
		}
		updates["updated_at"] = profile.UpdatedAt
		if err := repo.Update(ctx, profile.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
		}
		updated = profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(updated)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, actor authz.Principal) error {
	if !actor.Authenticated {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		profile, err := repo.FindByUserIDForUpdate(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
		}
		if profile.DeletedAt != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "profile already deleted")
		}
		if err := s.registry.Authorize(actor, authz.OpDelete, authz.TableProfiles, profile); err != nil {
			return err
		}

		old := *profile
		now := s.now()
		profile.DeletedAt = &now
		ev := &hooks.Event{Table: authz.TableProfiles, Op: hooks.OpUpdate, Row: profile, Old: &old}
		if err := s.hooks.Run(ctx, tx, hooks.PhaseBefore, ev); err != nil {
			return err
		}
		updates := map[string]any{"deleted_at": now, "updated_at": profile.UpdatedAt}
		if err := repo.Update(ctx, profile.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "soft delete profile")
		}
		return nil
	})
}

func (s *service) AddSocialAccount(ctx context.Context, input AddSocialAccountInput) (*SocialAccountDTO, error) {
	platform := strings.ToLower(strings.TrimSpace(input.Platform))
	handle := strings.TrimSpace(input.Handle)
	if platform == "" || handle == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "platform and handle are required")
	}

	account := &models.SocialMediaAccount{
		ID:        uuid.New(),
		ProfileID: input.Actor.ProfileID,
		Platform:  platform,
		Handle:    handle,
		URL:       input.URL,
	}
	if err := s.registry.Authorize(input.Actor, authz.OpInsert, authz.TableSocialMediaAccounts, account); err != nil {
		return nil, err
	}
	if err := s.repo.CreateSocialAccount(ctx, account); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create social account")
	}
	dto := SocialAccountDTO{ID: account.ID, Platform: account.Platform, Handle: account.Handle, URL: account.URL}
	return &dto, nil
}

func (s *service) RemoveSocialAccount(ctx context.Context, actor authz.Principal, accountID uuid.UUID) error {
	if accountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	account, err := s.repo.FindSocialAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "social account not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load social account")
	}
	if err := s.registry.Authorize(actor, authz.OpDelete, authz.TableSocialMediaAccounts, account); err != nil {
		return err
	}
	if err := s.repo.DeleteSocialAccount(ctx, accountID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete social account")
	}
	return nil
}

func (s *service) assembleDetail(ctx context.Context, profile *models.Profile) (*ProfileDetail, error) {
	stats, err := s.repo.FindStats(ctx, profile.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile stats")
	}
	accounts, err := s.repo.ListSocialAccounts(ctx, profile.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load social accounts")
	}
	return &ProfileDetail{
		Profile:        fromModel(profile),
		Stats:          statsFromModel(stats),
		SocialAccounts: socialAccountsFromModels(accounts),
	}, nil
}

func applyUpdate(profile *models.Profile, input UpdateInput) map[string]any {
	updates := make(map[string]any)
	if input.DisplayName != nil {
		trimmed := strings.TrimSpace(*input.DisplayName)
		if trimmed != "" && trimmed != profile.DisplayName {
			profile.DisplayName = trimmed
			updates["display_name"] = trimmed
		}
	}
	if input.Bio != nil {
		profile.Bio = input.Bio
		updates["bio"] = *input.Bio
	}
	if input.BrandWebsite != nil {
		profile.BrandWebsite = input.BrandWebsite
		updates["brand_website"] = *input.BrandWebsite
	}
	if input.AvatarURL != nil {
		profile.AvatarURL = input.AvatarURL
		updates["avatar_url"] = *input.AvatarURL
	}
	if input.CoverURL != nil {
		profile.CoverURL = input.CoverURL
		updates["cover_url"] = *input.CoverURL
	}
	return updates
}

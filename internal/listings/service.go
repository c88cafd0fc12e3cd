package listings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/internal/hooks"
	"github.com/revibe-app/revibe-backend/internal/lifecycle"
	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
	"github.com/revibe-app/revibe-backend/pkg/pagination"
)

// listingMachine is the status transition table for listings. Reservation
// and sale edges are also driven by the order flow; suspension edges are
// moderation and gated to admins in the service.
var listingMachine = lifecycle.NewMachine("listing", map[enums.ListingStatus][]enums.ListingStatus{
	enums.ListingStatusDraft:  {enums.ListingStatusActive, enums.ListingStatusArchived},
	enums.ListingStatusActive: {
		enums.ListingStatusDraft,
		enums.ListingStatusReserved,
		enums.ListingStatusSold,
		enums.ListingStatusArchived,
		enums.ListingStatusSuspended,
	},
	enums.ListingStatusReserved:  {enums.ListingStatusActive, enums.ListingStatusSold, enums.ListingStatusSuspended},
	enums.ListingStatusSold:      {enums.ListingStatusActive},
	enums.ListingStatusArchived:  {enums.ListingStatusDraft},
	enums.ListingStatusSuspended: {enums.ListingStatusActive, enums.ListingStatusArchived},
})

// lockedStatuses freeze field edits: buyers must see the item they committed
// to, and moderation holds are not the seller's to lift.
var lockedStatuses = []enums.ListingStatus{
	enums.ListingStatusReserved,
	enums.ListingStatusSold,
	enums.ListingStatusSuspended,
}

// Service exposes listing browse and seller CRUD.
type Service interface {
	Browse(ctx context.Context, actor authz.Principal, input BrowseInput) (*BrowsePage, error)
	Get(ctx context.Context, actor authz.Principal, id uuid.UUID) (*ListingDTO, error)
	Create(ctx context.Context, input CreateInput) (*ListingDTO, error)
	Update(ctx context.Context, input UpdateInput) (*ListingDTO, error)
	ChangeStatus(ctx context.Context, input StatusInput) (*ListingDTO, error)
	Delete(ctx context.Context, actor authz.Principal, id uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type hookRunner interface {
	Run(ctx context.Context, tx *gorm.DB, phase hooks.Phase, ev *hooks.Event) error
}

type categoryReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

type service struct {
	repo       *Repository
	categories categoryReader
	tx         txRunner
	registry   *authz.Registry
	hooks      hookRunner
}

// ServiceParams bundles the dependencies for the listings service.
type ServiceParams struct {
	Repo       *Repository
	Categories categoryReader
	TxRunner   txRunner
	Registry   *authz.Registry
	Hooks      hookRunner
}

// NewService constructs a listings service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if params.Categories == nil {
		return nil, fmt.Errorf("category reader required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("authz registry required")
	}
	if params.Hooks == nil {
		return nil, fmt.Errorf("hook engine required")
	}
	return &service{
		repo:       params.Repo,
		categories: params.Categories,
		tx:         params.TxRunner,
		registry:   params.Registry,
		hooks:      params.Hooks,
	}, nil
}

// BrowseInput is one page request over the public catalog or a closet.
type BrowseInput struct {
	Pagination pagination.Params
	Filters    BrowseFilters
}

// CreateInput adds a listing to the actor's closet.
type CreateInput struct {
	Actor       authz.Principal
	CategoryID  uuid.UUID       `json:"category_id" validate:"required"`
	Title       string          `json:"title" validate:"required,max=140"`
	Description string          `json:"description" validate:"required,max=5000"`
	Brand       *string         `json:"brand,omitempty" validate:"omitempty,max=80"`
	Size        *string         `json:"size,omitempty" validate:"omitempty,max=40"`
	Condition   string          `json:"condition" validate:"required"`
	Price       decimal.Decimal `json:"price" validate:"required"`
	Currency    string          `json:"currency,omitempty"`
	Photos      []string        `json:"photos,omitempty"`
	Publish     bool            `json:"publish,omitempty"`
}

// UpdateInput edits listing fields. Nil fields stay untouched.
type UpdateInput struct {
	Actor       authz.Principal
	ID          uuid.UUID
	CategoryID  *uuid.UUID       `json:"category_id,omitempty"`
	Title       *string          `json:"title,omitempty" validate:"omitempty,min=1,max=140"`
	Description *string          `json:"description,omitempty" validate:"omitempty,min=1,max=5000"`
	Brand       *string          `json:"brand,omitempty" validate:"omitempty,max=80"`
	Size        *string          `json:"size,omitempty" validate:"omitempty,max=40"`
	Condition   *string          `json:"condition,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Photos      *[]string        `json:"photos,omitempty"`
}

// StatusInput moves a listing along its lifecycle.
type StatusInput struct {
	Actor  authz.Principal
	ID     uuid.UUID
	Status string `json:"status" validate:"required"`
}

func (s *service) Browse(ctx context.Context, actor authz.Principal, input BrowseInput) (*BrowsePage, error) {
	query := ListQuery{
		Pagination: input.Pagination,
		Filters:    input.Filters,
	}
	// The SQL clause is the index-friendly prefilter; the policy registry
	// below stays the source of truth for what a page may contain.
	if !actor.IsAdmin() {
		query.PublicStatuses = authz.PublicListingStatuses
		if actor.HasProfile() {
			viewer := actor.ProfileID
			query.ViewerProfileID = &viewer
		}
	}

	rows, nextCursor, err := s.repo.List(ctx, query)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "browse listings")
	}
	visible := authz.Filter(s.registry, actor, authz.TableListings, rows, func(l models.Listing) any {
		listing := l
		return &listing
	})
	return &BrowsePage{Listings: fromModels(visible), NextCursor: nextCursor}, nil
}

func (s *service) Get(ctx context.Context, actor authz.Principal, id uuid.UUID) (*ListingDTO, error) {
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	// Drafts and held listings look absent to everyone but the seller and
	// admins.
	if !s.registry.CanSelect(actor, authz.TableListings, listing) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	dto := fromModel(listing)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*ListingDTO, error) {
	actor := input.Actor
	if !actor.Authenticated || !actor.HasProfile() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and description are required")
	}
	condition, err := enums.ParseListingCondition(input.Condition)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	currency, err := normalizeCurrency(input.Currency)
	if err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	status := enums.ListingStatusDraft
	if input.Publish {
		status = enums.ListingStatusActive
	}
	listing := &models.Listing{
		ID:              uuid.New(),
		SellerProfileID: actor.ProfileID,
		CategoryID:      input.CategoryID,
		Title:           title,
		Description:     description,
		Brand:           trimmedPtr(input.Brand),
		Size:            trimmedPtr(input.Size),
		Condition:       condition,
		Price:           input.Price,
		Currency:        currency,
		Photos:          pq.StringArray(input.Photos),
		Status:          status,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.registry.Authorize(actor, authz.OpInsert, authz.TableListings, listing); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Create(ctx, listing); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing")
		}
		// The seller's total_listings counter moves in the same transaction.
		return s.hooks.Run(ctx, tx, hooks.PhaseAfter, &hooks.Event{
			Table: authz.TableListings,
			Op:    hooks.OpInsert,
			Row:   listing,
		})
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(listing)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*ListingDTO, error) {
	if input.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}

	var updated *models.Listing
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		listing, err := repo.FindByIDForUpdate(ctx, input.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
		}
		if err := s.registry.Authorize(input.Actor, authz.OpUpdate, authz.TableListings, listing); err != nil {
			return err
		}
		for _, locked := range lockedStatuses {
			if listing.Status == locked {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("listing cannot be edited while %s", listing.Status))
			}
		}

		old := *listing
		updates, err := s.applyUpdate(ctx, listing, input)
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			updated = listing
			return nil
		}

		ev := &hooks.Event{Table: authz.TableListings, Op: hooks.OpUpdate, Row: listing, Old: &old}
		if err := s.hooks.Run(ctx, tx, hooks.PhaseBefore, ev); err != nil {
			return err
		}
		updates["updated_at"] = listing.UpdatedAt
		if err := repo.Update(ctx, listing.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update listing")
		}
		updated = listing
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(updated)
	return &dto, nil
}

func (s *service) ChangeStatus(ctx context.Context, input StatusInput) (*ListingDTO, error) {
	target, err := enums.ParseListingStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	var updated *models.Listing
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		listing, err := repo.FindByIDForUpdate(ctx, input.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
		}
		if err := s.registry.Authorize(input.Actor, authz.OpUpdate, authz.TableListings, listing); err != nil {
			return err
		}
		if listing.Status == target {
			updated = listing
			return nil
		}
		if target == enums.ListingStatusSuspended || listing.Status == enums.ListingStatusSuspended {
			if !input.Actor.IsAdmin() {
				return pkgerrors.New(pkgerrors.CodeForbidden, "suspension is a moderation action")
			}
		}
		if err := listingMachine.Transition(listing.Status, target); err != nil {
			return err
		}

		old := *listing
		listing.Status = target
		ev := &hooks.Event{Table: authz.TableListings, Op: hooks.OpUpdate, Row: listing, Old: &old}
		if err := s.hooks.Run(ctx, tx, hooks.PhaseBefore, ev); err != nil {
			return err
		}
		err = repo.Update(ctx, listing.ID, map[string]any{
			"status":     listing.Status,
			"updated_at": listing.UpdatedAt,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update listing status")
		}
		updated = listing
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(updated)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, actor authz.Principal, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		listing, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
		}
		if err := s.registry.Authorize(actor, authz.OpDelete, authz.TableListings, listing); err != nil {
			return err
		}
		if listing.Status != enums.ListingStatusDraft && listing.Status != enums.ListingStatusArchived {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only draft or archived listings can be deleted")
		}
		if err := repo.Delete(ctx, listing.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete listing")
		}
		return nil
	})
}

func (s *service) applyUpdate(ctx context.Context, listing *models.Listing, input UpdateInput) (map[string]any, error) {
	updates := make(map[string]any)
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		listing.Title = title
		updates["title"] = title
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "description cannot be empty")
		}
		listing.Description = description
		updates["description"] = description
	}
	if input.Brand != nil {
		listing.Brand = trimmedPtr(input.Brand)
		updates["brand"] = listing.Brand
	}
	if input.Size != nil {
		listing.Size = trimmedPtr(input.Size)
		updates["size"] = listing.Size
	}
	if input.Condition != nil {
		condition, err := enums.ParseListingCondition(*input.Condition)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		listing.Condition = condition
		updates["condition"] = condition
	}
	if input.Price != nil {
		if !input.Price.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		listing.Price = *input.Price
		updates["price"] = *input.Price
	}
	if input.Photos != nil {
		listing.Photos = pq.StringArray(*input.Photos)
		updates["photos"] = listing.Photos
	}
	if input.CategoryID != nil && *input.CategoryID != listing.CategoryID {
		if err := s.checkCategory(ctx, *input.CategoryID); err != nil {
			return nil, err
		}
		listing.CategoryID = *input.CategoryID
		updates["category_id"] = *input.CategoryID
	}
	return updates, nil
}

func (s *service) checkCategory(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "category id required")
	}
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "unknown category")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	if !category.IsActive {
		return pkgerrors.New(pkgerrors.CodeValidation, "category is retired")
	}
	return nil
}

func normalizeCurrency(value string) (string, error) {
	currency := strings.ToUpper(strings.TrimSpace(value))
	if currency == "" {
		return "USD", nil
	}
	if len(currency) != 3 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "currency must be a 3-letter code")
	}
	return currency, nil
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

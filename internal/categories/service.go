package categories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/pkg/db"
	"github.com/revibe-app/revibe-backend/pkg/db/models"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
)

// CategoryDTO is the transport shape for a browse bucket.
type CategoryDTO struct {
	ID        uuid.UUID `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Service exposes category listing and admin management.
type Service interface {
	List(ctx context.Context, actor authz.Principal) ([]CategoryDTO, error)
	Create(ctx context.Context, input CreateInput) (*CategoryDTO, error)
	Update(ctx context.Context, input UpdateInput) (*CategoryDTO, error)
}

type service struct {
	repo     *Repository
	registry *authz.Registry
}

// ServiceParams bundles the dependencies for the categories service.
type ServiceParams struct {
	Repo     *Repository
	Registry *authz.Registry
}

// NewService constructs a categories service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("categories repository required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("authz registry required")
	}
	return &service{repo: params.Repo, registry: params.Registry}, nil
}

// CreateInput adds a browse bucket. Admin only.
type CreateInput struct {
	Actor    authz.Principal
	Slug     string `json:"slug" validate:"required,max=60"`
	Name     string `json:"name" validate:"required,max=80"`
	Position int    `json:"position" validate:"gte=0"`
}

// UpdateInput renames, repositions or retires a bucket. Admin only.
type UpdateInput struct {
	Actor    authz.Principal
	ID       uuid.UUID
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=80"`
	Position *int    `json:"position,omitempty" validate:"omitempty,gte=0"`
	IsActive *bool   `json:"is_active,omitempty"`
}

func (s *service) List(ctx context.Context, actor authz.Principal) ([]CategoryDTO, error) {
	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	visible := authz.Filter(s.registry, actor, authz.TableCategories, categories, func(c models.Category) any {
		category := c
		return &category
	})
	out := make([]CategoryDTO, 0, len(visible))
	for _, c := range visible {
		out = append(out, fromModel(&c))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CategoryDTO, error) {
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	name := strings.TrimSpace(input.Name)
	if slug == "" || name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug and name are required")
	}

	category := &models.Category{
		ID:       uuid.New(),
		Slug:     slug,
		Name:     name,
		Position: input.Position,
		IsActive: true,
	}
	if err := s.registry.Authorize(input.Actor, authz.OpInsert, authz.TableCategories, category); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, category); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	dto := fromModel(category)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*CategoryDTO, error) {
	if input.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id required")
	}
	category, err := s.repo.FindByID(ctx, input.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	if err := s.registry.Authorize(input.Actor, authz.OpUpdate, authz.TableCategories, category); err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		if trimmed == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		category.Name = trimmed
		updates["name"] = trimmed
	}
	if input.Position != nil {
		category.Position = *input.Position
		updates["position"] = *input.Position
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
		updates["is_active"] = *input.IsActive
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, category.ID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update category")
		}
	}
	dto := fromModel(category)
	return &dto, nil
}

func fromModel(c *models.Category) CategoryDTO {
	return CategoryDTO{
		ID:        c.ID,
		Slug:      c.Slug,
		Name:      c.Name,
		Position:  c.Position,
		IsActive:  c.IsActive,
		CreatedAt: c.CreatedAt,
	}
}

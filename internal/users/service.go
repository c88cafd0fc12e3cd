package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/internal/audit"
	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
	"github.com/revibe-app/revibe-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type adminTrail interface {
	RecordApproval(ctx context.Context, tx *gorm.DB, in audit.ApprovalInput) (*models.AdminApproval, error)
	RecordAction(ctx context.Context, tx *gorm.DB, in audit.ActionInput) error
}

// Service exposes user account operations beyond registration.
type Service interface {
	Get(ctx context.Context, actor authz.Principal, userID uuid.UUID) (*UserDTO, error)
	Promote(ctx context.Context, input PromoteInput) (*UserDTO, error)
}

type service struct {
	repo     *Repository
	tx       txRunner
	registry *authz.Registry
	trail    adminTrail
}

// ServiceParams bundles the dependencies for the users service.
type ServiceParams struct {
	Repo     *Repository
	TxRunner txRunner
	Registry *authz.Registry
	Trail    adminTrail
}

// NewService constructs a users service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("authz registry required")
	}
	if params.Trail == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.TxRunner,
		registry: params.Registry,
		trail:    params.Trail,
	}, nil
}

// PromoteInput raises a user's role. Only admins pass; the decision is
// recorded in admin_approvals and the audit log.
type PromoteInput struct {
	Actor  authz.Principal
	UserID uuid.UUID
	Role   enums.UserRole
	Note   *string
}

func (s *service) Get(ctx context.Context, actor authz.Principal, userID uuid.UUID) (*UserDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	// Rows the actor may not read look absent, never forbidden.
	if !s.registry.CanSelect(actor, authz.TableUsers, user) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return FromModel(user), nil
}

func (s *service) Promote(ctx context.Context, input PromoteInput) (*UserDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	if input.Role == enums.UserRoleUser {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot promote to user")
	}

	var promoted *models.User
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := repo.FindByIDForUpdate(ctx, input.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}
		if err := s.registry.Authorize(input.Actor, authz.OpUpdate, authz.TableUsers, user); err != nil {
			return err
		}
		if user.Role == input.Role {
			return pkgerrors.New(pkgerrors.CodeConflict, "user already holds role")
		}

		// The approval write carries the admin-only gate: the insert policy on
		// admin_approvals rejects everyone else and rolls the role change back.
		if _, err := s.trail.RecordApproval(ctx, tx, audit.ApprovalInput{
			Actor:      input.Actor,
			Action:     enums.AdminActionApprove,
			TargetType: "user",
			TargetID:   user.ID,
			Note:       input.Note,
		}); err != nil {
			return err
		}
		if err := repo.UpdateRole(ctx, user.ID, input.Role); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update role")
		}
		if err := s.trail.RecordAction(ctx, tx, audit.ActionInput{
			Actor:       input.Actor,
			Action:      "user.promote",
			TargetTable: authz.TableUsers,
			RecordID:    &user.ID,
			Detail:      types.JSONMap{"from": string(user.Role), "to": string(input.Role)},
		}); err != nil {
			return err
		}

		user.Role = input.Role
		promoted = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(promoted), nil
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/internal/hooks"
	"github.com/revibe-app/revibe-backend/internal/profiles"
	"github.com/revibe-app/revibe-backend/internal/users"
	"github.com/revibe-app/revibe-backend/pkg/config"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
	"github.com/revibe-app/revibe-backend/pkg/security"
)

// RegisterRequest contains the payload for onboarding a personal or brand
// account. Brand accounts must name the brand; the conditional check runs
// before any row is written.
type RegisterRequest struct {
	Email        string            `json:"email" validate:"required,email"`
	Password     string            `json:"password" validate:"required,min=8"`
	AccountType  enums.AccountType `json:"account_type" validate:"required"`
	DisplayName  string            `json:"display_name,omitempty" validate:"omitempty,max=80"`
	BrandName    *string           `json:"brand_name,omitempty" validate:"required_if=AccountType brand"`
	BrandWebsite *string           `json:"brand_website,omitempty" validate:"omitempty,url"`
	AcceptTOS    bool              `json:"accept_tos"`
}

// RegisterService handles the onboarding transaction.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type hookRunner interface {
	Run(ctx context.Context, tx *gorm.DB, phase hooks.Phase, ev *hooks.Event) error
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	TxRunner       txRunner
	Hooks          hookRunner
	PasswordConfig config.PasswordConfig
}

type registerService struct {
	tx          txRunner
	hooks       hookRunner
	passwordCfg config.PasswordConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Hooks == nil {
		return nil, fmt.Errorf("hook engine required")
	}
	return &registerService{
		tx:          params.TxRunner,
		hooks:       params.Hooks,
		passwordCfg: params.PasswordConfig,
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password is required")
	}
	if !req.AccountType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid account type")
	}
	if err := validateBrandFields(req); err != nil {
		return nil, err
	}
	if !req.AcceptTOS {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "accept_tos must be true")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var resp RegisterResponse
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)

		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user email")
		}

		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: passwordHash,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}

		// The bootstrap hook allocates the username and creates the profile,
		// cart and stats rows inside this same transaction.
		ev := &hooks.Event{
			Table: authz.TableUsers,
			Op:    hooks.OpInsert,
			Row:   user,
			Attrs: hooks.ProfileSeed{
				DisplayName:  strings.TrimSpace(req.DisplayName),
				AccountType:  req.AccountType,
				BrandName:    trimmedPtr(req.BrandName),
				BrandWebsite: trimmedPtr(req.BrandWebsite),
			},
		}
		if err := s.hooks.Run(ctx, tx, hooks.PhaseAfter, ev); err != nil {
			return err
		}

		profile, err := profiles.NewRepository(tx).FindByUserID(ctx, user.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load bootstrapped profile")
		}
		resp = RegisterResponse{
			User:    users.FromModel(user),
			Profile: summarizeProfile(profile),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func validateBrandFields(req RegisterRequest) error {
	if req.AccountType == enums.AccountTypeBrand {
		if req.BrandName == nil || strings.TrimSpace(*req.BrandName) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "brand_name is required for brand accounts")
		}
		return nil
	}
	if req.BrandName != nil || req.BrandWebsite != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "brand fields only apply to brand accounts")
	}
	return nil
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

package setup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/internal/hooks"
	"github.com/revibe-app/revibe-backend/pkg/db"
	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
)

// StepDTO is one checklist entry: a known step merged with its recorded state.
type StepDTO struct {
	Step        enums.SetupStep `json:"step"`
	Required    bool            `json:"required"`
	Completed   bool            `json:"completed"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// ChecklistDTO is the onboarding state for one profile.
type ChecklistDTO struct {
	Steps            []StepDTO  `json:"steps"`
	SetupCompleted   bool       `json:"setup_completed"`
	SetupCompletedAt *time.Time `json:"setup_completed_at,omitempty"`
}

// Service exposes the onboarding checklist.
type Service interface {
	Checklist(ctx context.Context, actor authz.Principal) (*ChecklistDTO, error)
	CompleteStep(ctx context.Context, input CompleteStepInput) (*ChecklistDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type hookRunner interface {
	Run(ctx context.Context, tx *gorm.DB, phase hooks.Phase, ev *hooks.Event) error
}

type profileReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type service struct {
	repo     *Repository
	profiles profileReader
	tx       txRunner
	registry *authz.Registry
	hooks    hookRunner
	now      func() time.Time
}

// ServiceParams bundles the dependencies for the setup service.
type ServiceParams struct {
	Repo     *Repository
	Profiles profileReader
	TxRunner txRunner
	Registry *authz.Registry
	Hooks    hookRunner
}

// NewService constructs a setup service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("setup repository required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile reader required")
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
		repo:     params.Repo,
		profiles: params.Profiles,
		tx:       params.TxRunner,
		registry: params.Registry,
		hooks:    params.Hooks,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// CompleteStepInput marks one onboarding step done for the actor's profile.
type CompleteStepInput struct {
	Actor authz.Principal
	Step  string `json:"step" validate:"required"`
}

func (s *service) Checklist(ctx context.Context, actor authz.Principal) (*ChecklistDTO, error) {
	if !actor.Authenticated || !actor.HasProfile() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return s.assembleChecklist(ctx, actor)
}

func (s *service) CompleteStep(ctx context.Context, input CompleteStepInput) (*ChecklistDTO, error) {
	actor := input.Actor
	if !actor.Authenticated || !actor.HasProfile() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	step, err := enums.ParseSetupStep(input.Step)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		progress, err := repo.FindStepForUpdate(ctx, actor.ProfileID, step)
		switch {
		case err == nil:
			return s.markExisting(ctx, tx, repo, actor, progress)
		case errors.Is(err, gorm.ErrRecordNotFound):
			return s.recordNew(ctx, tx, repo, actor, step)
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load setup step")
		}
	})
	if err != nil {
		return nil, err
	}
	return s.assembleChecklist(ctx, actor)
}

func (s *service) recordNew(ctx context.Context, tx *gorm.DB, repo *Repository, actor authz.Principal, step enums.SetupStep) error {
	now := s.now()
	progress := &models.SetupProgress{
		ID:          uuid.New(),
		ProfileID:   actor.ProfileID,
		Step:        step,
		Completed:   true,
		CompletedAt: &now,
	}
	if err := s.registry.Authorize(actor, authz.OpInsert, authz.TableSetupProgress, progress); err != nil {
		return err
	}
	if err := repo.Create(ctx, progress); err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.New(pkgerrors.CodeConflict, "step already recorded")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record setup step")
	}
	return s.hooks.Run(ctx, tx, hooks.PhaseAfter, &hooks.Event{
		Table: authz.TableSetupProgress,
		Op:    hooks.OpInsert,
		Row:   progress,
	})
}

func (s *service) markExisting(ctx context.Context, tx *gorm.DB, repo *Repository, actor authz.Principal, progress *models.SetupProgress) error {
	// Re-completing is a no-op so completed_at never moves.
	if progress.Completed {
		return nil
	}
	if err := s.registry.Authorize(actor, authz.OpUpdate, authz.TableSetupProgress, progress); err != nil {
		return err
	}

	old := *progress
	now := s.now()
	progress.Completed = true
	progress.CompletedAt = &now
	ev := &hooks.Event{
		Table: authz.TableSetupProgress,
		Op:    hooks.OpUpdate,
		Row:   progress,
		Old:   &old,
	}
	if err := s.hooks.Run(ctx, tx, hooks.PhaseBefore, ev); err != nil {
		return err
	}
	err := repo.Update(ctx, progress.ID, map[string]any{
		"completed":    true,
		"completed_at": progress.CompletedAt,
		"updated_at":   progress.UpdatedAt,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update setup step")
	}
	return s.hooks.Run(ctx, tx, hooks.PhaseAfter, ev)
}

func (s *service) assembleChecklist(ctx context.Context, actor authz.Principal) (*ChecklistDTO, error) {
	profile, err := s.profiles.FindByID(ctx, actor.ProfileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}

	rows, err := s.repo.ListByProfile(ctx, actor.ProfileID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list setup steps")
	}
	visible := authz.Filter(s.registry, actor, authz.TableSetupProgress, rows, func(sp models.SetupProgress) any {
		row := sp
		return &row
	})
	recorded := make(map[enums.SetupStep]models.SetupProgress, len(visible))
	for _, row := range visible {
		recorded[row.Step] = row
	}

	steps := enums.AllSetupSteps()
	out := &ChecklistDTO{
		Steps:            make([]StepDTO, 0, len(steps)),
		SetupCompleted:   profile.SetupCompleted,
		SetupCompletedAt: profile.SetupCompletedAt,
	}
	for _, step := range steps {
		dto := StepDTO{Step: step, Required: step.IsRequired()}
		if row, ok := recorded[step]; ok {
			dto.Completed = row.Completed
			dto.CompletedAt = row.CompletedAt
		}
		out.Steps = append(out.Steps, dto)
	}
	return out, nil
}

package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/internal/audit"
	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/internal/hooks"
	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
	"github.com/revibe-app/revibe-backend/pkg/pagination"
	"github.com/revibe-app/revibe-backend/pkg/types"
)

// decidableStatuses are the request states an admin may still rule on. There
// are only two open states, so the sequencing lives here rather than in a
// lifecycle machine.
var decidableStatuses = []enums.VerificationStatus{
	enums.VerificationStatusPending,
	enums.VerificationStatusMoreInfoNeeded,
}

// Service runs brand verification: owners apply and may edit the application
// while it is pending; admins approve, reject, ask for more information, or
// revoke a verification already granted. Approvals and revocations land in
// admin_approvals, every admin move in the audit log.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*RequestDTO, error)
	List(ctx context.Context, actor authz.Principal, input ListInput) (*RequestPage, error)
	Get(ctx context.Context, actor authz.Principal, id uuid.UUID) (*RequestDTO, error)
	Update(ctx context.Context, input UpdateInput) (*RequestDTO, error)
	Approve(ctx context.Context, input DecisionInput) (*RequestDTO, error)
	Reject(ctx context.Context, input DecisionInput) (*RequestDTO, error)
	RequestInfo(ctx context.Context, input DecisionInput) (*RequestDTO, error)
	Revoke(ctx context.Context, input RevokeInput) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type hookRunner interface {
	Run(ctx context.Context, tx *gorm.DB, phase hooks.Phase, ev *hooks.Event) error
}

type adminTrail interface {
	RecordApproval(ctx context.Context, tx *gorm.DB, in audit.ApprovalInput) (*models.AdminApproval, error)
	RecordAction(ctx context.Context, tx *gorm.DB, in audit.ActionInput) error
}

type service struct {
	repo     *Repository
	tx       txRunner
	registry *authz.Registry
	hooks    hookRunner
	trail    adminTrail
}

// ServiceParams bundles the dependencies for the verification service.
type ServiceParams struct {
	Repo     *Repository
	TxRunner txRunner
	Registry *authz.Registry
	Hooks    hookRunner
	Trail    adminTrail
}

// NewService constructs a verification service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("verification repository required")
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
	if params.Trail == nil {
		return nil, fmt.Errorf("audit trail required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.TxRunner,
		registry: params.Registry,
		hooks:    params.Hooks,
		trail:    params.Trail,
	}, nil
}

// SubmitInput is a brand's application for the verified badge.
type SubmitInput struct {
	Actor              authz.Principal `json:"-"`
	BrandName          string          `json:"brand_name" validate:"required,max=200"`
	Website            *string         `json:"website,omitempty" validate:"omitempty,url,max=500"`
	RegistrationNumber *string         `json:"registration_number,omitempty" validate:"omitempty,max=100"`
	DocumentsPath      *string         `json:"documents_path,omitempty" validate:"omitempty,max=500"`
}

// ListInput selects one page of verification requests. ProfileID only takes
// effect for admins; everyone else is scoped to their own applications.
type ListInput struct {
	Pagination pagination.Params
	ProfileID  *uuid.UUID
	Status     string
}

// UpdateInput edits an application. Nil fields keep their current value.
type UpdateInput struct {
	Actor              authz.Principal `json:"-"`
	RequestID          uuid.UUID       `json:"-"`
	BrandName          *string         `json:"brand_name,omitempty" validate:"omitempty,min=1,max=200"`
	Website            *string         `json:"website,omitempty" validate:"omitempty,url,max=500"`
	RegistrationNumber *string         `json:"registration_number,omitempty" validate:"omitempty,max=100"`
	DocumentsPath      *string         `json:"documents_path,omitempty" validate:"omitempty,max=500"`
}

// DecisionInput carries an admin ruling on a verification request.
type DecisionInput struct {
	Actor     authz.Principal `json:"-"`
	RequestID uuid.UUID       `json:"-"`
	Note      *string         `json:"note,omitempty" validate:"omitempty,max=1000"`
}

// RevokeInput withdraws a previously granted verification from a profile.
type RevokeInput struct {
	Actor     authz.Principal `json:"-"`
	ProfileID uuid.UUID       `json:"-"`
	Note      *string         `json:"note,omitempty" validate:"omitempty,max=1000"`
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*RequestDTO, error) {
	actor := input.Actor
	if !actor.Authenticated || !actor.HasProfile() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	brandName := strings.TrimSpace(input.BrandName)
	if brandName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "brand name is required")
	}

	var request *models.BrandVerificationRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// The profile lock serializes double submits on the probe below.
		profile, err := repo.FindProfileForUpdate(ctx, actor.ProfileID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
		}
		if profile.AccountType != enums.AccountTypeBrand {
			return pkgerrors.New(pkgerrors.CodeValidation, "only brand accounts request verification")
		}
		if profile.IsBrandVerified {
			return pkgerrors.New(pkgerrors.CodeConflict, "profile is already verified")
		}
		pending, err := repo.HasPendingRequest(ctx, profile.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "probe verification requests")
		}
		if pending {
			return pkgerrors.New(pkgerrors.CodeConflict, "a verification request is already in review")
		}

		request = &models.BrandVerificationRequest{
			ID:                 uuid.New(),
			ProfileID:          profile.ID,
			BrandName:          brandName,
			Website:            input.Website,
			RegistrationNumber: input.RegistrationNumber,
			DocumentsPath:      input.DocumentsPath,
			Status:             enums.VerificationStatusPending,
		}
		if err := s.registry.Authorize(actor, authz.OpInsert, authz.TableBrandVerificationRequests, request); err != nil {
			return err
		}
		if err := repo.Create(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create verification request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(request)
	return &dto, nil
}

func (s *service) List(ctx context.Context, actor authz.Principal, input ListInput) (*RequestPage, error) {
	if !actor.Authenticated {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	query := ListQuery{Pagination: input.Pagination}
	if actor.IsAdmin() {
		query.ProfileID = input.ProfileID
	} else {
		if !actor.HasProfile() {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
		}
		own := actor.ProfileID
		query.ProfileID = &own
	}
	if input.Status != "" {
		status, err := enums.ParseVerificationStatus(input.Status)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		query.Status = &status
	}

	rows, nextCursor, err := s.repo.List(ctx, query)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list verification requests")
	}
	visible := authz.Filter(s.registry, actor, authz.TableBrandVerificationRequests, rows, func(r models.BrandVerificationRequest) any {
		row := r
		return &row
	})
	return &RequestPage{Requests: fromModels(visible), NextCursor: nextCursor}, nil
}

func (s *service) Get(ctx context.Context, actor authz.Principal, id uuid.UUID) (*RequestDTO, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "verification request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load verification request")
	}
	if !s.registry.CanSelect(actor, authz.TableBrandVerificationRequests, request) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "verification request not found")
	}
	dto := fromModel(request)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*RequestDTO, error) {
	actor := input.Actor
	if !actor.Authenticated {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	var request *models.BrandVerificationRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.lockRequest(ctx, repo, actor, input.RequestID)
		if err != nil {
			return err
		}
		request = loaded

		// The update policy owns the window: owners pass only while the
		// request is still pending.
		if err := s.registry.Authorize(actor, authz.OpUpdate, authz.TableBrandVerificationRequests, request); err != nil {
			return err
		}

		old := *request
		updates := applyUpdate(request, input)
		if len(updates) == 0 {
			return nil
		}
		ev := &hooks.Event{Table: authz.TableBrandVerificationRequests, Op: hooks.OpUpdate, Row: request, Old: &old}
		if err := s.hooks.Run(ctx, tx, hooks.PhaseBefore, ev); err != nil {
			return err
		}
		updates["updated_at"] = request.UpdatedAt
		if err := repo.Update(ctx, request.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update verification request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(request)
	return &dto, nil
}

func applyUpdate(request *models.BrandVerificationRequest, input UpdateInput) map[string]any {
	updates := make(map[string]any)
	if input.BrandName != nil {
		trimmed := strings.TrimSpace(*input.BrandName)
		if trimmed != "" && trimmed != request.BrandName {
			request.BrandName = trimmed
			updates["brand_name"] = trimmed
		}
	}
	if input.Website != nil {
		request.Website = input.Website
		updates["website"] = *input.Website
	}
	if input.RegistrationNumber != nil {
		request.RegistrationNumber = input.RegistrationNumber
		updates["registration_number"] = *input.RegistrationNumber
	}
	if input.DocumentsPath != nil {
		request.DocumentsPath = input.DocumentsPath
		updates["documents_path"] = *input.DocumentsPath
	}
	return updates
}

// Approve grants the badge: the request closes, the profile's verified flag
// flips, and the decision lands in admin_approvals.
func (s *service) Approve(ctx context.Context, input DecisionInput) (*RequestDTO, error) {
	if !input.Actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	var request *models.BrandVerificationRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.lockDecidable(ctx, repo, input.Actor, input.RequestID)
		if err != nil {
			return err
		}
		request = loaded

		if _, err := s.trail.RecordApproval(ctx, tx, audit.ApprovalInput{
			Actor:      input.Actor,
			Action:     enums.AdminActionApprove,
			TargetType: "brand_verification_request",
			TargetID:   request.ID,
			Note:       input.Note,
		}); err != nil {
			return err
		}
		if err := s.writeDecision(ctx, tx, repo, input.Actor, request, enums.VerificationStatusApproved, input.Note); err != nil {
			return err
		}
		if err := s.setProfileVerified(ctx, tx, repo, input.Actor, request.ProfileID, true); err != nil {
			return err
		}
		return s.recordVerificationAction(ctx, tx, input.Actor, request, "verification.approve")
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(request)
	return &dto, nil
}

// Reject closes the request without the badge. The note tells the applicant
// why.
func (s *service) Reject(ctx context.Context, input DecisionInput) (*RequestDTO, error) {
	if !input.Actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if trimmedNote(input.Note) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a review note is required")
	}

	var request *models.BrandVerificationRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.lockDecidable(ctx, repo, input.Actor, input.RequestID)
		if err != nil {
			return err
		}
		request = loaded

		if _, err := s.trail.RecordApproval(ctx, tx, audit.ApprovalInput{
			Actor:      input.Actor,
			Action:     enums.AdminActionReject,
			TargetType: "brand_verification_request",
			TargetID:   request.ID,
			Note:       input.Note,
		}); err != nil {
			return err
		}
		if err := s.writeDecision(ctx, tx, repo, input.Actor, request, enums.VerificationStatusRejected, input.Note); err != nil {
			return err
		}
		return s.recordVerificationAction(ctx, tx, input.Actor, request, "verification.reject")
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(request)
	return &dto, nil
}

// RequestInfo sends the application back to the applicant. It is not a final
// ruling, so no admin_approvals row is written; the owner answers with a
// fresh submission since edits close at pending.
func (s *service) RequestInfo(ctx context.Context, input DecisionInput) (*RequestDTO, error) {
	if !input.Actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if trimmedNote(input.Note) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a review note is required")
	}

	var request *models.BrandVerificationRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.lockRequest(ctx, repo, input.Actor, input.RequestID)
		if err != nil {
			return err
		}
		request = loaded
		if request.Status != enums.VerificationStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "verification request is not awaiting review")
		}
		if err := s.writeDecision(ctx, tx, repo, input.Actor, request, enums.VerificationStatusMoreInfoNeeded, input.Note); err != nil {
			return err
		}
		return s.recordVerificationAction(ctx, tx, input.Actor, request, "verification.request_info")
	})
	if err != nil {
		return nil, err
	}
	dto := fromModel(request)
	return &dto, nil
}

// Revoke withdraws the badge from a verified profile.
func (s *service) Revoke(ctx context.Context, input RevokeInput) error {
	if !input.Actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if input.ProfileID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "profile id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		profile, err := repo.FindProfileForUpdate(ctx, input.ProfileID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
		}
		if !profile.IsBrandVerified {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "profile is not verified")
		}

		if _, err := s.trail.RecordApproval(ctx, tx, audit.ApprovalInput{
			Actor:      input.Actor,
			Action:     enums.AdminActionRevoke,
			TargetType: "profile",
			TargetID:   profile.ID,
			Note:       input.Note,
		}); err != nil {
			return err
		}
		if err := s.flipVerified(ctx, tx, repo, input.Actor, profile, false); err != nil {
			return err
		}
		return s.trail.RecordAction(ctx, tx, audit.ActionInput{
			Actor:       input.Actor,
			Action:      "verification.revoke",
			TargetTable: authz.TableProfiles,
			RecordID:    &profile.ID,
			Detail:      types.JSONMap{"profile_id": profile.ID.String()},
		})
	})
}

func (s *service) lockRequest(ctx context.Context, repo *Repository, actor authz.Principal, id uuid.UUID) (*models.BrandVerificationRequest, error) {
	request, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "verification request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load verification request")
	}
	if !s.registry.CanSelect(actor, authz.TableBrandVerificationRequests, request) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "verification request not found")
	}
	return request, nil
}

func (s *service) lockDecidable(ctx context.Context, repo *Repository, actor authz.Principal, id uuid.UUID) (*models.BrandVerificationRequest, error) {
	request, err := s.lockRequest(ctx, repo, actor, id)
	if err != nil {
		return nil, err
	}
	for _, status := range decidableStatuses {
		if request.Status == status {
			return request, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "verification request has already been decided")
}

// writeDecision stamps the ruling onto the request row.
func (s *service) writeDecision(ctx context.Context, tx *gorm.DB, repo *Repository, actor authz.Principal, request *models.BrandVerificationRequest, target enums.VerificationStatus, note *string) error {
	if err := s.registry.Authorize(actor, authz.OpUpdate, authz.TableBrandVerificationRequests, request); err != nil {
		return err
	}

	old := *request
	request.Status = target
	reviewer := actor.UserID
	request.ReviewerUserID = &reviewer
	request.ReviewNote = note
	ev := &hooks.Event{Table: authz.TableBrandVerificationRequests, Op: hooks.OpUpdate, Row: request, Old: &old}
	if err := s.hooks.Run(ctx, tx, hooks.PhaseBefore, ev); err != nil {
		return err
	}
	updates := map[string]any{
		"verification_status": target,
		"reviewer_user_id":    reviewer,
		"updated_at":          request.UpdatedAt,
	}
	if note != nil {
		updates["review_note"] = *note
	}
	if err := repo.Update(ctx, request.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update verification request")
	}
	return nil
}

func (s *service) setProfileVerified(ctx context.Context, tx *gorm.DB, repo *Repository, actor authz.Principal, profileID uuid.UUID, verified bool) error {
	profile, err := repo.FindProfileForUpdate(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	if profile.IsBrandVerified == verified {
		return nil
	}
	return s.flipVerified(ctx, tx, repo, actor, profile, verified)
}

func (s *service) flipVerified(ctx context.Context, tx *gorm.DB, repo *Repository, actor authz.Principal, profile *models.Profile, verified bool) error {
	if err := s.registry.Authorize(actor, authz.OpUpdate, authz.TableProfiles, profile); err != nil {
		return err
	}
	old := *profile
	profile.IsBrandVerified = verified
	ev := &hooks.Event{Table: authz.TableProfiles, Op: hooks.OpUpdate, Row: profile, Old: &old}
	if err := s.hooks.Run(ctx, tx, hooks.PhaseBefore, ev); err != nil {
		return err
	}
	updates := map[string]any{
		"is_brand_verified": verified,
		"updated_at":        profile.UpdatedAt,
	}
	if err := repo.UpdateProfile(ctx, profile.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
	}
	return nil
}

func (s *service) recordVerificationAction(ctx context.Context, tx *gorm.DB, actor authz.Principal, request *models.BrandVerificationRequest, action string) error {
	recordID := request.ID
	return s.trail.RecordAction(ctx, tx, audit.ActionInput{
		Actor:       actor,
		Action:      action,
		TargetTable: authz.TableBrandVerificationRequests,
		RecordID:    &recordID,
		Detail: types.JSONMap{
			"profile_id": request.ProfileID.String(),
			"brand_name": request.BrandName,
		},
	})
}

func trimmedNote(note *string) string {
	if note == nil {
		return ""
	}
	return strings.TrimSpace(*note)
}

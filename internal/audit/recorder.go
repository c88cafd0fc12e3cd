package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
	"github.com/revibe-app/revibe-backend/pkg/types"
)

// Recorder writes the administrative trail: approvals, audit entries and
// security events. Approvals are authorized as the acting admin; the other
// two tables are service-written and bypass request-scoped policies.
type Recorder struct {
	registry *authz.Registry
	db       *gorm.DB
}

// NewRecorder builds a recorder over the given policy registry. The DB handle
// is used for security events only; approvals and audit entries always join
// the caller's transaction.
func NewRecorder(registry *authz.Registry, db *gorm.DB) (*Recorder, error) {
	if registry == nil {
		return nil, fmt.Errorf("authz registry required")
	}
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	return &Recorder{registry: registry, db: db}, nil
}

// ApprovalInput captures one administrative decision.
type ApprovalInput struct {
	Actor      authz.Principal
	Action     enums.AdminAction
	TargetType string
	TargetID   uuid.UUID
	Note       *string
}

// RecordApproval appends an admin_approvals row inside the caller's
// transaction. The actor must pass the table's insert policy.
func (r *Recorder) RecordApproval(ctx context.Context, tx *gorm.DB, in ApprovalInput) (*models.AdminApproval, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	approval := &models.AdminApproval{
		ID:          uuid.New(),
		AdminUserID: in.Actor.UserID,
		Action:      in.Action,
		TargetType:  in.TargetType,
		TargetID:    in.TargetID,
		Note:        in.Note,
	}
	if err := r.registry.Authorize(in.Actor, authz.OpInsert, authz.TableAdminApprovals, approval); err != nil {
		return nil, err
	}
	if err := tx.WithContext(ctx).Create(approval).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record admin approval")
	}
	return approval, nil
}

// ActionInput describes one privileged write for the audit log.
type ActionInput struct {
	Actor       authz.Principal
	Action      string
	TargetTable string
	RecordID    *uuid.UUID
	Detail      types.JSONMap
}

// RecordAction appends an audit entry inside the caller's transaction. The
// write itself runs as the service role; the acting admin is recorded in the
// row.
func (r *Recorder) RecordAction(ctx context.Context, tx *gorm.DB, in ActionInput) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	entry := &models.AdminAuditLog{
		ID:          uuid.New(),
		AdminUserID: in.Actor.UserID,
		Action:      in.Action,
		TargetTable: in.TargetTable,
		RecordID:    in.RecordID,
		Detail:      in.Detail,
	}
	if err := r.registry.Authorize(authz.Service(), authz.OpInsert, authz.TableAdminAuditLog, entry); err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record audit entry")
	}
	return nil
}

// RecordSecurityEvent appends a security_events row. It writes outside any
// domain transaction so a failed login still leaves a trace.
func (r *Recorder) RecordSecurityEvent(ctx context.Context, kind string, detail types.JSONMap) error {
	event := &models.SecurityEvent{
		ID:     uuid.New(),
		Kind:   kind,
		Detail: detail,
	}
	if err := r.registry.Authorize(authz.Service(), authz.OpInsert, authz.TableSecurityEvents, event); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record security event")
	}
	return nil
}

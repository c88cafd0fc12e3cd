package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
	"github.com/revibe-app/revibe-backend/pkg/pagination"
	"github.com/revibe-app/revibe-backend/pkg/types"
)

// Reader serves the admin review surfaces over the trail the Recorder writes.
type Reader struct {
	registry *authz.Registry
	db       *gorm.DB
}

// NewReader builds a reader over the given policy registry and DB handle.
func NewReader(registry *authz.Registry, db *gorm.DB) (*Reader, error) {
	if registry == nil {
		return nil, fmt.Errorf("authz registry required")
	}
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	return &Reader{registry: registry, db: db}, nil
}

// EntryDTO is one audit log line.
type EntryDTO struct {
	ID          uuid.UUID     `json:"id"`
	AdminUserID uuid.UUID     `json:"admin_user_id"`
	Action      string        `json:"action"`
	TargetTable string        `json:"target_table"`
	RecordID    *uuid.UUID    `json:"record_id,omitempty"`
	Detail      types.JSONMap `json:"detail,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// EntryPage is one keyset page of audit entries.
type EntryPage struct {
	Entries    []EntryDTO `json:"entries"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// EntriesQuery narrows the audit log page. All filters are optional.
type EntriesQuery struct {
	Pagination  pagination.Params
	Action      string
	TargetTable string
	AdminUserID *uuid.UUID
}

// ListEntries returns one page of the audit log, newest first. Admin only.
func (r *Reader) ListEntries(ctx context.Context, actor authz.Principal, query EntriesQuery) (*EntryPage, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	cursor, err := pagination.Parse(query.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Model(&models.AdminAuditLog{})
	if action := strings.TrimSpace(query.Action); action != "" {
		qb = qb.Where("action = ?", action)
	}
	if table := strings.TrimSpace(query.TargetTable); table != "" {
		qb = qb.Where("table_name = ?", table)
	}
	if query.AdminUserID != nil {
		qb = qb.Where("admin_user_id = ?", *query.AdminUserID)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.AdminAuditLog
	err = qb.Order("created_at DESC").Order("id DESC").
		Limit(pagination.FetchSize(query.Pagination.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit entries")
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}

	visible := authz.Filter(r.registry, actor, authz.TableAdminAuditLog, rows, func(e models.AdminAuditLog) any {
		return &e
	})

	out := make([]EntryDTO, 0, len(visible))
	for i := range visible {
		out = append(out, EntryDTO{
			ID:          visible[i].ID,
			AdminUserID: visible[i].AdminUserID,
			Action:      visible[i].Action,
			TargetTable: visible[i].TargetTable,
			RecordID:    visible[i].RecordID,
			Detail:      visible[i].Detail,
			CreatedAt:   visible[i].CreatedAt,
		})
	}
	return &EntryPage{Entries: out, NextCursor: nextCursor}, nil
}

// ApprovalDTO is one recorded admin ruling.
type ApprovalDTO struct {
	ID          uuid.UUID         `json:"id"`
	AdminUserID uuid.UUID         `json:"admin_user_id"`
	Action      enums.AdminAction `json:"action"`
	TargetType  string            `json:"target_type"`
	TargetID    uuid.UUID         `json:"target_id"`
	Note        *string           `json:"note,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ApprovalPage is one keyset page of approvals.
type ApprovalPage struct {
	Approvals  []ApprovalDTO `json:"approvals"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// ApprovalsQuery narrows the approvals page. All filters are optional.
type ApprovalsQuery struct {
	Pagination  pagination.Params
	Action      string
	TargetType  string
	AdminUserID *uuid.UUID
}

// ListApprovals returns one page of admin approvals, newest first. Admin only.
func (r *Reader) ListApprovals(ctx context.Context, actor authz.Principal, query ApprovalsQuery) (*ApprovalPage, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	cursor, err := pagination.Parse(query.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Model(&models.AdminApproval{})
	if raw := strings.TrimSpace(query.Action); raw != "" {
		action, err := enums.ParseAdminAction(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action filter")
		}
		qb = qb.Where("action = ?", action)
	}
	if target := strings.TrimSpace(query.TargetType); target != "" {
		qb = qb.Where("target_type = ?", target)
	}
	if query.AdminUserID != nil {
		qb = qb.Where("admin_user_id = ?", *query.AdminUserID)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.AdminApproval
	err = qb.Order("created_at DESC").Order("id DESC").
		Limit(pagination.FetchSize(query.Pagination.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list admin approvals")
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}

	visible := authz.Filter(r.registry, actor, authz.TableAdminApprovals, rows, func(a models.AdminApproval) any {
		return &a
	})

	out := make([]ApprovalDTO, 0, len(visible))
	for i := range visible {
		out = append(out, ApprovalDTO{
			ID:          visible[i].ID,
			AdminUserID: visible[i].AdminUserID,
			Action:      visible[i].Action,
			TargetType:  visible[i].TargetType,
			TargetID:    visible[i].TargetID,
			Note:        visible[i].Note,
			CreatedAt:   visible[i].CreatedAt,
		})
	}
	return &ApprovalPage{Approvals: out, NextCursor: nextCursor}, nil
}

func requireAdmin(actor authz.Principal) error {
	if !actor.Authenticated {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}

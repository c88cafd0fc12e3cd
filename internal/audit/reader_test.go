package audit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
	"github.com/revibe-app/revibe-backend/pkg/pagination"
	"github.com/revibe-app/revibe-backend/pkg/types"
)

func newTestReader(t *testing.T, db *gorm.DB) *Reader {
	t.Helper()
	reader, err := NewReader(authz.BuildRegistry(nil), db)
	require.NoError(t, err)
	return reader
}

func userPrincipal() authz.Principal {
	return authz.Principal{
		UserID:        uuid.New(),
		ProfileID:     uuid.New(),
		Role:          enums.UserRoleUser,
		Authenticated: true,
	}
}

func seedTrail(t *testing.T, db *gorm.DB, rec *Recorder, admin authz.Principal) (uuid.UUID, uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	promoted := uuid.New()
	refunded := uuid.New()
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := rec.RecordApproval(ctx, tx, ApprovalInput{
			Actor:      admin,
			Action:     enums.AdminActionApprove,
			TargetType: "user",
			TargetID:   promoted,
		}); err != nil {
			return err
		}
		if err := rec.RecordAction(ctx, tx, ActionInput{
			Actor:       admin,
			Action:      "user.promote",
			TargetTable: "users",
			RecordID:    &promoted,
			Detail:      types.JSONMap{"role": "admin"},
		}); err != nil {
			return err
		}
		if _, err := rec.RecordApproval(ctx, tx, ApprovalInput{
			Actor:      admin,
			Action:     enums.AdminActionRevoke,
			TargetType: "profile",
			TargetID:   refunded,
		}); err != nil {
			return err
		}
		return rec.RecordAction(ctx, tx, ActionInput{
			Actor:       admin,
			Action:      "order.refund",
			TargetTable: "orders",
			RecordID:    &refunded,
		})
	})
	require.NoError(t, err)
	return promoted, refunded
}

func TestListEntriesAdminOnly(t *testing.T) {
	t.Parallel()

	db := setupAuditTestDB(t)
	rec := newTestRecorder(t, db)
	reader := newTestReader(t, db)
	admin := adminPrincipal()
	promoted, _ := seedTrail(t, db, rec, admin)
	ctx := context.Background()

	_, err := reader.ListEntries(ctx, userPrincipal(), EntriesQuery{})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
	_, err = reader.ListEntries(ctx, authz.Anonymous(), EntriesQuery{})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))

	page, err := reader.ListEntries(ctx, admin, EntriesQuery{Pagination: pagination.Params{Limit: 10}})
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)

	page, err = reader.ListEntries(ctx, admin, EntriesQuery{
		Pagination: pagination.Params{Limit: 10},
		Action:     "user.promote",
	})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	require.Equal(t, "users", page.Entries[0].TargetTable)
	require.NotNil(t, page.Entries[0].RecordID)
	require.Equal(t, promoted, *page.Entries[0].RecordID)
	require.Equal(t, "admin", page.Entries[0].Detail["role"])

	page, err = reader.ListEntries(ctx, admin, EntriesQuery{
		Pagination:  pagination.Params{Limit: 10},
		TargetTable: "orders",
	})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)

	other := uuid.New()
	page, err = reader.ListEntries(ctx, admin, EntriesQuery{
		Pagination:  pagination.Params{Limit: 10},
		AdminUserID: &other,
	})
	require.NoError(t, err)
	require.Empty(t, page.Entries)
}

func TestListEntriesPaging(t *testing.T) {
	t.Parallel()

	db := setupAuditTestDB(t)
	rec := newTestRecorder(t, db)
	reader := newTestReader(t, db)
	admin := adminPrincipal()
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		for i := 0; i < 5; i++ {
			if err := rec.RecordAction(ctx, tx, ActionInput{
				Actor:       admin,
				Action:      "dispute.resolve",
				TargetTable: "disputes",
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	seen := map[uuid.UUID]bool{}
	cursor := ""
	for i := 0; i < 3; i++ {
		page, err := reader.ListEntries(ctx, admin, EntriesQuery{
			Pagination: pagination.Params{Limit: 2, Cursor: cursor},
		})
		require.NoError(t, err)
		for _, entry := range page.Entries {
			require.False(t, seen[entry.ID])
			seen[entry.ID] = true
		}
		cursor = page.NextCursor
		if cursor == "" {
			break
		}
	}
	require.Len(t, seen, 5)
}

func TestListApprovals(t *testing.T) {
	t.Parallel()

	db := setupAuditTestDB(t)
	rec := newTestRecorder(t, db)
	reader := newTestReader(t, db)
	admin := adminPrincipal()
	promoted, _ := seedTrail(t, db, rec, admin)
	ctx := context.Background()

	_, err := reader.ListApprovals(ctx, userPrincipal(), ApprovalsQuery{})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	page, err := reader.ListApprovals(ctx, admin, ApprovalsQuery{Pagination: pagination.Params{Limit: 10}})
	require.NoError(t, err)
	require.Len(t, page.Approvals, 2)

	page, err = reader.ListApprovals(ctx, admin, ApprovalsQuery{
		Pagination: pagination.Params{Limit: 10},
		Action:     "approve",
	})
	require.NoError(t, err)
	require.Len(t, page.Approvals, 1)
	require.Equal(t, promoted, page.Approvals[0].TargetID)
	require.Equal(t, "user", page.Approvals[0].TargetType)

	page, err = reader.ListApprovals(ctx, admin, ApprovalsQuery{
		Pagination: pagination.Params{Limit: 10},
		TargetType: "profile",
	})
	require.NoError(t, err)
	require.Len(t, page.Approvals, 1)
	require.Equal(t, enums.AdminActionRevoke, page.Approvals[0].Action)

	_, err = reader.ListApprovals(ctx, admin, ApprovalsQuery{
		Pagination: pagination.Params{Limit: 10},
		Action:     "bless",
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

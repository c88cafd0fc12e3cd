package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/revibe-app/revibe-backend/internal/audit"
	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:users_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	ddl := []string{
		`CREATE TABLE users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user',
			is_active INTEGER NOT NULL DEFAULT 1,
			last_login_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE admin_approvals (
			id TEXT PRIMARY KEY,
			admin_user_id TEXT NOT NULL,
			action TEXT NOT NULL,
			target_type TEXT NOT NULL,
			target_id TEXT NOT NULL,
			note TEXT,
			created_at DATETIME
		)`,
		`CREATE TABLE admin_audit_log (
			id TEXT PRIMARY KEY,
			admin_user_id TEXT NOT NULL,
			action TEXT NOT NULL,
			table_name TEXT NOT NULL,
			record_id TEXT,
			detail TEXT,
			created_at DATETIME
		)`,
	}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newUsersTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	trail, err := audit.NewRecorder(authz.BuildRegistry(nil), db)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(db),
		TxRunner: gormTxRunner{db: db},
		Registry: authz.BuildRegistry(nil),
		Trail:    trail,
	})
	require.NoError(t, err)
	return svc
}

func seedUser(t *testing.T, db *gorm.DB, email string, role enums.UserRole) *models.User {
	t.Helper()

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func principalFor(user *models.User) authz.Principal {
	return authz.Principal{
		UserID:        user.ID,
		ProfileID:     uuid.New(),
		Role:          user.Role,
		Authenticated: true,
	}
}

func TestPromoteByAdminRecordsTrail(t *testing.T) {
	t.Parallel()

	db := setupUsersTestDB(t)
	svc := newUsersTestService(t, db)
	admin := seedUser(t, db, "admin@example.com", enums.UserRoleAdmin)
	target := seedUser(t, db, "vera@example.com", enums.UserRoleUser)

	dto, err := svc.Promote(context.Background(), PromoteInput{
		Actor:  principalFor(admin),
		UserID: target.ID,
		Role:   enums.UserRoleModerator,
	})
	require.NoError(t, err)
	require.Equal(t, enums.UserRoleModerator, dto.Role)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", target.ID).Error)
	require.Equal(t, enums.UserRoleModerator, stored.Role)

	var approval models.AdminApproval
	require.NoError(t, db.First(&approval, "target_id = ?", target.ID).Error)
	require.Equal(t, enums.AdminActionApprove, approval.Action)
	require.Equal(t, "user", approval.TargetType)
	require.Equal(t, admin.ID, approval.AdminUserID)

	var entry models.AdminAuditLog
	require.NoError(t, db.First(&entry, "record_id = ?", target.ID).Error)
	require.Equal(t, "user.promote", entry.Action)
}

func TestPromoteDeniedForStranger(t *testing.T) {
	t.Parallel()

	db := setupUsersTestDB(t)
	svc := newUsersTestService(t, db)
	actor := seedUser(t, db, "actor@example.com", enums.UserRoleUser)
	target := seedUser(t, db, "target@example.com", enums.UserRoleUser)

	_, err := svc.Promote(context.Background(), PromoteInput{
		Actor:  principalFor(actor),
		UserID: target.ID,
		Role:   enums.UserRoleAdmin,
	})
	require.Error(t, err)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", target.ID).Error)
	require.Equal(t, enums.UserRoleUser, stored.Role)
}

func TestPromoteSelfRollsBackRoleChange(t *testing.T) {
	t.Parallel()

	db := setupUsersTestDB(t)
	svc := newUsersTestService(t, db)
	actor := seedUser(t, db, "self@example.com", enums.UserRoleUser)

	// Updating one's own row passes the users policy; the approval insert is
	// where the admin gate bites, after the role probe, so this also proves
	// the transaction rolls back.
	_, err := svc.Promote(context.Background(), PromoteInput{
		Actor:  principalFor(actor),
		UserID: actor.ID,
		Role:   enums.UserRoleAdmin,
	})
	require.Error(t, err)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", actor.ID).Error)
	require.Equal(t, enums.UserRoleUser, stored.Role)

	var approvals int64
	require.NoError(t, db.Model(&models.AdminApproval{}).Count(&approvals).Error)
	require.Zero(t, approvals)
}

func TestPromoteSameRoleConflicts(t *testing.T) {
	t.Parallel()

	db := setupUsersTestDB(t)
	svc := newUsersTestService(t, db)
	admin := seedUser(t, db, "admin@example.com", enums.UserRoleAdmin)
	target := seedUser(t, db, "mod@example.com", enums.UserRoleModerator)

	_, err := svc.Promote(context.Background(), PromoteInput{
		Actor:  principalFor(admin),
		UserID: target.ID,
		Role:   enums.UserRoleModerator,
	})
	require.Error(t, err)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}

func TestPromoteValidation(t *testing.T) {
	t.Parallel()

	db := setupUsersTestDB(t)
	svc := newUsersTestService(t, db)
	admin := seedUser(t, db, "admin@example.com", enums.UserRoleAdmin)

	_, err := svc.Promote(context.Background(), PromoteInput{
		Actor:  principalFor(admin),
		UserID: uuid.New(),
		Role:   enums.UserRoleUser,
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.Promote(context.Background(), PromoteInput{
		Actor:  principalFor(admin),
		UserID: uuid.New(),
		Role:   enums.UserRoleAdmin,
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestGetHidesForeignRows(t *testing.T) {
	t.Parallel()

	db := setupUsersTestDB(t)
	svc := newUsersTestService(t, db)
	owner := seedUser(t, db, "owner@example.com", enums.UserRoleUser)
	stranger := seedUser(t, db, "stranger@example.com", enums.UserRoleUser)
	admin := seedUser(t, db, "admin@example.com", enums.UserRoleAdmin)

	dto, err := svc.Get(context.Background(), principalFor(owner), owner.ID)
	require.NoError(t, err)
	require.Equal(t, owner.Email, dto.Email)

	_, err = svc.Get(context.Background(), principalFor(stranger), owner.ID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	dto, err = svc.Get(context.Background(), principalFor(admin), owner.ID)
	require.NoError(t, err)
	require.Equal(t, owner.ID, dto.ID)
}

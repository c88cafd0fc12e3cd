package profiles

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/internal/hooks"
	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
	"github.com/revibe-app/revibe-backend/pkg/fees"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupProfilesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:profiles_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	ddl := []string{
		`CREATE TABLE profiles (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE,
			username TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL,
			bio TEXT,
			account_type TEXT NOT NULL DEFAULT 'personal',
			brand_name TEXT,
			brand_website TEXT,
			is_brand_verified INTEGER NOT NULL DEFAULT 0,
			is_seller INTEGER NOT NULL DEFAULT 0,
			setup_completed INTEGER NOT NULL DEFAULT 0,
			setup_completed_at DATETIME,
			avatar_url TEXT,
			cover_url TEXT,
			deleted_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE profile_stats (
			profile_id TEXT PRIMARY KEY,
			total_sales INTEGER NOT NULL DEFAULT 0,
			total_purchases INTEGER NOT NULL DEFAULT 0,
			total_listings INTEGER NOT NULL DEFAULT 0,
			rating_avg TEXT NOT NULL DEFAULT '0',
			rating_count INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME
		)`,
		`CREATE TABLE social_media_accounts (
			id TEXT PRIMARY KEY,
			profile_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			handle TEXT NOT NULL,
			url TEXT,
			created_at DATETIME,
			updated_at DATETIME
		)`,
	}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newProfilesTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	calc, err := fees.NewCalculator("0.10")
	require.NoError(t, err)
	engine, err := hooks.NewDefaultEngine(hooks.DefaultEngineParams{Fees: calc})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(db),
		TxRunner: gormTxRunner{db: db},
		Registry: authz.BuildRegistry(nil),
		Hooks:    engine,
	})
	require.NoError(t, err)
	return svc
}

func seedProfile(t *testing.T, db *gorm.DB, username string) *models.Profile {
	t.Helper()

	profile := &models.Profile{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Username:    username,
		DisplayName: username,
		AccountType: enums.AccountTypePersonal,
	}
	require.NoError(t, db.Create(profile).Error)
	require.NoError(t, db.Create(&models.ProfileStats{ProfileID: profile.ID}).Error)
	return profile
}

func ownerOf(profile *models.Profile) authz.Principal {
	return authz.Principal{
		UserID:        profile.UserID,
		ProfileID:     profile.ID,
		Role:          enums.UserRoleUser,
		Authenticated: true,
	}
}

func someAdmin() authz.Principal {
	return authz.Principal{
		UserID:        uuid.New(),
		ProfileID:     uuid.New(),
		Role:          enums.UserRoleAdmin,
		Authenticated: true,
	}
}

func TestMeReturnsOwnDetail(t *testing.T) {
	t.Parallel()

	db := setupProfilesTestDB(t)
	svc := newProfilesTestService(t, db)
	profile := seedProfile(t, db, "vera")

	detail, err := svc.Me(context.Background(), ownerOf(profile))
	require.NoError(t, err)
	require.Equal(t, "vera", detail.Profile.Username)
	require.Zero(t, detail.Stats.TotalSales)
	require.Empty(t, detail.SocialAccounts)
}

func TestMeStillSeesDeletedProfile(t *testing.T) {
	t.Parallel()

	db := setupProfilesTestDB(t)
	svc := newProfilesTestService(t, db)
	profile := seedProfile(t, db, "ghost")
	now := time.Now().UTC()
	require.NoError(t, db.Model(&models.Profile{}).Where("id = ?", profile.ID).Update("deleted_at", now).Error)

	detail, err := svc.Me(context.Background(), ownerOf(profile))
	require.NoError(t, err)
	require.Equal(t, "ghost", detail.Profile.Username)
}

func TestGetByUsernameVisibility(t *testing.T) {
	t.Parallel()

	db := setupProfilesTestDB(t)
	svc := newProfilesTestService(t, db)
	live := seedProfile(t, db, "livewire")
	deleted := seedProfile(t, db, "vanished")
	require.NoError(t, db.Model(&models.Profile{}).Where("id = ?", deleted.ID).Update("deleted_at", time.Now().UTC()).Error)

	detail, err := svc.GetByUsername(context.Background(), authz.Anonymous(), "livewire")
	require.NoError(t, err)
	require.Equal(t, live.ID, detail.Profile.ID)

	_, err = svc.GetByUsername(context.Background(), authz.Anonymous(), "vanished")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	_, err = svc.GetByUsername(context.Background(), ownerOf(live), "vanished")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	detail, err = svc.GetByUsername(context.Background(), ownerOf(deleted), "vanished")
	require.NoError(t, err)
	require.Equal(t, deleted.ID, detail.Profile.ID)

	detail, err = svc.GetByUsername(context.Background(), someAdmin(), "vanished")
	require.NoError(t, err)
	require.Equal(t, deleted.ID, detail.Profile.ID)

	_, err = svc.GetByUsername(context.Background(), authz.Anonymous(), "nobody")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateAppliesFields(t *testing.T) {
	t.Parallel()

	db := setupProfilesTestDB(t)
	svc := newProfilesTestService(t, db)
	profile := seedProfile(t, db, "editor")

	display := "Editor Prime"
	bio := "Curated vintage."
	dto, err := svc.Update(context.Background(), UpdateInput{
		Actor:       ownerOf(profile),
		DisplayName: &display,
		Bio:         &bio,
	})
	require.NoError(t, err)
	require.Equal(t, display, dto.DisplayName)

	var stored models.Profile
	require.NoError(t, db.First(&stored, "id = ?", profile.ID).Error)
	require.Equal(t, display, stored.DisplayName)
	require.NotNil(t, stored.Bio)
	require.Equal(t, bio, *stored.Bio)
	require.False(t, stored.UpdatedAt.IsZero())
}

func TestUpdateDeletedProfileForbidden(t *testing.T) {
	t.Parallel()

	db := setupProfilesTestDB(t)
	svc := newProfilesTestService(t, db)
	profile := seedProfile(t, db, "locked")
	require.NoError(t, db.Model(&models.Profile{}).Where("id = ?", profile.ID).Update("deleted_at", time.Now().UTC()).Error)

	display := "New Name"
	_, err := svc.Update(context.Background(), UpdateInput{Actor: ownerOf(profile), DisplayName: &display})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}

func TestDeleteSoftDeletesOnce(t *testing.T) {
	t.Parallel()

	db := setupProfilesTestDB(t)
	svc := newProfilesTestService(t, db)
	profile := seedProfile(t, db, "leaver")

	require.NoError(t, svc.Delete(context.Background(), ownerOf(profile)))

	var stored models.Profile
	require.NoError(t, db.First(&stored, "id = ?", profile.ID).Error)
	require.NotNil(t, stored.DeletedAt)

	err := svc.Delete(context.Background(), ownerOf(profile))
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestSocialAccountLifecycle(t *testing.T) {
	t.Parallel()

	db := setupProfilesTestDB(t)
	svc := newProfilesTestService(t, db)
	profile := seedProfile(t, db, "social")
	stranger := seedProfile(t, db, "lurker")

	dto, err := svc.AddSocialAccount(context.Background(), AddSocialAccountInput{
		Actor:    ownerOf(profile),
		Platform: "Instagram",
		Handle:   "@social",
	})
	require.NoError(t, err)
	require.Equal(t, "instagram", dto.Platform)

	detail, err := svc.GetByUsername(context.Background(), authz.Anonymous(), "social")
	require.NoError(t, err)
	require.Len(t, detail.SocialAccounts, 1)

	err = svc.RemoveSocialAccount(context.Background(), ownerOf(stranger), dto.ID)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	require.NoError(t, svc.RemoveSocialAccount(context.Background(), ownerOf(profile), dto.ID))

	detail, err = svc.GetByUsername(context.Background(), authz.Anonymous(), "social")
	require.NoError(t, err)
	require.Empty(t, detail.SocialAccounts)
}

func TestAddSocialAccountValidation(t *testing.T) {
	t.Parallel()

	db := setupProfilesTestDB(t)
	svc := newProfilesTestService(t, db)
	profile := seedProfile(t, db, "strict")

	_, err := svc.AddSocialAccount(context.Background(), AddSocialAccountInput{
		Actor:    ownerOf(profile),
		Platform: "  ",
		Handle:   "@x",
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

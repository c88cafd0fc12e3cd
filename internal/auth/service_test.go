package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/internal/profiles"
	"github.com/revibe-app/revibe-backend/internal/users"
	pkgAuth "github.com/revibe-app/revibe-backend/pkg/auth"
	"github.com/revibe-app/revibe-backend/pkg/auth/session"
	"github.com/revibe-app/revibe-backend/pkg/config"
	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
	"github.com/revibe-app/revibe-backend/pkg/security"
	"github.com/revibe-app/revibe-backend/pkg/types"
)

type fakeSessionManager struct {
	tokens  map[string]string
	revoked []string
}

func newFakeSessionManager() *fakeSessionManager {
	return &fakeSessionManager{tokens: map[string]string{}}
}

func (f *fakeSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	token := uuid.NewString()
	f.tokens[accessID] = token
	return token, nil
}

func (f *fakeSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	stored, ok := f.tokens[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(f.tokens, oldAccessID)
	newAccessID := session.NewAccessID()
	token := uuid.NewString()
	f.tokens[newAccessID] = token
	return newAccessID, token, nil
}

func (f *fakeSessionManager) Revoke(ctx context.Context, accessID string) error {
	delete(f.tokens, accessID)
	f.revoked = append(f.revoked, accessID)
	return nil
}

type recordingSecurityLog struct {
	kinds []string
}

func (r *recordingSecurityLog) RecordSecurityEvent(ctx context.Context, kind string, detail types.JSONMap) error {
	r.kinds = append(r.kinds, kind)
	return nil
}

type loginFixture struct {
	svc      Service
	db       *gorm.DB
	sessions *fakeSessionManager
	events   *recordingSecurityLog
	jwtCfg   config.JWTConfig
	user     *models.User
	profile  *models.Profile
}

func newLoginFixture(t *testing.T) *loginFixture {
	t.Helper()

	db := setupAuthTestDB(t)
	hash, err := security.HashPassword("Secret123!", config.PasswordConfig{})
	require.NoError(t, err)

	user := &models.User{
		ID:           uuid.New(),
		Email:        "vera@example.com",
		PasswordHash: hash,
		Role:         enums.UserRoleUser,
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)

	profile := &models.Profile{
		ID:          uuid.New(),
		UserID:      user.ID,
		Username:    "vera",
		DisplayName: "Vera",
		AccountType: enums.AccountTypePersonal,
	}
	require.NoError(t, db.Create(profile).Error)

	sessions := newFakeSessionManager()
	events := &recordingSecurityLog{}
	jwtCfg := config.JWTConfig{Secret: "test-secret", Issuer: "revibe-test", ExpirationMinutes: 15}

	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(db),
		ProfileRepo:    profiles.NewRepository(db),
		SessionManager: sessions,
		Events:         events,
		JWTConfig:      jwtCfg,
	})
	require.NoError(t, err)

	return &loginFixture{svc: svc, db: db, sessions: sessions, events: events, jwtCfg: jwtCfg, user: user, profile: profile}
}

func TestLoginIssuesTokenPair(t *testing.T) {
	t.Parallel()

	fx := newLoginFixture(t)

	resp, err := fx.svc.Login(context.Background(), LoginRequest{Email: "Vera@Example.com", Password: "Secret123!"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, "vera", resp.Profile.Username)

	claims, err := pkgAuth.ParseAccessToken(fx.jwtCfg, resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, fx.user.ID, claims.UserID)
	require.Equal(t, fx.profile.ID, claims.ProfileID)
	require.Equal(t, enums.UserRoleUser, claims.Role)
	require.Equal(t, resp.RefreshToken, fx.sessions.tokens[claims.ID])

	var stored models.User
	require.NoError(t, fx.db.First(&stored, "id = ?", fx.user.ID).Error)
	require.NotNil(t, stored.LastLoginAt)
}

func TestLoginWrongPasswordIsGenericAndRecorded(t *testing.T) {
	t.Parallel()

	fx := newLoginFixture(t)

	_, err := fx.svc.Login(context.Background(), LoginRequest{Email: "vera@example.com", Password: "wrong"})
	require.Error(t, err)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
	require.Contains(t, err.Error(), invalidCredentialsMessage)
	require.Equal(t, []string{"login_failed"}, fx.events.kinds)
}

func TestLoginUnknownEmailIsGeneric(t *testing.T) {
	t.Parallel()

	fx := newLoginFixture(t)

	_, err := fx.svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "Secret123!"})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
	require.Contains(t, err.Error(), invalidCredentialsMessage)
}

func TestLoginInactiveUserRejected(t *testing.T) {
	t.Parallel()

	fx := newLoginFixture(t)
	require.NoError(t, fx.db.Model(&models.User{}).Where("id = ?", fx.user.ID).Update("is_active", false).Error)

	_, err := fx.svc.Login(context.Background(), LoginRequest{Email: "vera@example.com", Password: "Secret123!"})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
}

func TestRefreshRotatesSession(t *testing.T) {
	t.Parallel()

	fx := newLoginFixture(t)

	login, err := fx.svc.Login(context.Background(), LoginRequest{Email: "vera@example.com", Password: "Secret123!"})
	require.NoError(t, err)

	refreshed, err := fx.svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	require.NotEqual(t, login.AccessToken, refreshed.AccessToken)
	require.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The old pair is dead after rotation.
	_, err = fx.svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
	require.Contains(t, fx.events.kinds, "refresh_rejected")
}

func TestRefreshPicksUpRoleChange(t *testing.T) {
	t.Parallel()

	fx := newLoginFixture(t)

	login, err := fx.svc.Login(context.Background(), LoginRequest{Email: "vera@example.com", Password: "Secret123!"})
	require.NoError(t, err)

	require.NoError(t, fx.db.Model(&models.User{}).Where("id = ?", fx.user.ID).Update("role", enums.UserRoleAdmin).Error)

	refreshed, err := fx.svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)

	claims, err := pkgAuth.ParseAccessToken(fx.jwtCfg, refreshed.AccessToken)
	require.NoError(t, err)
	require.Equal(t, enums.UserRoleAdmin, claims.Role)
}

func TestRefreshRejectsDeactivatedUser(t *testing.T) {
	t.Parallel()

	fx := newLoginFixture(t)

	login, err := fx.svc.Login(context.Background(), LoginRequest{Email: "vera@example.com", Password: "Secret123!"})
	require.NoError(t, err)

	require.NoError(t, fx.db.Model(&models.User{}).Where("id = ?", fx.user.ID).Update("is_active", false).Error)

	_, err = fx.svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
	require.Empty(t, fx.sessions.tokens)
}

func TestLogoutRevokesSession(t *testing.T) {
	t.Parallel()

	fx := newLoginFixture(t)

	login, err := fx.svc.Login(context.Background(), LoginRequest{Email: "vera@example.com", Password: "Secret123!"})
	require.NoError(t, err)

	claims, err := pkgAuth.ParseAccessToken(fx.jwtCfg, login.AccessToken)
	require.NoError(t, err)

	require.NoError(t, fx.svc.Logout(context.Background(), claims.ID))
	require.Contains(t, fx.sessions.revoked, claims.ID)
	require.Empty(t, fx.sessions.tokens)
}

package hooks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
)

func completeStep(t *testing.T, db *gorm.DB, hook Hook, profileID uuid.UUID, step enums.SetupStep) {
	t.Helper()

	now := time.Now().UTC()
	progress := &models.SetupProgress{
		ID:          uuid.New(),
		ProfileID:   profileID,
		Step:        step,
		Completed:   true,
		CompletedAt: &now,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(progress).Error; err != nil {
			return err
		}
		ev := &Event{Table: authz.TableSetupProgress, Op: OpInsert, Row: progress}
		return hook.Run(context.Background(), tx, ev)
	})
	require.NoError(t, err)
}

func TestSetupCompletionFlipsAfterRequiredSteps(t *testing.T) {
	t.Parallel()

	db := setupHooksTestDB(t)
	profile := newTestProfile(t, db, "stepper")
	hook := NewSetupCompletionHook()

	steps := enums.RequiredSetupSteps()
	for i, step := range steps {
		completeStep(t, db, hook, profile.ID, step)

		var got models.Profile
		require.NoError(t, db.First(&got, "id = ?", profile.ID).Error)
		if i < len(steps)-1 {
			assert.False(t, got.SetupCompleted, "must stay incomplete after %s", step)
			assert.Nil(t, got.SetupCompletedAt)
		} else {
			assert.True(t, got.SetupCompleted)
			require.NotNil(t, got.SetupCompletedAt)
		}
	}
}

func TestSetupCompletionIsIdempotent(t *testing.T) {
	t.Parallel()

	db := setupHooksTestDB(t)
	profile := newTestProfile(t, db, "repeater")
	hook := NewSetupCompletionHook()

	for _, step := range enums.RequiredSetupSteps() {
		completeStep(t, db, hook, profile.ID, step)
	}

	var first models.Profile
	require.NoError(t, db.First(&first, "id = ?", profile.ID).Error)
	require.NotNil(t, first.SetupCompletedAt)
	stamped := *first.SetupCompletedAt

	// Re-fire on an already completed step: no error, no new timestamp.
	var progress models.SetupProgress
	require.NoError(t, db.First(&progress, "profile_id = ? AND step = ?", profile.ID, enums.SetupStepAvatar).Error)
	err := db.Transaction(func(tx *gorm.DB) error {
		ev := &Event{Table: authz.TableSetupProgress, Op: OpUpdate, Row: &progress}
		return hook.Run(context.Background(), tx, ev)
	})
	require.NoError(t, err)

	var second models.Profile
	require.NoError(t, db.First(&second, "id = ?", profile.ID).Error)
	assert.True(t, second.SetupCompleted)
	require.NotNil(t, second.SetupCompletedAt)
	assert.True(t, second.SetupCompletedAt.Equal(stamped), "setup_completed_at must not move on re-fire")
}

func TestSetupCompletionIgnoresOptionalSteps(t *testing.T) {
	t.Parallel()

	db := setupHooksTestDB(t)
	profile := newTestProfile(t, db, "optional")
	hook := NewSetupCompletionHook()

	completeStep(t, db, hook, profile.ID, enums.SetupStepPayoutDetails)
	completeStep(t, db, hook, profile.ID, enums.SetupStepFirstListing)

	var got models.Profile
	require.NoError(t, db.First(&got, "id = ?", profile.ID).Error)
	assert.False(t, got.SetupCompleted, "optional steps alone must not complete setup")
}

func TestSetupCompletionIgnoresIncompleteRows(t *testing.T) {
	t.Parallel()

	db := setupHooksTestDB(t)
	profile := newTestProfile(t, db, "halfway")
	hook := NewSetupCompletionHook()

	progress := &models.SetupProgress{
		ID:        uuid.New(),
		ProfileID: profile.ID,
		Step:      enums.SetupStepProfileInfo,
		Completed: false,
	}
	require.NoError(t, db.Create(progress).Error)
	err := db.Transaction(func(tx *gorm.DB) error {
		ev := &Event{Table: authz.TableSetupProgress, Op: OpUpdate, Row: progress}
		return hook.Run(context.Background(), tx, ev)
	})
	require.NoError(t, err)

	var got models.Profile
	require.NoError(t, db.First(&got, "id = ?", profile.ID).Error)
	assert.False(t, got.SetupCompleted)
}

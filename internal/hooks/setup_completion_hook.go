package hooks

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
)

// NewSetupCompletionHook builds the hook that flips profiles.setup_completed
// once every required onboarding step is done. Re-firing after completion is
// a no-op; the guarded update makes the flip exactly-once.
func NewSetupCompletionHook() Hook {
	return &setupCompletionHook{now: time.Now}
}

type setupCompletionHook struct {
	now func() time.Time
}

func (h *setupCompletionHook) Name() string { return "setup_completion" }

func (h *setupCompletionHook) Run(ctx context.Context, tx *gorm.DB, ev *Event) error {
	progress, ok := ev.Row.(*models.SetupProgress)
	if !ok || progress == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "setup completion fired without a progress row")
	}
	if !progress.Completed || !progress.Step.IsRequired() {
		return nil
	}

	var profile models.Profile
	err := tx.WithContext(ctx).
		Select("id", "setup_completed").
		First(&profile, "id = ?", progress.ProfileID).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile for setup check")
	}
	if profile.SetupCompleted {
		return nil
	}

	required := enums.RequiredSetupSteps()
	var done int64
	err = tx.WithContext(ctx).
		Model(&models.SetupProgress{}).
		Where("profile_id = ? AND completed = ? AND step IN ?", progress.ProfileID, true, required).
		Count(&done).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count completed steps")
	}
	if done < int64(len(required)) {
		return nil
	}

	// The setup_completed guard keeps setup_completed_at frozen if two
	// writers race past the read above.
	res := tx.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ? AND setup_completed = ?", progress.ProfileID, false).
		Updates(map[string]any{
			"setup_completed":    true,
			"setup_completed_at": h.now().UTC(),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "mark setup completed")
	}
	return nil
}

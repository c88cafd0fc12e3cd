package hooks

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
)

// maxUsernameProbes bounds the suffix search before bootstrap gives up.
const maxUsernameProbes = 100

// ProfileSeed carries registration input the bootstrap hook folds into the
// new profile. The zero value yields a personal account named after the
// email local part.
type ProfileSeed struct {
	DisplayName  string
	AccountType  enums.AccountType
	BrandName    *string
	BrandWebsite *string
}

// NewUserBootstrapHook builds the hook that provisions a profile, an empty
// cart, and a zeroed stats row for every new user. It runs after the user
// insert so all four rows commit or roll back together.
func NewUserBootstrapHook() Hook {
	return &userBootstrapHook{}
}

type userBootstrapHook struct{}

func (h *userBootstrapHook) Name() string { return "user_bootstrap" }

func (h *userBootstrapHook) Run(ctx context.Context, tx *gorm.DB, ev *Event) error {
	user, ok := ev.Row.(*models.User)
	if !ok || user == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "user bootstrap fired without a user row")
	}

	seed, _ := ev.Attrs.(ProfileSeed)
	username, err := h.allocateUsername(ctx, tx, usernameBase(user.Email))
	if err != nil {
		return err
	}

	displayName := seed.DisplayName
	if displayName == "" {
		displayName = username
	}
	accountType := seed.AccountType
	if accountType == "" {
		accountType = enums.AccountTypePersonal
	}

	// IDs are assigned here, not by column defaults: the cart and stats rows
	// need the profile id inside this same transaction.
	profile := &models.Profile{
		ID:           uuid.New(),
		UserID:       user.ID,
		Username:     username,
		DisplayName:  displayName,
		AccountType:  accountType,
		BrandName:    seed.BrandName,
		BrandWebsite: seed.BrandWebsite,
	}
	if err := tx.WithContext(ctx).Create(profile).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create profile")
	}

	cart := &models.Cart{ID: uuid.New(), ProfileID: profile.ID}
	if err := tx.WithContext(ctx).Create(cart).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}

	stats := &models.ProfileStats{ProfileID: profile.ID}
	if err := tx.WithContext(ctx).Create(stats).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create profile stats")
	}
	return nil
}

// allocateUsername probes for the first free username, appending a numeric
// suffix when the base is taken.
func (h *userBootstrapHook) allocateUsername(ctx context.Context, tx *gorm.DB, base string) (string, error) {
	candidate := base
	for attempt := 2; attempt <= maxUsernameProbes+1; attempt++ {
		var count int64
		err := tx.WithContext(ctx).
			Model(&models.Profile{}).
			Where("username = ?", candidate).
			Count(&count).Error
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "probe username")
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, attempt)
	}
	return "", pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a free username")
}

// usernameBase lowercases the email local part and replaces anything outside
// [a-z0-9_] so the result is a valid handle.
func usernameBase(email string) string {
	local := email
	if at := strings.IndexByte(email, '@'); at >= 0 {
		local = email[:at]
	}
	local = strings.ToLower(local)
	var b strings.Builder
	for _, r := range local {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "member"
	}
	return out
}

package hooks

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/pkg/config"
	"github.com/revibe-app/revibe-backend/pkg/db/models"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
)

const (
	defaultOrderNumberPrefix = "ORD"
	// The unique index on orders.order_number is the backstop if two
	// transactions race the probe.
	defaultOrderNumberAttempts = 5
)

var errOrderNumberTaken = errors.New("order number already taken")

// NewOrderNumberHook builds the hook that assigns <prefix>-<date>-<4 digits>
// before an order insert. Collisions regenerate the suffix up to the
// configured attempt count; exhaustion fails the creation.
func NewOrderNumberHook(cfg config.OrdersConfig) Hook {
	prefix := cfg.NumberPrefix
	if prefix == "" {
		prefix = defaultOrderNumberPrefix
	}
	attempts := cfg.NumberMaxAttempts
	if attempts <= 0 {
		attempts = defaultOrderNumberAttempts
	}
	return &orderNumberHook{
		now:      time.Now,
		pick:     func() int { return rand.Intn(10000) },
		prefix:   prefix,
		attempts: attempts,
	}
}

type orderNumberHook struct {
	now      func() time.Time
	pick     func() int
	prefix   string
	attempts int
}

func (h *orderNumberHook) Name() string { return "order_number" }

func (h *orderNumberHook) Run(ctx context.Context, tx *gorm.DB, ev *Event) error {
	order, ok := ev.Row.(*models.Order)
	if !ok || order == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "order number fired without an order row")
	}

	date := h.now().UTC().Format("20060102")
	backoff := retry.WithMaxRetries(uint64(h.attempts-1), retry.NewConstant(time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		candidate := fmt.Sprintf("%s-%s-%04d", h.prefix, date, h.pick())
		var count int64
		err := tx.WithContext(ctx).
			Model(&models.Order{}).
			Where("order_number = ?", candidate).
			Count(&count).Error
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "probe order number")
		}
		if count > 0 {
			return retry.RetryableError(errOrderNumberTaken)
		}
		order.OrderNumber = candidate
		return nil
	})
	if errors.Is(err, errOrderNumberTaken) {
		return pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique order number")
	}
	return err
}

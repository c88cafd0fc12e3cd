package hooks

import (
	"context"
	"reflect"
	"time"

	"gorm.io/gorm"
)

// NewTimestampsHook builds the hook that forces updated_at to the current
// time on every update, overriding whatever the client supplied.
func NewTimestampsHook() Hook {
	return &timestampsHook{now: time.Now}
}

type timestampsHook struct {
	now func() time.Time
}

func (h *timestampsHook) Name() string { return "timestamps" }

func (h *timestampsHook) Run(ctx context.Context, tx *gorm.DB, ev *Event) error {
	v := reflect.ValueOf(ev.Row)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return nil
	}
	elem := v.Elem()
	if elem.Kind() != reflect.Struct {
		return nil
	}
	field := elem.FieldByName("UpdatedAt")
	if !field.IsValid() || !field.CanSet() || field.Type() != reflect.TypeOf(time.Time{}) {
		return nil
	}
	field.Set(reflect.ValueOf(h.now().UTC()))
	return nil
}

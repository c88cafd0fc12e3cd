package hooks

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"
)

type recordingHook struct {
	name  string
	calls *[]string
	err   error
}

func (h *recordingHook) Name() string { return h.name }

func (h *recordingHook) Run(ctx context.Context, tx *gorm.DB, ev *Event) error {
	*h.calls = append(*h.calls, h.name)
	return h.err
}

func TestEngineRunsHooksInRegistrationOrder(t *testing.T) {
	engine := NewEngine(nil, nil)
	var calls []string
	engine.Register("orders", OpInsert, PhaseBefore, &recordingHook{name: "first", calls: &calls})
	engine.Register("orders", OpInsert, PhaseBefore, &recordingHook{name: "second", calls: &calls})

	ev := &Event{Table: "orders", Op: OpInsert}
	if err := engine.Run(context.Background(), nil, PhaseBefore, ev); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("unexpected call order: %v", calls)
	}
}

func TestEngineFirstErrorAborts(t *testing.T) {
	engine := NewEngine(nil, nil)
	var calls []string
	boom := errors.New("boom")
	engine.Register("orders", OpInsert, PhaseBefore, &recordingHook{name: "first", calls: &calls, err: boom})
	engine.Register("orders", OpInsert, PhaseBefore, &recordingHook{name: "second", calls: &calls})

	err := engine.Run(context.Background(), nil, PhaseBefore, &Event{Table: "orders", Op: OpInsert})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("second hook must not run after a failure, calls=%v", calls)
	}
}

func TestEngineScopesHooksByKey(t *testing.T) {
	engine := NewEngine(nil, nil)
	var calls []string
	engine.Register("orders", OpInsert, PhaseBefore, &recordingHook{name: "insert_before", calls: &calls})

	for _, ev := range []*Event{
		{Table: "orders", Op: OpUpdate},
		{Table: "listings", Op: OpInsert},
	} {
		if err := engine.Run(context.Background(), nil, PhaseBefore, ev); err != nil {
			t.Fatalf("Run: %v", err)
		}
	}
	if err := engine.Run(context.Background(), nil, PhaseAfter, &Event{Table: "orders", Op: OpInsert}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(calls) != 0 {
		t.Fatalf("hook fired outside its key: %v", calls)
	}
}

func TestEngineBindingsEnumerateRegistrations(t *testing.T) {
	engine := NewEngine(nil, nil)
	var calls []string
	engine.Register("users", OpInsert, PhaseAfter, &recordingHook{name: "bootstrap", calls: &calls})
	engine.Register("orders", OpInsert, PhaseBefore, &recordingHook{name: "numbering", calls: &calls})

	bindings := engine.Bindings()
	if len(bindings) != 2 {
		t.Fatalf("expected 2 bindings, got %d", len(bindings))
	}
	if bindings[0].Table != "orders" || bindings[0].Name != "numbering" {
		t.Fatalf("unexpected first binding: %+v", bindings[0])
	}
	if bindings[1].Table != "users" || bindings[1].Phase != PhaseAfter {
		t.Fatalf("unexpected second binding: %+v", bindings[1])
	}
}

func TestEngineNilEventIsNoop(t *testing.T) {
	engine := NewEngine(nil, nil)
	if err := engine.Run(context.Background(), nil, PhaseBefore, nil); err != nil {
		t.Fatalf("Run(nil): %v", err)
	}
}

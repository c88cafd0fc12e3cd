package hooks

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/pkg/logger"
	"github.com/revibe-app/revibe-backend/pkg/metrics"
)

// Phase marks when a hook runs relative to the row write.
type Phase string

const (
	PhaseBefore Phase = "before"
	PhaseAfter  Phase = "after"
)

// Op is the write kind a hook is bound to.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event describes one row write moving through the engine. Row is a pointer
// to the model being written; Old carries the pre-mutation state on updates.
// Attrs is op-specific input consumed by individual hooks.
type Event struct {
	Table string
	Op    Op
	Row   any
	Old   any
	Attrs any
}

// Hook enforces one invariant around a row write. Run executes inside the
// caller's transaction; returning an error aborts the whole write.
type Hook interface {
	Name() string
	Run(ctx context.Context, tx *gorm.DB, ev *Event) error
}

type hookKey struct {
	table string
	op    Op
	phase Phase
}

// Binding names one registered hook and the write it is bound to.
type Binding struct {
	Table string
	Op    Op
	Phase Phase
	Name  string
}

// Engine dispatches hooks registered per (table, operation, phase). Register
// everything at startup; the maps are read-only afterwards.
type Engine struct {
	logg    *logger.Logger
	metrics *metrics.HookMetrics
	hooks   map[hookKey][]Hook
}

// NewEngine builds an empty hook engine. Both logger and metrics may be nil.
func NewEngine(logg *logger.Logger, m *metrics.HookMetrics) *Engine {
	return &Engine{
		logg:    logg,
		metrics: m,
		hooks:   make(map[hookKey][]Hook),
	}
}

// Register binds a hook to a (table, operation, phase) key. Hooks fire in
// registration order.
func (e *Engine) Register(table string, op Op, phase Phase, h Hook) {
	if h == nil {
		return
	}
	key := hookKey{table: table, op: op, phase: phase}
	e.hooks[key] = append(e.hooks[key], h)
}

// Hooks returns the hooks bound to a key in firing order.
func (e *Engine) Hooks(table string, op Op, phase Phase) []Hook {
	bound := e.hooks[hookKey{table: table, op: op, phase: phase}]
	out := make([]Hook, len(bound))
	copy(out, bound)
	return out
}

// Bindings lists every registration, sorted by table, operation, phase, name.
func (e *Engine) Bindings() []Binding {
	var out []Binding
	for key, bound := range e.hooks {
		for _, h := range bound {
			out = append(out, Binding{Table: key.table, Op: key.op, Phase: key.phase, Name: h.Name()})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Table != b.Table {
			return a.Table < b.Table
		}
		if a.Op != b.Op {
			return a.Op < b.Op
		}
		if a.Phase != b.Phase {
			return a.Phase < b.Phase
		}
		return a.Name < b.Name
	})
	return out
}

// Run fires every hook bound to the event for the given phase, inside tx.
// The first failure aborts the chain and must roll back the caller's
// transaction.
func (e *Engine) Run(ctx context.Context, tx *gorm.DB, phase Phase, ev *Event) error {
	if ev == nil {
		return nil
	}
	for _, h := range e.hooks[hookKey{table: ev.Table, op: ev.Op, phase: phase}] {
		if err := e.runHook(ctx, tx, h, ev); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) runHook(ctx context.Context, tx *gorm.DB, h Hook, ev *Event) error {
	hookCtx := ctx
	if e.logg != nil {
		hookCtx = e.logg.WithFields(ctx, map[string]any{
			"hook":  h.Name(),
			"table": ev.Table,
			"op":    string(ev.Op),
		})
	}
	start := time.Now()
	err := h.Run(hookCtx, tx, ev)
	e.observeDuration(h.Name(), time.Since(start))
	if err != nil {
		if e.logg != nil {
			e.logg.Error(hookCtx, "hook failed", err)
		}
		e.recordFailure(h.Name())
		return err
	}
	e.recordSuccess(h.Name())
	return nil
}

func (e *Engine) observeDuration(hook string, duration time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.ObserveDuration(hook, duration)
}

func (e *Engine) recordSuccess(hook string) {
	if e.metrics == nil {
		return
	}
	e.metrics.IncSuccess(hook)
}

func (e *Engine) recordFailure(hook string) {
	if e.metrics == nil {
		return
	}
	e.metrics.IncFailure(hook)
}

package authz

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/revibe-app/revibe-backend/pkg/enums"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
	"github.com/revibe-app/revibe-backend/pkg/metrics"
)

// Operation is one of the four row operations a policy can grant.
type Operation string

const (
	OpSelect Operation = "select"
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Principal is the identity a request acts as. The zero value is an
// unauthenticated visitor.
type Principal struct {
	UserID        uuid.UUID
	ProfileID     uuid.UUID
	Role          enums.UserRole
	Authenticated bool
	ServiceRole   bool
}

// Anonymous returns the unauthenticated principal.
func Anonymous() Principal {
	return Principal{}
}

// Service returns the trusted in-process principal. It bypasses the policy
// registry entirely; only internal maintenance code may use it.
func Service() Principal {
	return Principal{Authenticated: true, ServiceRole: true}
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Authenticated && p.Role == enums.UserRoleAdmin
}

// HasProfile reports whether the principal owns a marketplace profile.
func (p Principal) HasProfile() bool {
	return p.Authenticated && p.ProfileID != uuid.Nil
}

// Policy is one named grant. Check must be a pure predicate over the
// principal and the candidate row; it must not touch storage.
type Policy struct {
	Name  string
	Check func(p Principal, row any) bool
}

// TableTraits marks table-wide behavior that overrides the policy list.
type TableTraits struct {
	// ServiceRoleOnly denies every principal through the standard path,
	// admins included. Only ServiceRole code touches these tables.
	ServiceRoleOnly bool
}

type ruleKey struct {
	table string
	op    Operation
}

// Registry holds the per-(table, operation) policy lists. Build it once at
// startup; it is read-only afterwards and safe for concurrent use.
type Registry struct {
	traits  map[string]TableTraits
	rules   map[ruleKey][]Policy
	metrics *metrics.AccessMetrics
}

// NewRegistry returns an empty registry. A nil metrics collector disables
// decision counters.
func NewRegistry(m *metrics.AccessMetrics) *Registry {
	return &Registry{
		traits:  make(map[string]TableTraits),
		rules:   make(map[ruleKey][]Policy),
		metrics: m,
	}
}

// SetTraits declares table-wide behavior.
func (r *Registry) SetTraits(table string, traits TableTraits) {
	r.traits[table] = traits
}

// Register appends policies for the (table, operation) pair. Operations with
// no registered policy deny everyone.
func (r *Registry) Register(table string, op Operation, policies ...Policy) {
	key := ruleKey{table: table, op: op}
	r.rules[key] = append(r.rules[key], policies...)
}

// Policies returns the registered policy names for the pair, for inspection.
func (r *Registry) Policies(table string, op Operation) []string {
	list := r.rules[ruleKey{table: table, op: op}]
	if len(list) == 0 {
		return nil
	}
	names := make([]string, len(list))
	for i, policy := range list {
		names[i] = policy.Name
	}
	return names
}

// CanSelect reports whether the row is visible to the principal. A false
// result is silent: the caller omits the row, it never errors.
func (r *Registry) CanSelect(p Principal, table string, row any) bool {
	ok := r.allows(p, OpSelect, table, row)
	r.record(table, OpSelect, ok)
	return ok
}

// Authorize decides a mutation. Denial returns FORBIDDEN with a message that
// names the operation, never the policy that failed.
func (r *Registry) Authorize(p Principal, op Operation, table string, row any) error {
	ok := r.allows(p, op, table, row)
	r.record(table, op, ok)
	if ok {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("not allowed to %s %s", op, table))
}

// allows ORs every applicable policy; any single grant wins.
func (r *Registry) allows(p Principal, op Operation, table string, row any) bool {
	if p.ServiceRole {
		return true
	}
	if r.traits[table].ServiceRoleOnly {
		return false
	}
	for _, policy := range r.rules[ruleKey{table: table, op: op}] {
		if policy.Check(p, row) {
			return true
		}
	}
	return false
}

func (r *Registry) record(table string, op Operation, allowed bool) {
	if allowed {
		r.metrics.IncAllowed(table, string(op))
		return
	}
	r.metrics.IncDenied(table, string(op))
}

// Filter returns the subset of rows visible to the principal. view adapts an
// element to the row representation its policies expect.
func Filter[T any](r *Registry, p Principal, table string, rows []T, view func(T) any) []T {
	out := rows[:0]
	for _, row := range rows {
		if r.CanSelect(p, table, view(row)) {
			out = append(out, row)
		}
	}
	return out
}

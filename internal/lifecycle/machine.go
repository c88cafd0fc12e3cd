package lifecycle

import (
	"fmt"

	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
)

// Machine is a transition table for one entity's status column. Edges not
// present in the table are illegal; an empty edge list marks a terminal state.
type Machine[S ~string] struct {
	entity string
	edges  map[S][]S
}

// NewMachine builds a machine over an explicit allowed-edge map. The entity
// name only appears in error messages.
func NewMachine[S ~string](entity string, edges map[S][]S) *Machine[S] {
	return &Machine[S]{entity: entity, edges: edges}
}

// CanTransition reports whether from→to is an allowed edge.
func (m *Machine[S]) CanTransition(from, to S) bool {
	for _, next := range m.edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition returns a state-conflict error when from→to is not allowed.
// Same-state writes are not edges; callers that want idempotent no-ops check
// equality before calling.
func (m *Machine[S]) Transition(from, to S) error {
	if m.CanTransition(from, to) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("%s cannot move from %s to %s", m.entity, from, to))
}

// NextStates returns a copy of the allowed targets from the given state.
func (m *Machine[S]) NextStates(from S) []S {
	edges := m.edges[from]
	if len(edges) == 0 {
		return nil
	}
	out := make([]S, len(edges))
	copy(out, edges)
	return out
}

// IsTerminal reports whether no edge leaves the given state.
func (m *Machine[S]) IsTerminal(state S) bool {
	return len(m.edges[state]) == 0
}

// Package statemachine drives approval workflows from a declared table of
// allowed transitions.
package statemachine

import (
	"sort"

	"tourledger-backend/internal/domain"
)

// Machine validates transitions for one workflow. It holds no per-request
// state and is safe for concurrent use.
type Machine[S ~string] struct {
	name  string
	table map[S]map[S]struct{}
}

// New builds a machine from a table mapping each state to the states it may
// move to. States that never appear as a key are terminal.
func New[S ~string](name string, table map[S][]S) *Machine[S] {
	m := &Machine[S]{
		name:  name,
		table: make(map[S]map[S]struct{}, len(table)),
	}
	for from, targets := range table {
		set := make(map[S]struct{}, len(targets))
		for _, to := range targets {
			set[to] = struct{}{}
		}
		m.table[from] = set
	}
	return m
}

func (m *Machine[S]) Name() string {
	return m.name
}

// Can reports whether from -> to is declared.
func (m *Machine[S]) Can(from, to S) bool {
	_, ok := m.table[from][to]
	return ok
}

// Transition returns to when the move is declared and an
// *domain.InvalidTransitionError otherwise.
func (m *Machine[S]) Transition(from, to S) (S, error) {
	if !m.Can(from, to) {
		return from, &domain.InvalidTransitionError{Current: string(from), Requested: string(to)}
	}
	return to, nil
}

// IsTerminal reports whether no transition leaves s.
func (m *Machine[S]) IsTerminal(s S) bool {
	return len(m.table[s]) == 0
}

// Next lists the states reachable from s in lexical order.
func (m *Machine[S]) Next(s S) []S {
	out := make([]S, 0, len(m.table[s]))
	for to := range m.table[s] {
		out = append(out, to)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Package taskmachine defines the task lifecycle states and the legal
// transitions between them.
//
// The adjacency table below is the single source of truth. It is plain data:
// a state maps to the states it may move to, and anything missing from the
// table is not a transition.
package taskmachine

import (
	"fmt"
	"slices"
)

// State is a task lifecycle state
type State string

const (
	Scheduled  State = "scheduled"
	Available  State = "available"
	Claimed    State = "claimed"
	InProgress State = "in_progress"
	Paused     State = "paused"
	Completed  State = "completed"
	Failed     State = "failed"
	Aborted    State = "aborted"
)

var transitions = map[State][]State{
	Scheduled:  {Available},
	Available:  {Claimed, Aborted},
	Claimed:    {InProgress, Aborted},
	InProgress: {Paused, Completed, Failed, Aborted},
	Paused:     {InProgress, Aborted},
	Completed:  {},
	Failed:     {},
	Aborted:    {},
}

var all = []State{Scheduled, Available, Claimed, InProgress, Paused, Completed, Failed, Aborted}

// CanTransition reports whether a task in current may move to next.
// Values outside the enum are never an error, only "no such transition".
func CanTransition(current, next State) bool {
	return slices.Contains(transitions[current], next)
}

// IsTerminal reports whether s has no outgoing transitions.
func IsTerminal(s State) bool {
	switch s {
	case Completed, Failed, Aborted:
		return true
	}
	return false
}

// IsInitial reports whether a task may be created in s.
func IsInitial(s State) bool {
	return s == Scheduled || s == Available
}

// Valid reports whether s is one of the eight lifecycle states.
func Valid(s State) bool {
	_, ok := transitions[s]
	return ok
}

// Next returns the states reachable from s in one step.
func Next(s State) []State {
	return slices.Clone(transitions[s])
}

// All returns every state in lifecycle order.
func All() []State {
	return slices.Clone(all)
}

// Parse converts a raw string into a State, rejecting unknown values.
func Parse(raw string) (State, error) {
	s := State(raw)
	if !Valid(s) {
		return "", fmt.Errorf("unknown task state %q", raw)
	}
	return s, nil
}

func (s State) String() string {
	return string(s)
}

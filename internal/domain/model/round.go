package model

import (
	"fmt"
)

// RoundState is the lifecycle state of a competition round.
type RoundState string

const (
	RoundCreated        RoundState = "created"
	RoundQueried        RoundState = "queried"
	RoundAwaitingReveal RoundState = "awaiting_reveal"
	RoundVerified       RoundState = "verified"
	RoundScored         RoundState = "scored"
	RoundDiscarded      RoundState = "discarded"
)

// IsTerminal reports whether no further transition is possible.
func (s RoundState) IsTerminal() bool {
	return s == RoundScored || s == RoundDiscarded
}

func isAllowedTransition(from, to RoundState) bool {
	if from.IsTerminal() {
		return false
	}
	if to == RoundDiscarded {
		return true
	}
	switch from {
	case RoundCreated:
		return to == RoundQueried
	case RoundQueried:
		return to == RoundAwaitingReveal
	case RoundAwaitingReveal:
		return to == RoundVerified
	case RoundVerified:
		return to == RoundScored
	default:
		return false
	}
}

// CompetitionRound pairs a task with the session it was issued in and the
// solutions that survived verification.
type CompetitionRound struct {
	Task          Task
	SessionNumber uint64
	Kind          Kind
	Solutions     []Solution
	State         RoundState

	seen map[string]struct{}
}

// NewRound creates a round in the created state with the session's kind.
func NewRound(task Task, session uint64) *CompetitionRound {
	return &CompetitionRound{
		Task:          task,
		SessionNumber: session,
		Kind:          KindForSession(session),
		State:         RoundCreated,
		seen:          make(map[string]struct{}),
	}
}

// Transition moves the round to state to. Terminal states are final and
// discarded is reachable from any other state.
func (r *CompetitionRound) Transition(to RoundState) error {
	if !isAllowedTransition(r.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.State, to)
	}
	r.State = to
	return nil
}

// AddSolution appends s unless its solver already has a solution in the round.
func (r *CompetitionRound) AddSolution(s Solution) error {
	if r.seen == nil {
		r.seen = make(map[string]struct{}, len(r.Solutions))
		for _, existing := range r.Solutions {
			r.seen[existing.SolverID] = struct{}{}
		}
	}
	if _, dup := r.seen[s.SolverID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateSolution, s.SolverID)
	}
	r.seen[s.SolverID] = struct{}{}
	r.Solutions = append(r.Solutions, s)
	return nil
}

// SolverIDs returns solver ids in solution order.
func (r *CompetitionRound) SolverIDs() []string {
	ids := make([]string, len(r.Solutions))
	for i, s := range r.Solutions {
		ids[i] = s.SolverID
	}
	return ids
}

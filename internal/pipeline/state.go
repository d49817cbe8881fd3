// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"slices"
	"sync"
)

// Phase is the lifecycle position of one extraction invocation.
type Phase int

const (
	Idle Phase = iota
	Loading
	Succeeded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Terminal reports whether no further transition is allowed.
func (p Phase) Terminal() bool {
	return p == Succeeded || p == Failed
}

// State is the observable state of an invocation. Transcript is set only
// when Phase is Succeeded and Err only when Phase is Failed.
type State struct {
	Phase      Phase
	Transcript string
	Err        *ExtractionError
}

// Observer receives each transition of an invocation, in order. It is
// called on the invocation's goroutine and must not block for long.
type Observer func(State)

// Invocation holds the state of one Extract call. It is safe to read from
// other goroutines while the call runs.
type Invocation struct {
	mu        sync.Mutex
	state     State
	history   []Phase
	observers []Observer
}

func newInvocation(observers []Observer) *Invocation {
	return &Invocation{
		history:   []Phase{Idle},
		observers: observers,
	}
}

// State returns the current state.
func (inv *Invocation) State() State {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.state
}

// History returns every phase the invocation has been in, starting with
// Idle.
func (inv *Invocation) History() []Phase {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return slices.Clone(inv.history)
}

// Outcome converts a terminal state into an Outcome. Before the invocation
// finishes it returns the zero Outcome.
func (inv *Invocation) Outcome() Outcome {
	s := inv.State()
	switch s.Phase {
	case Succeeded:
		return Outcome{Transcript: s.Transcript}
	case Failed:
		return Outcome{Err: s.Err}
	default:
		return Outcome{}
	}
}

// transition moves to next if the lifecycle allows it: Idle to Loading, and
// Loading to Succeeded or Failed. Observers are notified after the state is
// updated.
func (inv *Invocation) transition(next State) error {
	inv.mu.Lock()
	cur := inv.state.Phase
	if !allowed(cur, next.Phase) {
		inv.mu.Unlock()
		return fmt.Errorf("invalid transition %s -> %s", cur, next.Phase)
	}
	inv.state = next
	inv.history = append(inv.history, next.Phase)
	observers := inv.observers
	inv.mu.Unlock()

	for _, obs := range observers {
		obs(next)
	}
	return nil
}

func allowed(from, to Phase) bool {
	switch from {
	case Idle:
		return to == Loading
	case Loading:
		return to.Terminal()
	default:
		return false
	}
}

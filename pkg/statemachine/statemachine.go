package statemachine

import "context"

// State is anything with a stable name.
type State interface {
	Name() string
}

// Event triggers transitions.
type Event interface {
	Name() string
}

// Guard allows a transition for the given runtime data.
type Guard func(ctx context.Context, from State, event Event, data any) bool

// Action runs before the state changes. An error aborts the transition.
type Action func(ctx context.Context, from, to State, event Event, data any) error

// Listener observes committed transitions. It runs outside the machine
// lock, so it may call Current.
type Listener func(ctx context.Context, from, to State, event Event, data any)

// Transition moves the machine from From to To on Event. A nil From matches
// every state that has no transition of its own for Event.
type Transition struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard
	Actions []Action
}

func (t Transition) String() string {
	return nameOr(t.From, anyState) + "->" + nameOr(t.To, "<nil>") + " on " + nameOr(t.Event, "<nil>")
}

// StateMachine is the read and fire surface of a Machine.
type StateMachine interface {
	Current() State
	Fire(ctx context.Context, event Event, data any) error
	CanFire(ctx context.Context, event Event, data any) bool
	Reset() error
}

type StringState string

func (s StringState) Name() string { return string(s) }

type StringEvent string

func (e StringEvent) Name() string { return string(e) }

func nameOr(n interface{ Name() string }, fallback string) string {
	if n == nil {
		return fallback
	}
	return n.Name()
}

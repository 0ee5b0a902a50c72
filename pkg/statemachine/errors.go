package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInitialState = errors.New("initial state is required")
	ErrInvalidTransition   = errors.New("invalid transition definition")
	ErrInvalidEvent        = errors.New("event is required")

	// ErrNoTransition and ErrRejected classify a failed Fire.
	ErrNoTransition = errors.New("no transition available")
	ErrRejected     = errors.New("transition rejected by guards")
)

// TransitionError reports why Fire did not move the machine. It unwraps to
// ErrNoTransition or ErrRejected.
type TransitionError struct {
	State string
	Event string
	cause error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: state %q, event %q", e.cause, e.State, e.Event)
}

func (e *TransitionError) Unwrap() error { return e.cause }

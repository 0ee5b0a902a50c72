package statemachine

import "fmt"

// Option configures a Machine during construction.
type Option func(*Machine) error

// New returns a Machine in initial with the given transitions.
func New(initial State, opts ...Option) (*Machine, error) {
	if initial == nil {
		return nil, ErrInvalidInitialState
	}
	m := newMachine(initial)
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustNew is New for static definitions. It panics on an invalid one.
func MustNew(initial State, opts ...Option) *Machine {
	m, err := New(initial, opts...)
	if err != nil {
		panic(fmt.Sprintf("statemachine: %v", err))
	}
	return m
}

// WithTransitions registers ts in order. Order matters when several
// transitions share a state and event: the first whose guards pass wins.
func WithTransitions(ts ...Transition) Option {
	return func(m *Machine) error {
		for i, t := range ts {
			if err := m.add(t); err != nil {
				return fmt.Errorf("transition[%d] %s: %w", i, t, err)
			}
		}
		return nil
	}
}

// WithTransition registers a single guarded transition.
func WithTransition(from, to State, event Event, guards ...Guard) Option {
	if from == nil {
		return func(*Machine) error { return ErrInvalidTransition }
	}
	return WithTransitions(Transition{From: from, To: to, Event: event, Guards: guards})
}

// WithTransitionFromAny registers a transition valid from every state.
func WithTransitionFromAny(to State, event Event, guards ...Guard) Option {
	return WithTransitions(Transition{To: to, Event: event, Guards: guards})
}

// WithListener adds l to the listeners called after every committed
// transition and after a Reset that changed the state.
func WithListener(l Listener) Option {
	return func(m *Machine) error {
		if l != nil {
			m.listeners = append(m.listeners, l)
		}
		return nil
	}
}

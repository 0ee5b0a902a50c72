package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// anyState keys wildcard transitions in the lookup table.
const anyState = "*"

// Machine is a concurrency-safe finite state machine. Transitions are
// indexed by from-state name and event name.
type Machine struct {
	mu          sync.RWMutex
	initial     State
	current     State
	transitions map[string]map[string][]Transition
	listeners   []Listener
}

var _ StateMachine = (*Machine)(nil)

func newMachine(initial State) *Machine {
	return &Machine{
		initial:     initial,
		current:     initial,
		transitions: make(map[string]map[string][]Transition),
	}
}

func (m *Machine) add(t Transition) error {
	if t.To == nil || t.Event == nil {
		return ErrInvalidTransition
	}
	key := anyState
	if t.From != nil {
		key = t.From.Name()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	byEvent, ok := m.transitions[key]
	if !ok {
		byEvent = make(map[string][]Transition)
		m.transitions[key] = byEvent
	}
	byEvent[t.Event.Name()] = append(byEvent[t.Event.Name()], t)
	return nil
}

func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Fire applies the first matching transition whose guards pass, runs its
// actions and notifies listeners.
func (m *Machine) Fire(ctx context.Context, event Event, data any) error {
	if event == nil {
		return ErrInvalidEvent
	}

	m.mu.Lock()
	from := m.current
	candidates := m.lookup(from.Name(), event.Name())
	if len(candidates) == 0 {
		m.mu.Unlock()
		return &TransitionError{State: from.Name(), Event: event.Name(), cause: ErrNoTransition}
	}
	t, ok := pick(ctx, candidates, from, event, data)
	if !ok {
		m.mu.Unlock()
		return &TransitionError{State: from.Name(), Event: event.Name(), cause: ErrRejected}
	}
	for _, action := range t.Actions {
		if err := action(ctx, from, t.To, event, data); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("action failed: %w", err)
		}
	}
	m.current = t.To
	listeners := m.listeners
	m.mu.Unlock()

	for _, l := range listeners {
		l(ctx, from, t.To, event, data)
	}
	return nil
}

func (m *Machine) CanFire(ctx context.Context, event Event, data any) bool {
	if event == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := pick(ctx, m.lookup(m.current.Name(), event.Name()), m.current, event, data)
	return ok
}

// Reset returns to the initial state without running actions. Listeners
// see a nil event, and only when the state actually changed.
func (m *Machine) Reset() error {
	m.mu.Lock()
	from := m.current
	m.current = m.initial
	listeners := m.listeners
	m.mu.Unlock()

	if from.Name() == m.initial.Name() {
		return nil
	}
	for _, l := range listeners {
		l(context.Background(), from, m.initial, nil, nil)
	}
	return nil
}

// lookup prefers transitions of the concrete state over wildcard ones.
// Callers hold the lock.
func (m *Machine) lookup(state, event string) []Transition {
	if ts := m.transitions[state][event]; len(ts) > 0 {
		return ts
	}
	return m.transitions[anyState][event]
}

func pick(ctx context.Context, ts []Transition, from State, event Event, data any) (Transition, bool) {
next:
	for _, t := range ts {
		for _, g := range t.Guards {
			if g != nil && !g(ctx, from, event, data) {
				continue next
			}
		}
		return t, true
	}
	return Transition{}, false
}

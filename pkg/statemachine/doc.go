// Package statemachine is a small concurrency-safe finite state machine.
//
// States and events are anything with a Name method; StringState and
// StringEvent cover the simple cases. A Transition may carry Guards, which
// must all pass, and Actions, which run in order before the state changes.
// A transition with a nil From applies in every state that has no
// transition of its own for that event.
//
//	sm := statemachine.MustNew(idle,
//		statemachine.WithTransitions(
//			statemachine.Transition{From: idle, To: running, Event: start},
//			statemachine.Transition{From: running, To: done, Event: finish},
//		),
//		statemachine.WithTransitionFromAny(idle, reset),
//		statemachine.WithListener(func(ctx context.Context, from, to statemachine.State, _ statemachine.Event, _ any) {
//			log.Printf("%s -> %s", from.Name(), to.Name())
//		}),
//	)
//
//	if err := sm.Fire(ctx, start, nil); errors.Is(err, statemachine.ErrNoTransition) {
//		// not allowed from the current state
//	}
package statemachine

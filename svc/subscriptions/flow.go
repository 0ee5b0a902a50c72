package subscriptions

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/storekit/pkg/broadcast"
	"github.com/dmitrymomot/storekit/pkg/logger"
	"github.com/dmitrymomot/storekit/pkg/statemachine"
	"github.com/dmitrymomot/storekit/pkg/subscription"
)

const (
	evStart      = statemachine.StringEvent("start")
	evPreFlowEnd = statemachine.StringEvent("pre_flow_done")
	evLaunch     = statemachine.StringEvent("launch")
	evRecovered  = statemachine.StringEvent("recovered")
	evFail       = statemachine.StringEvent("fail")
	evConfirmed  = statemachine.StringEvent("confirmed")
	evWaiting    = statemachine.StringEvent("waiting")
	evCanceled   = statemachine.StringEvent("canceled")
)

// purchaseFlow is the state machine of one purchase attempt. Every committed
// transition is published on state.
type purchaseFlow struct {
	mu    sync.Mutex // serializes fire so published states keep machine order
	sm    statemachine.StateMachine
	state *broadcast.Value[subscription.CurrentPurchase]
	log   *slog.Logger
	m     *metrics
}

func newPurchaseFlow(log *slog.Logger, m *metrics) *purchaseFlow {
	f := &purchaseFlow{
		state: broadcast.NewValue(subscription.CurrentPurchase{State: subscription.PurchaseInactive}),
		log:   log,
		m:     m,
	}

	idle := func(_ context.Context, from statemachine.State, _ statemachine.Event, _ any) bool {
		s, _ := from.(subscription.PurchaseState)
		return !s.IsRunning()
	}

	f.sm = statemachine.MustNew(subscription.PurchaseInactive,
		statemachine.WithTransitionFromAny(subscription.PurchasePreFlowInProgress, evStart, idle),
		statemachine.WithTransitions(
			statemachine.Transition{From: subscription.PurchasePreFlowInProgress, To: subscription.PurchasePreFlowFinished, Event: evPreFlowEnd},
			statemachine.Transition{From: subscription.PurchasePreFlowInProgress, To: subscription.PurchaseRecovered, Event: evRecovered},
			statemachine.Transition{From: subscription.PurchasePreFlowInProgress, To: subscription.PurchaseFailure, Event: evFail},
			statemachine.Transition{From: subscription.PurchasePreFlowFinished, To: subscription.PurchaseInProgress, Event: evLaunch},
			statemachine.Transition{From: subscription.PurchasePreFlowFinished, To: subscription.PurchaseFailure, Event: evFail},
			statemachine.Transition{From: subscription.PurchaseInProgress, To: subscription.PurchaseSuccess, Event: evConfirmed},
			statemachine.Transition{From: subscription.PurchaseInProgress, To: subscription.PurchaseWaiting, Event: evWaiting},
			statemachine.Transition{From: subscription.PurchaseInProgress, To: subscription.PurchaseCanceled, Event: evCanceled},
			statemachine.Transition{From: subscription.PurchaseInProgress, To: subscription.PurchaseFailure, Event: evFail},
			statemachine.Transition{From: subscription.PurchaseWaiting, To: subscription.PurchaseSuccess, Event: evConfirmed},
		),
		statemachine.WithListener(f.publish),
	)
	return f
}

func (f *purchaseFlow) publish(ctx context.Context, from, to statemachine.State, _ statemachine.Event, data any) {
	next := subscription.CurrentPurchase{State: to.(subscription.PurchaseState)}
	if next.State == subscription.PurchaseFailure {
		next.Reason, _ = data.(string)
	}
	f.state.Store(next)
	f.m.purchase(to.Name())
	f.log.DebugContext(ctx, "purchase state changed",
		logger.Component("purchase"),
		slog.String("from", from.Name()),
		logger.PurchaseState(to.Name()),
	)
}

func (f *purchaseFlow) current() subscription.PurchaseState {
	return f.sm.Current().(subscription.PurchaseState)
}

// start begins a new attempt. It fails with ErrPurchaseInProgress while
// another attempt has not reached a terminal state.
func (f *purchaseFlow) start(ctx context.Context) error {
	if err := f.fire(ctx, evStart, nil); err != nil {
		return subscription.ErrPurchaseInProgress
	}
	return nil
}

// fail ends the running attempt with the reason derived from err.
func (f *purchaseFlow) fail(ctx context.Context, err error) {
	_ = f.fire(ctx, evFail, reason(err))
}

// settle applies a store or backend outcome. Outcomes that arrive while no
// attempt is waiting for them, such as a redelivered purchase after a
// restart, leave the flow alone.
func (f *purchaseFlow) settle(ctx context.Context, ev statemachine.Event) bool {
	err := f.fire(ctx, ev, nil)
	return err == nil
}

func (f *purchaseFlow) fire(ctx context.Context, ev statemachine.Event, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := f.sm.Fire(ctx, ev, data)
	if err != nil && !errors.Is(err, statemachine.ErrNoTransition) && !errors.Is(err, statemachine.ErrRejected) {
		f.log.ErrorContext(ctx, "purchase flow transition failed",
			logger.Component("purchase"),
			logger.Event(ev.Name()),
			logger.Error(err),
		)
	}
	return err
}

// reset returns the flow to Inactive unless an attempt is running.
func (f *purchaseFlow) reset(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.current().IsRunning() {
		return false
	}
	if err := f.sm.Reset(); err != nil {
		return false
	}
	f.state.Store(subscription.CurrentPurchase{State: subscription.PurchaseInactive})
	f.log.DebugContext(ctx, "purchase state reset", logger.Component("purchase"))
	return true
}

func (f *purchaseFlow) subscribe(ctx context.Context) broadcast.Subscriber[subscription.CurrentPurchase] {
	return f.state.Subscribe(ctx)
}

func (f *purchaseFlow) close() error {
	return f.state.Close()
}

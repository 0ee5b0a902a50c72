package subscriptions

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storekit/pkg/logger"
	"github.com/dmitrymomot/storekit/pkg/subscription"
)

type countingConfirmer struct {
	calls atomic.Int32
	err   error
}

func (c *countingConfirmer) ConfirmPending(ctx context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestNewPendingChecker(t *testing.T) {
	t.Parallel()

	_, err := NewPendingChecker(&countingConfirmer{}, 0)
	assert.ErrorIs(t, err, ErrCheckIntervalRequired)

	_, err = NewPendingChecker(&countingConfirmer{}, -time.Second)
	assert.ErrorIs(t, err, ErrCheckIntervalRequired)

	assert.Panics(t, func() { _, _ = NewPendingChecker(nil, time.Second) })
}

func TestPendingChecker_Run(t *testing.T) {
	t.Parallel()

	confirmer := &countingConfirmer{err: errors.Join(subscription.ErrTransport, errors.New("timeout"))}
	checker, err := NewPendingChecker(confirmer, 10*time.Millisecond, WithCheckerLogger(logger.Nop()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- checker.Run(ctx) }()

	assert.Eventually(t, func() bool { return confirmer.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("checker did not stop")
	}
}

func TestPendingChecker_ConfirmsThroughManager(t *testing.T) {
	t.Parallel()

	h := newHarness(t,
		withAccount(signedInAccount("1234", "accessToken")),
		withCachedSubscription(&subscription.Subscription{Status: subscription.StatusWaiting}),
		withStorePurchase("pendingToken"),
	)
	h.subs.On("Confirm", mock.Anything, "accessToken", mock.Anything).
		Return(confirmed(subscription.StatusAutoRenewable), nil).Once()

	checker, err := NewPendingChecker(h.m, time.Hour, WithCheckerLogger(logger.Nop()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = checker.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return h.repo.Status() == subscription.StatusAutoRenewable
	}, time.Second, 10*time.Millisecond)
}

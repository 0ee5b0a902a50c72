package subscriptions

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/storekit/pkg/logger"
	"github.com/dmitrymomot/storekit/pkg/subscription"
)

// PendingConfirmer re-attempts a Waiting confirmation. *Manager implements it.
type PendingConfirmer interface {
	ConfirmPending(ctx context.Context) error
}

// PendingChecker polls a PendingConfirmer on a fixed interval, turning
// confirmation retries into restart-safe re-invocations instead of an
// in-process backoff loop.
type PendingChecker struct {
	confirmer PendingConfirmer
	interval  time.Duration
	log       *slog.Logger
}

// CheckerOption configures a PendingChecker.
type CheckerOption func(*PendingChecker)

func WithCheckerLogger(l *slog.Logger) CheckerOption {
	return func(c *PendingChecker) {
		if l != nil {
			c.log = l
		}
	}
}

// NewPendingChecker creates a checker. The interval has no default and must
// be positive.
func NewPendingChecker(confirmer PendingConfirmer, interval time.Duration, opts ...CheckerOption) (*PendingChecker, error) {
	if confirmer == nil {
		panic("subscriptions: pending confirmer is required")
	}
	if interval <= 0 {
		return nil, ErrCheckIntervalRequired
	}
	c := &PendingChecker{
		confirmer: confirmer,
		interval:  interval,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run checks immediately, then on every tick until ctx is done.
func (c *PendingChecker) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.check(ctx)
	for {
		select {
		case <-ctx.Done():
			c.log.InfoContext(ctx, "pending checker shutting down", logger.Component("checker"))
			return ctx.Err()
		case <-ticker.C:
			c.check(ctx)
		}
	}
}

func (c *PendingChecker) check(ctx context.Context) {
	err := c.confirmer.ConfirmPending(ctx)
	switch {
	case err == nil:
	case errors.Is(err, subscription.ErrTransport):
		c.log.DebugContext(ctx, "pending purchase still waiting", logger.Component("checker"), logger.Error(err))
	default:
		c.log.WarnContext(ctx, "pending purchase check failed", logger.Component("checker"), logger.Error(err))
	}
}

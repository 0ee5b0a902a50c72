package subscriptions

import (
	"context"

	"github.com/dmitrymomot/storekit/pkg/backend"
	"github.com/dmitrymomot/storekit/pkg/logger"
	"github.com/dmitrymomot/storekit/pkg/subscription"
)

// confirm posts a store purchase token to the backend and stores the
// confirmed subscription. It is safe to call for the same token repeatedly:
// concurrent calls for one token share a single backend request, and a token
// already confirmed as active is not sent again. Any other token is sent,
// whatever the cached status says.
//
// A transport failure persists StatusWaiting: the user is already charged
// and PendingChecker retries through ConfirmPending.
func (m *Manager) confirm(ctx context.Context, purchaseToken, packageName string) (subscription.PurchaseState, error) {
	if purchaseToken == "" {
		return subscription.PurchaseFailure, subscription.ErrNotFound
	}

	if m.confirmed.Contains(purchaseToken) {
		m.metrics.confirmation("duplicate")
		m.flow.settle(ctx, evConfirmed)
		return subscription.PurchaseSuccess, nil
	}

	// The shared request outlives a caller that gives up; the backend
	// client bounds it with its own timeout.
	ch := m.confirms.DoChan(purchaseToken, func() (any, error) {
		return m.confirmOnce(context.WithoutCancel(ctx), purchaseToken, packageName)
	})
	select {
	case res := <-ch:
		state, _ := res.Val.(subscription.PurchaseState)
		return state, res.Err
	case <-ctx.Done():
		return subscription.PurchaseWaiting, ctx.Err()
	}
}

func (m *Manager) confirmOnce(ctx context.Context, purchaseToken, packageName string) (subscription.PurchaseState, error) {
	log := m.log.With(logger.Component("subscriptions"), logger.PurchaseToken(purchaseToken))

	access := m.repo.AccessToken()
	if access == "" {
		m.metrics.confirmation("not_signed_in")
		m.flow.fail(ctx, subscription.ErrNotSignedIn)
		return subscription.PurchaseFailure, subscription.ErrNotSignedIn
	}

	resp, err := m.subs.Confirm(ctx, access, backend.ConfirmRequest{
		PackageName:   m.packageName(packageName),
		PurchaseToken: purchaseToken,
	})
	if err != nil {
		err = classify(err)
		m.metrics.confirmation("waiting")
		if serr := m.repo.SetStatus(ctx, subscription.StatusWaiting); serr != nil {
			log.ErrorContext(ctx, "failed to persist waiting status", logger.Error(serr))
		}
		m.flow.settle(ctx, evWaiting)
		log.WarnContext(ctx, "purchase confirmation pending", logger.Error(err))
		return subscription.PurchaseWaiting, err
	}

	// A retry of a Waiting purchase that is still not active keeps Waiting.
	sub, err := m.repo.RefreshSubscription(ctx, resp.Subscription.ToSubscription(resp.Entitlements))
	if err != nil {
		m.flow.fail(ctx, err)
		return subscription.PurchaseFailure, err
	}
	if resp.Email != "" && resp.Email != m.repo.Email() {
		if err := m.repo.SetEmail(ctx, resp.Email); err != nil {
			log.ErrorContext(ctx, "failed to store email", logger.Error(err))
		}
	}

	if !sub.IsActive() {
		m.metrics.confirmation("inactive")
		m.flow.settle(ctx, evWaiting)
		log.InfoContext(ctx, "purchase confirmed without active subscription",
			logger.SubscriptionStatus(string(sub.Status)))
		return subscription.PurchaseWaiting, nil
	}

	m.confirmed.Put(purchaseToken, m.now())
	m.metrics.confirmation("success")
	m.flow.settle(ctx, evConfirmed)
	log.InfoContext(ctx, "purchase confirmed", logger.SubscriptionStatus(string(sub.Status)))
	return subscription.PurchaseSuccess, nil
}

// ConfirmPending re-confirms the latest store purchase when the cached
// status is Waiting. It does nothing otherwise. The call is idempotent, so
// it is safe to run on every start and from a periodic checker.
func (m *Manager) ConfirmPending(ctx context.Context) error {
	if m.repo.Status() != subscription.StatusWaiting {
		return nil
	}
	if !m.repo.IsSignedIn() {
		return subscription.ErrNotSignedIn
	}

	history, err := m.source.PurchaseHistory(ctx)
	if err != nil {
		return classify(err)
	}
	purchase, ok := subscription.LatestPurchase(history)
	if !ok {
		return subscription.ErrNotFound
	}

	_, err = m.confirm(ctx, purchase.Token, purchase.PackageName)
	return err
}

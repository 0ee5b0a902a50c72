package subscriptions

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/storekit/pkg/authstore"
	"github.com/dmitrymomot/storekit/pkg/billing"
	"github.com/dmitrymomot/storekit/pkg/logger"
	"github.com/dmitrymomot/storekit/pkg/subscription"
)

// Purchase starts a purchase of planID of the basic subscription.
//
// The pre-flow makes sure the backend knows which account the purchase
// belongs to before the checkout opens:
//   - signed in: the access token is validated (refreshed through store
//     recovery when expired)
//   - not signed in with an active store purchase: the account is recovered
//     and the checkout is not opened (Recovered)
//   - not signed in otherwise: a new account is created
//
// The checkout is then launched with the account's external id. The outcome
// of the checkout arrives through the billing event stream and is published
// on CurrentPurchaseState. Purchase returns the pre-flow or launch error, if
// any, after publishing Failure.
func (m *Manager) Purchase(ctx context.Context, handle billing.ActivityHandle, planID string) error {
	if planID == "" {
		return subscription.ErrInvalidPlan
	}
	if err := m.flow.start(ctx); err != nil {
		return err
	}

	log := m.log.With(logger.Component("purchase"), logger.ProductID(planID))

	offers, err := m.source.Products(ctx)
	if err != nil {
		return m.failPurchase(ctx, log, classify(err))
	}
	offer, ok := billing.FindOffer(offers, subscription.BasicSubscription, planID)
	if !ok {
		return m.failPurchase(ctx, log, subscription.ErrNoOffer)
	}

	externalID, recovered, err := m.preFlow(ctx)
	if err != nil {
		return m.failPurchase(ctx, log, err)
	}
	if recovered {
		m.flow.settle(ctx, evRecovered)
		log.InfoContext(ctx, "active store purchase recovered, checkout skipped", logger.ExternalID(externalID))
		return nil
	}
	m.flow.settle(ctx, evPreFlowEnd)

	// InProgress is entered before launching so a purchase reported while
	// the launch call is still running finds the flow waiting for it.
	m.flow.settle(ctx, evLaunch)
	if err := m.source.LaunchBillingFlow(ctx, handle, offer, externalID); err != nil {
		return m.failPurchase(ctx, log, classify(err))
	}

	log.InfoContext(ctx, "billing flow launched", logger.ExternalID(externalID))
	return nil
}

func (m *Manager) failPurchase(ctx context.Context, log *slog.Logger, err error) error {
	m.flow.fail(ctx, err)
	log.WarnContext(ctx, "purchase failed", logger.Error(err))
	return err
}

// preFlow resolves the account the purchase attaches to. recovered reports
// that an active store purchase was restored instead.
func (m *Manager) preFlow(ctx context.Context) (externalID string, recovered bool, err error) {
	if m.repo.IsSignedIn() {
		// Only the access token has to be valid here.
		if _, err := m.GetAuthToken(ctx); err != nil && !errors.Is(err, ErrAuthTokenMissing) {
			return "", false, err
		}
		return m.repo.ExternalID(), false, nil
	}

	sess, err := m.recoverSession(ctx)
	switch {
	case err == nil:
		if err := m.commit(ctx, sess); err != nil {
			return "", false, err
		}
		m.metrics.recovery("purchase", nil)
		return sess.account.ExternalID, true, nil
	case errors.Is(err, subscription.ErrNotFound):
		// No active store purchase: a new account is needed.
	default:
		m.metrics.recovery("purchase", err)
		return "", false, err
	}

	return m.createAccount(ctx)
}

func (m *Manager) createAccount(ctx context.Context) (string, bool, error) {
	created, err := m.auth.CreateAccount(ctx, "")
	if err != nil {
		return "", false, classify(err)
	}
	access, err := m.auth.AccessToken(ctx, created.AuthToken)
	if err != nil {
		return "", false, classify(err)
	}

	acc := authstore.AccountState{
		AccessToken: access.AccessToken,
		AuthToken:   created.AuthToken,
		ExternalID:  created.ExternalID,
	}
	if err := m.repo.SaveSession(ctx, acc, nil); err != nil {
		return "", false, err
	}

	m.log.InfoContext(ctx, "account created",
		logger.Component("purchase"),
		logger.ExternalID(created.ExternalID),
	)
	return created.ExternalID, false, nil
}

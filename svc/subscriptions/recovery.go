package subscriptions

import (
	"context"
	"errors"

	"github.com/dmitrymomot/storekit/pkg/authstore"
	"github.com/dmitrymomot/storekit/pkg/backend"
	"github.com/dmitrymomot/storekit/pkg/logger"
	"github.com/dmitrymomot/storekit/pkg/subscription"
	"github.com/dmitrymomot/storekit/pkg/token"
)

// session is the result of a recovery before it is persisted.
type session struct {
	account      authstore.AccountState
	subscription *subscription.Subscription
}

// recoverSession rebuilds a signed-in session from the latest store purchase
// without touching the repository:
//  1. latest purchase token from the billing history
//  2. store login with that token
//  3. auth token exchanged for an access token
//  4. subscription and entitlements for the new access token
//
// An expired subscription or one without entitlements is ErrNotFound even
// though authentication succeeded.
func (m *Manager) recoverSession(ctx context.Context) (session, error) {
	history, err := m.source.PurchaseHistory(ctx)
	if err != nil {
		return session{}, classify(err)
	}
	purchase, ok := subscription.LatestPurchase(history)
	if !ok {
		return session{}, subscription.ErrNotFound
	}

	login, err := m.auth.StoreLogin(ctx, backend.NewStoreLoginRequest(
		purchase.Token, m.cfg.Store, m.packageName(purchase.PackageName),
	))
	if err != nil {
		return session{}, classify(err)
	}

	access, err := m.auth.AccessToken(ctx, login.AuthToken)
	if err != nil {
		return session{}, classify(err)
	}

	sub, email, err := m.fetchSubscription(ctx, access.AccessToken)
	if err != nil {
		return session{}, err
	}
	if !sub.IsUsable() {
		return session{}, subscription.ErrNotFound
	}

	if email == "" {
		email = login.Email
	}
	return session{
		account: authstore.AccountState{
			AccessToken: access.AccessToken,
			AuthToken:   login.AuthToken,
			ExternalID:  login.ExternalID,
			Email:       email,
		},
		subscription: sub,
	}, nil
}

// RecoverSubscriptionFromStore restores the account that owns the latest
// store purchase. Account and subscription are persisted together, and only
// when the subscription is usable. A purchase owned by another account than
// the signed-in one fails with ErrIdentityMismatch.
func (m *Manager) RecoverSubscriptionFromStore(ctx context.Context) (*subscription.Subscription, error) {
	sub, err := m.restore(ctx, "restore")
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (m *Manager) restore(ctx context.Context, caller string) (*subscription.Subscription, error) {
	sess, err := m.recoverSession(ctx)
	if err == nil {
		err = m.commit(ctx, sess)
	}
	m.metrics.recovery(caller, err)
	if err != nil {
		m.log.InfoContext(ctx, "store recovery failed",
			logger.Component("subscriptions"),
			logger.Event(caller),
			logger.Error(err),
		)
		return nil, err
	}

	m.log.InfoContext(ctx, "subscription recovered from store",
		logger.Component("subscriptions"),
		logger.Event(caller),
		logger.ExternalID(sess.account.ExternalID),
		logger.SubscriptionStatus(string(sess.subscription.Status)),
	)
	return sess.subscription.Clone(), nil
}

// commit persists a recovered session unless another account is signed in
// by the time it is written.
func (m *Manager) commit(ctx context.Context, sess session) error {
	return m.repo.SaveSessionIf(ctx, sess.account, sess.subscription, func(cur authstore.AccountState) error {
		if cur.AccessToken != "" && cur.ExternalID != sess.account.ExternalID {
			return subscription.ErrIdentityMismatch
		}
		return nil
	})
}

// GetAuthToken validates the access token and returns the auth token on
// file. When the backend reports the access token as expired, or a JWT
// access token is past its exp, the session is rebuilt from the store
// purchase, but only if it resolves to the same external id. Concurrent
// callers share one refresh; a caller whose ctx ends stops waiting without
// cancelling it for the others. A valid access token with no auth token on
// file is ErrAuthTokenMissing.
func (m *Manager) GetAuthToken(ctx context.Context) (string, error) {
	ch := m.refresh.DoChan("auth-token", func() (any, error) {
		tok, err := m.refreshAuthToken(context.WithoutCancel(ctx))
		m.metrics.refresh(err)
		return tok, err
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (m *Manager) refreshAuthToken(ctx context.Context) (string, error) {
	access := m.repo.AccessToken()
	if access == "" {
		return "", subscription.ErrNotSignedIn
	}

	if !token.IsExpired(access, m.now(), m.cfg.TokenExpiryLeeway) {
		_, err := m.auth.ValidateToken(ctx, access)
		if err == nil {
			if auth := m.repo.AuthToken(); auth != "" {
				return auth, nil
			}
			return "", ErrAuthTokenMissing
		}
		if err = classify(err); !errors.Is(err, subscription.ErrAuthExpired) {
			return "", err
		}
	}

	m.log.InfoContext(ctx, "access token expired, recovering from store",
		logger.Component("subscriptions"),
		logger.ExternalID(m.repo.ExternalID()),
	)

	sess, err := m.recoverSession(ctx)
	if err == nil {
		// A sign-out or account switch may land while the store is queried.
		err = m.repo.SaveSessionIf(ctx, sess.account, sess.subscription, func(cur authstore.AccountState) error {
			switch {
			case cur.AccessToken == "":
				return subscription.ErrNotSignedIn
			case cur.ExternalID != sess.account.ExternalID:
				return subscription.ErrIdentityMismatch
			}
			return nil
		})
	}
	m.metrics.recovery("token_refresh", err)
	if err != nil {
		return "", err
	}
	return sess.account.AuthToken, nil
}

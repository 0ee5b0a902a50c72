package subscriptions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storekit/pkg/authstore"
	"github.com/dmitrymomot/storekit/pkg/backend"
	"github.com/dmitrymomot/storekit/pkg/billing"
	"github.com/dmitrymomot/storekit/pkg/logger"
	"github.com/dmitrymomot/storekit/pkg/subscription"
)

const testPackage = "com.example.app"

type harness struct {
	storage *authstore.MemoryStorage
	repo    *authstore.Repository
	source  *billing.MemorySource
	auth    *MockAuthAPI
	subs    *MockSubscriptionsAPI
	m       *Manager
}

type harnessSetup struct {
	account      *authstore.AccountState
	subscription *subscription.Subscription
	sourceOpts   []billing.MemoryOption
	managerOpts  []Option
}

type harnessOption func(*harnessSetup)

func withAccount(a authstore.AccountState) harnessOption {
	return func(s *harnessSetup) { s.account = &a }
}

func withCachedSubscription(sub *subscription.Subscription) harnessOption {
	return func(s *harnessSetup) { s.subscription = sub }
}

func withStorePurchase(token string) harnessOption {
	return func(s *harnessSetup) {
		s.sourceOpts = append(s.sourceOpts, billing.WithPurchases(subscription.PurchaseRecord{
			Token:       token,
			ProductID:   subscription.MonthlyPlan,
			PackageName: testPackage,
			PurchasedAt: time.Now().Add(-time.Hour),
		}))
	}
}

func withManagerOptions(opts ...Option) harnessOption {
	return func(s *harnessSetup) { s.managerOpts = append(s.managerOpts, opts...) }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	ctx := context.Background()

	setup := &harnessSetup{}
	for _, opt := range opts {
		opt(setup)
	}

	storage := authstore.NewMemoryStorage()
	if setup.account != nil || setup.subscription != nil {
		require.NoError(t, storage.Apply(ctx, authstore.Update{Account: setup.account, Subscription: setup.subscription}))
	}
	repo, err := authstore.Open(ctx, storage, authstore.WithLogger(logger.Nop()))
	require.NoError(t, err)

	sourceOpts := append([]billing.MemoryOption{billing.WithOffers(
		billing.Offer{ProductID: subscription.BasicSubscription, PlanID: subscription.MonthlyPlan},
		billing.Offer{ProductID: subscription.BasicSubscription, PlanID: subscription.YearlyPlan},
	)}, setup.sourceOpts...)
	source := billing.NewMemorySource(sourceOpts...)

	cfg := DefaultConfig()
	cfg.PackageName = testPackage

	h := &harness{
		storage: storage,
		repo:    repo,
		source:  source,
		auth:    &MockAuthAPI{},
		subs:    &MockSubscriptionsAPI{},
	}
	managerOpts := append([]Option{WithLogger(logger.Nop())}, setup.managerOpts...)
	h.m = New(cfg, repo, source, h.auth, h.subs, managerOpts...)

	t.Cleanup(func() {
		_ = h.m.Close()
		_ = source.Close()
		_ = repo.Close()
	})
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.m.Start(context.Background()))
}

func signedInAccount(externalID, accessToken string) authstore.AccountState {
	return authstore.AccountState{
		AccessToken: accessToken,
		AuthToken:   "storedAuthToken",
		ExternalID:  externalID,
		Email:       "user@example.com",
	}
}

func netP() []subscription.Entitlement {
	return []subscription.Entitlement{{Product: subscription.ProductNetP, Name: "subscriber"}}
}

func validAccount(externalID string, ents []subscription.Entitlement) backend.ValidateTokenResponse {
	return backend.ValidateTokenResponse{Account: backend.AccountResponse{
		Email:        "user@example.com",
		ExternalID:   externalID,
		Entitlements: ents,
	}}
}

func subscriptionRecord(status subscription.Status) backend.SubscriptionResponse {
	return backend.SubscriptionResponse{
		ProductID:         subscription.MonthlyPlan,
		StartedAt:         1_700_000_000_000,
		ExpiresOrRenewsAt: 1_702_592_000_000,
		Platform:          "android",
		Status:            string(status),
	}
}

// expectRecovery scripts the backend side of a store recovery for
// purchaseToken resolving to externalID.
func (h *harness) expectRecovery(purchaseToken, externalID string, status subscription.Status, ents []subscription.Entitlement) {
	h.auth.On("StoreLogin", mock.Anything, mock.MatchedBy(func(r backend.StoreLoginRequest) bool {
		return r.Signature == purchaseToken
	})).Return(backend.StoreLoginResponse{
		AuthToken:  "authToken",
		ExternalID: externalID,
		Email:      "user@example.com",
	}, nil)
	h.auth.On("AccessToken", mock.Anything, "authToken").
		Return(backend.AccessTokenResponse{AccessToken: "accessToken"}, nil)
	h.auth.On("ValidateToken", mock.Anything, "accessToken").
		Return(validAccount(externalID, ents), nil)
	h.subs.On("Subscription", mock.Anything, "accessToken").
		Return(subscriptionRecord(status), nil)
}

// waitForPurchase reads the purchase stream until it reports want.
func (h *harness) waitForPurchase(t *testing.T, want subscription.PurchaseState) subscription.CurrentPurchase {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub := h.m.CurrentPurchaseState(ctx)
	defer sub.Close()
	for {
		select {
		case msg, ok := <-sub.Receive(ctx):
			require.True(t, ok, "purchase stream closed")
			if msg.Data.State == want {
				return msg.Data
			}
		case <-ctx.Done():
			t.Fatalf("purchase state %q not reached, last %q", want, h.m.CurrentPurchase().State)
		}
	}
}

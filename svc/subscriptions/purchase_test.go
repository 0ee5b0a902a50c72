package subscriptions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storekit/pkg/backend"
	"github.com/dmitrymomot/storekit/pkg/billing"
	"github.com/dmitrymomot/storekit/pkg/subscription"
)

func storePurchase(token string) subscription.PurchaseRecord {
	return subscription.PurchaseRecord{
		Token:       token,
		ProductID:   subscription.MonthlyPlan,
		PackageName: testPackage,
		PurchasedAt: time.Now(),
	}
}

func confirmed(status subscription.Status) backend.ConfirmResponse {
	return backend.ConfirmResponse{
		Email:        "buyer@example.com",
		Entitlements: netP(),
		Subscription: subscriptionRecord(status),
	}
}

func (h *harness) expectNewAccount() {
	h.auth.On("CreateAccount", mock.Anything, "").
		Return(backend.CreateAccountResponse{AuthToken: "newAuthToken", ExternalID: "ext-new", Status: "created"}, nil).Once()
	h.auth.On("AccessToken", mock.Anything, "newAuthToken").
		Return(backend.AccessTokenResponse{AccessToken: "newAccessToken"}, nil)
}

func TestPurchase_NewAccount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h := newHarness(t)
	h.start(t)
	h.expectNewAccount()
	h.subs.On("Confirm", mock.Anything, "newAccessToken", backend.ConfirmRequest{
		PackageName:   testPackage,
		PurchaseToken: "purchaseToken",
	}).Return(confirmed(subscription.StatusAutoRenewable), nil).Once()

	require.NoError(t, h.m.Purchase(ctx, nil, subscription.MonthlyPlan))
	assert.Equal(t, subscription.PurchaseInProgress, h.m.CurrentPurchase().State)

	launches := h.source.Launches()
	require.Len(t, launches, 1)
	assert.Equal(t, "ext-new", launches[0].ExternalID)
	assert.Equal(t, subscription.MonthlyPlan, launches[0].Offer.PlanID)
	assert.True(t, h.repo.IsSignedIn())
	assert.Equal(t, "newAccessToken", h.repo.AccessToken())

	require.NoError(t, h.source.CompletePurchase(ctx, storePurchase("purchaseToken")))
	h.waitForPurchase(t, subscription.PurchaseSuccess)

	assert.Equal(t, subscription.StatusAutoRenewable, h.repo.Status())
	assert.True(t, h.repo.Subscription().HasEntitlement(subscription.ProductNetP))
	assert.Equal(t, "buyer@example.com", h.repo.Email())
	h.auth.AssertNumberOfCalls(t, "CreateAccount", 1)
	h.subs.AssertExpectations(t)
}

func TestPurchase_AccountCreationFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h := newHarness(t)
	h.auth.On("CreateAccount", mock.Anything, "").
		Return(backend.CreateAccountResponse{}, errors.New("503 service unavailable"))

	for range 3 {
		err := h.m.Purchase(ctx, nil, subscription.MonthlyPlan)
		assert.ErrorIs(t, err, subscription.ErrTransport)

		cur := h.m.CurrentPurchase()
		assert.Equal(t, subscription.PurchaseFailure, cur.State)
		assert.Equal(t, subscription.ErrTransport.Error(), cur.Reason)
	}

	assert.Empty(t, h.source.Launches())
	assert.False(t, h.repo.IsSignedIn())
	h.auth.AssertNumberOfCalls(t, "CreateAccount", 3)
}

func TestPurchase_RecoversActiveStorePurchase(t *testing.T) {
	t.Parallel()

	h := newHarness(t, withStorePurchase("validToken"))
	h.expectRecovery("validToken", "1234", subscription.StatusAutoRenewable, netP())

	require.NoError(t, h.m.Purchase(context.Background(), nil, subscription.YearlyPlan))

	assert.Equal(t, subscription.PurchaseRecovered, h.m.CurrentPurchase().State)
	assert.Empty(t, h.source.Launches())
	assert.Equal(t, "1234", h.repo.ExternalID())
	assert.Equal(t, subscription.StatusAutoRenewable, h.repo.Status())
	h.auth.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything)
}

func TestPurchase_ExpiredStorePurchaseCreatesAccount(t *testing.T) {
	t.Parallel()

	h := newHarness(t, withStorePurchase("validToken"))
	h.expectRecovery("validToken", "1234", subscription.StatusExpired, netP())
	h.expectNewAccount()

	require.NoError(t, h.m.Purchase(context.Background(), nil, subscription.MonthlyPlan))

	assert.Equal(t, subscription.PurchaseInProgress, h.m.CurrentPurchase().State)
	launches := h.source.Launches()
	require.Len(t, launches, 1)
	assert.Equal(t, "ext-new", launches[0].ExternalID)
	assert.Equal(t, "ext-new", h.repo.ExternalID())
	assert.Nil(t, h.repo.Subscription())
}

func TestPurchase_StoreLoginFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t, withStorePurchase("validToken"))
	h.auth.On("StoreLogin", mock.Anything, mock.Anything).
		Return(backend.StoreLoginResponse{}, errors.New("connection reset"))

	err := h.m.Purchase(context.Background(), nil, subscription.MonthlyPlan)
	assert.ErrorIs(t, err, subscription.ErrTransport)
	assert.Equal(t, subscription.PurchaseFailure, h.m.CurrentPurchase().State)
	h.auth.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything)
}

func TestPurchase_SignedInCanceledThenRestarted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h := newHarness(t, withAccount(signedInAccount("1234", "accessToken")))
	h.start(t)
	h.auth.On("ValidateToken", mock.Anything, "accessToken").Return(validAccount("1234", nil), nil)

	require.NoError(t, h.m.Purchase(ctx, nil, subscription.MonthlyPlan))
	require.NoError(t, h.source.Emit(ctx, billing.Canceled()))
	h.waitForPurchase(t, subscription.PurchaseCanceled)

	require.NoError(t, h.m.Purchase(ctx, nil, subscription.YearlyPlan))
	assert.Equal(t, subscription.PurchaseInProgress, h.m.CurrentPurchase().State)

	launches := h.source.Launches()
	require.Len(t, launches, 2)
	assert.Equal(t, "1234", launches[1].ExternalID)
	assert.Equal(t, subscription.YearlyPlan, launches[1].Offer.PlanID)
	h.auth.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything)
}

func TestPurchase_Rejections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("already in progress", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, withAccount(signedInAccount("1234", "accessToken")))
		h.auth.On("ValidateToken", mock.Anything, "accessToken").Return(validAccount("1234", nil), nil)

		require.NoError(t, h.m.Purchase(ctx, nil, subscription.MonthlyPlan))
		err := h.m.Purchase(ctx, nil, subscription.MonthlyPlan)
		assert.ErrorIs(t, err, subscription.ErrPurchaseInProgress)
		assert.Equal(t, subscription.PurchaseInProgress, h.m.CurrentPurchase().State)
		assert.Len(t, h.source.Launches(), 1)
	})

	t.Run("unknown plan", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)

		err := h.m.Purchase(ctx, nil, "weekly")
		assert.ErrorIs(t, err, subscription.ErrNoOffer)
		cur := h.m.CurrentPurchase()
		assert.Equal(t, subscription.PurchaseFailure, cur.State)
		assert.Equal(t, subscription.ErrNoOffer.Error(), cur.Reason)
		assert.Empty(t, h.auth.Calls)
	})

	t.Run("empty plan", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)

		err := h.m.Purchase(ctx, nil, "")
		assert.ErrorIs(t, err, subscription.ErrInvalidPlan)
		assert.Equal(t, subscription.PurchaseInactive, h.m.CurrentPurchase().State)
	})

	t.Run("launch failure", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, withAccount(signedInAccount("1234", "accessToken")))
		h.auth.On("ValidateToken", mock.Anything, "accessToken").Return(validAccount("1234", nil), nil)
		h.source.FailLaunch(errors.New("billing unavailable"))

		err := h.m.Purchase(ctx, nil, subscription.MonthlyPlan)
		assert.ErrorIs(t, err, subscription.ErrTransport)
		assert.Equal(t, subscription.PurchaseFailure, h.m.CurrentPurchase().State)
	})

	t.Run("expired session of another account", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t,
			withAccount(signedInAccount("test", "oldAccessToken")),
			withStorePurchase("validToken"),
		)
		h.auth.On("ValidateToken", mock.Anything, "oldAccessToken").Return(backend.ValidateTokenResponse{}, errExpiredToken)
		h.expectRecovery("validToken", "1234", subscription.StatusAutoRenewable, netP())

		err := h.m.Purchase(ctx, nil, subscription.MonthlyPlan)
		assert.ErrorIs(t, err, subscription.ErrIdentityMismatch)
		cur := h.m.CurrentPurchase()
		assert.Equal(t, subscription.PurchaseFailure, cur.State)
		assert.Equal(t, subscription.ErrIdentityMismatch.Error(), cur.Reason)
		assert.Empty(t, h.source.Launches())
	})
}

func TestResetPurchase(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h := newHarness(t, withAccount(signedInAccount("1234", "accessToken")))
	h.start(t)
	h.auth.On("ValidateToken", mock.Anything, "accessToken").Return(validAccount("1234", nil), nil)

	require.NoError(t, h.m.Purchase(ctx, nil, subscription.MonthlyPlan))
	assert.False(t, h.m.ResetPurchase(ctx), "running attempt must not reset")

	require.NoError(t, h.source.Emit(ctx, billing.Canceled()))
	h.waitForPurchase(t, subscription.PurchaseCanceled)

	assert.True(t, h.m.ResetPurchase(ctx))
	h.waitForPurchase(t, subscription.PurchaseInactive)
}

func TestPurchase_SignedInWithoutAuthToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	acc := signedInAccount("1234", "accessToken")
	acc.AuthToken = ""
	h := newHarness(t, withAccount(acc))
	h.auth.On("ValidateToken", mock.Anything, "accessToken").Return(validAccount("1234", nil), nil)

	require.NoError(t, h.m.Purchase(ctx, nil, subscription.MonthlyPlan))
	assert.Equal(t, subscription.PurchaseInProgress, h.m.CurrentPurchase().State)

	launches := h.source.Launches()
	require.Len(t, launches, 1)
	assert.Equal(t, "1234", launches[0].ExternalID)
	h.auth.AssertNotCalled(t, "StoreLogin", mock.Anything, mock.Anything)
}

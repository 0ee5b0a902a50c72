package subscription_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/storekit/pkg/subscription"
)

func TestParseStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want subscription.Status
	}{
		{"Auto-Renewable", subscription.StatusAutoRenewable},
		{"auto-renewable", subscription.StatusAutoRenewable},
		{" Not Auto-Renewable ", subscription.StatusNotAutoRenewable},
		{"Grace Period", subscription.StatusGracePeriod},
		{"Inactive", subscription.StatusInactive},
		{"Expired", subscription.StatusExpired},
		{"Waiting", subscription.StatusWaiting},
		{"", subscription.StatusUnknown},
		{"something-else", subscription.StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, subscription.ParseStatus(tt.raw))
		})
	}
}

func TestStatus_Classification(t *testing.T) {
	t.Parallel()

	assert.True(t, subscription.StatusAutoRenewable.IsActive())
	assert.True(t, subscription.StatusNotAutoRenewable.IsActive())
	assert.True(t, subscription.StatusGracePeriod.IsActive())
	assert.False(t, subscription.StatusWaiting.IsActive())
	assert.False(t, subscription.StatusUnknown.IsActive())

	assert.True(t, subscription.StatusExpired.IsExpired())
	assert.True(t, subscription.StatusInactive.IsExpired())
	assert.False(t, subscription.StatusGracePeriod.IsExpired())

	assert.Equal(t, "Unknown", subscription.Status("").String())
}

func TestSubscription_IsUsable(t *testing.T) {
	t.Parallel()

	netp := []subscription.Entitlement{{Product: subscription.ProductNetP, Name: "subscriber"}}

	t.Run("nil subscription", func(t *testing.T) {
		t.Parallel()
		var sub *subscription.Subscription
		assert.False(t, sub.IsUsable())
		assert.False(t, sub.HasEntitlement(subscription.ProductNetP))
	})

	t.Run("expired with entitlements", func(t *testing.T) {
		t.Parallel()
		sub := &subscription.Subscription{Status: subscription.StatusExpired, Entitlements: netp}
		assert.False(t, sub.IsUsable())
	})

	t.Run("active without entitlements", func(t *testing.T) {
		t.Parallel()
		sub := &subscription.Subscription{Status: subscription.StatusAutoRenewable}
		assert.False(t, sub.IsUsable())
	})

	t.Run("active with entitlements", func(t *testing.T) {
		t.Parallel()
		sub := &subscription.Subscription{Status: subscription.StatusAutoRenewable, Entitlements: netp}
		assert.True(t, sub.IsUsable())
		assert.True(t, sub.HasEntitlement(subscription.ProductNetP))
		assert.False(t, sub.HasEntitlement(subscription.ProductITR))
	})
}

func TestSubscription_Clone(t *testing.T) {
	t.Parallel()

	orig := &subscription.Subscription{
		Status:       subscription.StatusAutoRenewable,
		Entitlements: []subscription.Entitlement{{Product: subscription.ProductNetP}},
	}
	cp := orig.Clone()
	cp.Entitlements[0].Product = subscription.ProductPIR

	assert.Equal(t, subscription.ProductNetP, orig.Entitlements[0].Product)
}

func TestLatestPurchase(t *testing.T) {
	t.Parallel()

	now := time.Now()

	t.Run("empty ledger", func(t *testing.T) {
		t.Parallel()
		_, ok := subscription.LatestPurchase(nil)
		assert.False(t, ok)
	})

	t.Run("picks most recent with token", func(t *testing.T) {
		t.Parallel()
		rec, ok := subscription.LatestPurchase([]subscription.PurchaseRecord{
			{Token: "old", PurchasedAt: now.Add(-48 * time.Hour)},
			{Token: "", PurchasedAt: now},
			{Token: "new", PurchasedAt: now.Add(-time.Hour)},
		})
		assert.True(t, ok)
		assert.Equal(t, "new", rec.Token)
	})
}

func TestPurchaseState(t *testing.T) {
	t.Parallel()

	assert.True(t, subscription.PurchaseFailure.IsTerminal())
	assert.True(t, subscription.PurchaseWaiting.IsTerminal())
	assert.False(t, subscription.PurchaseInProgress.IsTerminal())
	assert.True(t, subscription.PurchaseInProgress.IsRunning())
	assert.False(t, subscription.PurchaseInactive.IsRunning())
	assert.Equal(t, "recovered", subscription.PurchaseRecovered.Name())
}

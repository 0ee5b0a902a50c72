package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storekit/pkg/billing"
	"github.com/dmitrymomot/storekit/pkg/subscription"
)

var monthly = billing.Offer{
	ProductID: subscription.BasicSubscription,
	PlanID:    subscription.MonthlyPlan,
}

func TestMemorySource_Products(t *testing.T) {
	yearly := billing.Offer{ProductID: subscription.BasicSubscription, PlanID: subscription.YearlyPlan}
	src := billing.NewMemorySource(billing.WithOffers(monthly, yearly))
	defer src.Close()

	offers, err := src.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, offers, 2)

	got, ok := billing.FindOffer(offers, subscription.BasicSubscription, subscription.YearlyPlan)
	require.True(t, ok)
	assert.False(t, got.IsMonthly())

	_, ok = billing.FindOffer(offers, "other", subscription.MonthlyPlan)
	assert.False(t, ok)
}

func TestMemorySource_History(t *testing.T) {
	older := subscription.PurchaseRecord{Token: "old", PurchasedAt: time.Unix(100, 0)}
	src := billing.NewMemorySource(billing.WithPurchases(older))
	defer src.Close()

	src.AddPurchase(subscription.PurchaseRecord{Token: "validToken", PurchasedAt: time.Unix(200, 0)})
	src.AddPurchase(subscription.PurchaseRecord{Token: "validToken", PurchasedAt: time.Unix(200, 0)})

	history, err := src.PurchaseHistory(context.Background())
	require.NoError(t, err)
	assert.Len(t, history, 2)

	latest, ok := subscription.LatestPurchase(history)
	require.True(t, ok)
	assert.Equal(t, "validToken", latest.Token)

	src.FailHistory(billing.ErrHistoryUnavailable)
	_, err = src.PurchaseHistory(context.Background())
	assert.ErrorIs(t, err, billing.ErrHistoryUnavailable)
}

func TestMemorySource_LaunchAndEvents(t *testing.T) {
	ctx := context.Background()
	var src *billing.MemorySource
	src = billing.NewMemorySource(billing.OnLaunch(func(ctx context.Context, l billing.Launch) {
		_ = src.CompletePurchase(ctx, subscription.PurchaseRecord{Token: "tok-" + l.ExternalID, PackageName: "com.example"})
	}))
	defer src.Close()

	sub := src.Subscribe(ctx)
	defer sub.Close()

	require.NoError(t, src.LaunchBillingFlow(ctx, nil, monthly, "1234"))

	select {
	case msg := <-sub.Receive(ctx):
		assert.Equal(t, billing.Purchased("tok-1234", "com.example"), msg.Data)
	case <-time.After(time.Second):
		t.Fatal("no purchase event")
	}

	launches := src.Launches()
	require.Len(t, launches, 1)
	assert.Equal(t, "1234", launches[0].ExternalID)

	src.FailLaunch(errors.New("store unavailable"))
	assert.Error(t, src.LaunchBillingFlow(ctx, nil, monthly, "1234"))
	assert.Len(t, src.Launches(), 1)
}

func TestMemorySource_CloseEndsSubscriptions(t *testing.T) {
	src := billing.NewMemorySource()
	sub := src.Subscribe(context.Background())
	require.NoError(t, src.Close())

	_, ok := <-sub.Receive(context.Background())
	assert.False(t, ok)
}

package billing

import (
	"context"

	"github.com/dmitrymomot/storekit/pkg/broadcast"
	"github.com/dmitrymomot/storekit/pkg/subscription"
)

// Offer is a purchasable plan of a subscription product.
type Offer struct {
	ProductID string `json:"product_id" yaml:"product_id"`
	PlanID    string `json:"plan_id" yaml:"plan_id"`
	OfferID   string `json:"offer_id,omitempty" yaml:"offer_id"`
	// PriceRef is the provider's own reference for the price (a Paddle price
	// id, a store offer token).
	PriceRef string `json:"price_ref,omitempty" yaml:"price_ref"`
	// Price is a display string and never used in calculations.
	Price string `json:"price,omitempty" yaml:"price"`
}

// IsMonthly reports whether the offer renews every month.
func (o Offer) IsMonthly() bool {
	return subscription.IsMonthlyPlan(o.PlanID)
}

// FindOffer returns the offer for productID and planID.
func FindOffer(offers []Offer, productID, planID string) (Offer, bool) {
	for _, o := range offers {
		if o.ProductID == productID && o.PlanID == planID {
			return o, true
		}
	}
	return Offer{}, false
}

// EventKind tells purchase lifecycle events apart.
type EventKind string

const (
	EventPurchased EventKind = "purchased"
	EventCanceled  EventKind = "canceled"
)

// Event is a purchase lifecycle notification from the billing provider.
// Token and PackageName are set for EventPurchased only.
type Event struct {
	Kind        EventKind
	Token       string
	PackageName string
}

// Purchased builds an EventPurchased.
func Purchased(token, packageName string) Event {
	return Event{Kind: EventPurchased, Token: token, PackageName: packageName}
}

// Canceled builds an EventCanceled.
func Canceled() Event {
	return Event{Kind: EventCanceled}
}

// ActivityHandle is the host's opaque handle for the screen that launches
// the checkout. Providers that show a web checkout expect a CheckoutOpener.
type ActivityHandle any

// CheckoutOpener opens a hosted checkout page.
type CheckoutOpener interface {
	OpenCheckout(ctx context.Context, url string) error
}

// CheckoutOpenerFunc adapts a function to CheckoutOpener.
type CheckoutOpenerFunc func(ctx context.Context, url string) error

func (f CheckoutOpenerFunc) OpenCheckout(ctx context.Context, url string) error {
	return f(ctx, url)
}

// Source wraps a billing provider.
type Source interface {
	// PurchaseHistory returns the purchases known to the provider for this device.
	PurchaseHistory(ctx context.Context) ([]subscription.PurchaseRecord, error)
	// Products returns the purchasable offers.
	Products(ctx context.Context) ([]Offer, error)
	// Subscribe streams purchase lifecycle events until ctx is done.
	Subscribe(ctx context.Context) broadcast.Subscriber[Event]
	// LaunchBillingFlow opens the provider checkout for offer. externalID
	// links the purchase to the backend account.
	LaunchBillingFlow(ctx context.Context, handle ActivityHandle, offer Offer, externalID string) error
}

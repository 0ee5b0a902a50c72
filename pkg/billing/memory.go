package billing

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/storekit/pkg/broadcast"
	"github.com/dmitrymomot/storekit/pkg/subscription"
)

// Launch records one LaunchBillingFlow call on a MemorySource.
type Launch struct {
	Handle     ActivityHandle
	Offer      Offer
	ExternalID string
}

// MemorySource is a scriptable Source for tests and demo hosts.
type MemorySource struct {
	ledger ledger
	events *broadcast.MemoryBroadcaster[Event]

	mu         sync.Mutex
	offers     []Offer
	historyErr error
	launchErr  error
	launches   []Launch
	onLaunch   func(ctx context.Context, l Launch)
}

// MemoryOption configures a MemorySource.
type MemoryOption func(*MemorySource)

// WithOffers sets the catalog returned by Products.
func WithOffers(offers ...Offer) MemoryOption {
	return func(s *MemorySource) {
		s.offers = append(s.offers, offers...)
	}
}

// WithPurchases seeds the purchase history.
func WithPurchases(records ...subscription.PurchaseRecord) MemoryOption {
	return func(s *MemorySource) {
		for _, r := range records {
			s.ledger.add(r)
		}
	}
}

// OnLaunch registers fn to run after every successful LaunchBillingFlow.
// Tests use it to emit the provider's answer.
func OnLaunch(fn func(ctx context.Context, l Launch)) MemoryOption {
	return func(s *MemorySource) {
		s.onLaunch = fn
	}
}

// NewMemorySource creates a MemorySource.
func NewMemorySource(opts ...MemoryOption) *MemorySource {
	s := &MemorySource{
		events: broadcast.NewMemoryBroadcaster[Event](16, broadcast.WithDeliveryTimeout(5*time.Second)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemorySource) PurchaseHistory(ctx context.Context) ([]subscription.PurchaseRecord, error) {
	s.mu.Lock()
	err := s.historyErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.ledger.list(), nil
}

func (s *MemorySource) Products(ctx context.Context) ([]Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.offers), nil
}

func (s *MemorySource) Subscribe(ctx context.Context) broadcast.Subscriber[Event] {
	return s.events.Subscribe(ctx)
}

func (s *MemorySource) LaunchBillingFlow(ctx context.Context, handle ActivityHandle, offer Offer, externalID string) error {
	l := Launch{Handle: handle, Offer: offer, ExternalID: externalID}

	s.mu.Lock()
	if s.launchErr != nil {
		err := s.launchErr
		s.mu.Unlock()
		return err
	}
	s.launches = append(s.launches, l)
	hook := s.onLaunch
	s.mu.Unlock()

	if hook != nil {
		hook(ctx, l)
	}
	return nil
}

// AddPurchase appends a record to the purchase history.
func (s *MemorySource) AddPurchase(r subscription.PurchaseRecord) {
	s.ledger.add(r)
}

// CompletePurchase records a purchase and emits EventPurchased for it, the
// way a store reports a finished checkout.
func (s *MemorySource) CompletePurchase(ctx context.Context, r subscription.PurchaseRecord) error {
	s.ledger.add(r)
	return s.Emit(ctx, Purchased(r.Token, r.PackageName))
}

// Emit broadcasts e to subscribers.
func (s *MemorySource) Emit(ctx context.Context, e Event) error {
	return s.events.Broadcast(ctx, broadcast.Message[Event]{Data: e})
}

// FailHistory makes PurchaseHistory return err until called with nil.
func (s *MemorySource) FailHistory(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyErr = err
}

// FailLaunch makes LaunchBillingFlow return err until called with nil.
func (s *MemorySource) FailLaunch(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.launchErr = err
}

// Launches returns the recorded LaunchBillingFlow calls.
func (s *MemorySource) Launches() []Launch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.launches)
}

// SubscriberCount returns the number of live event subscribers.
func (s *MemorySource) SubscriberCount() int {
	return s.events.SubscriberCount()
}

// Close ends every event subscription.
func (s *MemorySource) Close() error {
	return s.events.Close()
}

package backend

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrymomot/storekit/pkg/subscription"
)

// SubscriptionResponse is the backend subscription record. Times are unix
// milliseconds.
type SubscriptionResponse struct {
	ProductID         string `json:"productId"`
	StartedAt         int64  `json:"startedAt"`
	ExpiresOrRenewsAt int64  `json:"expiresOrRenewsAt"`
	Platform          string `json:"platform"`
	Status            string `json:"status"`
}

// ToSubscription converts the record, attaching entitlements that the
// status endpoint itself does not return.
func (r SubscriptionResponse) ToSubscription(ents []subscription.Entitlement) *subscription.Subscription {
	return &subscription.Subscription{
		ProductID:         r.ProductID,
		Platform:          parsePlatform(r.Platform),
		Status:            subscription.ParseStatus(r.Status),
		StartedAt:         millis(r.StartedAt),
		ExpiresOrRenewsAt: millis(r.ExpiresOrRenewsAt),
		Entitlements:      ents,
	}
}

// ConfirmRequest asks the backend to validate a store purchase.
type ConfirmRequest struct {
	PackageName   string `json:"packageName"`
	PurchaseToken string `json:"purchaseToken"`
}

// ConfirmResponse is the result of a successful confirmation.
type ConfirmResponse struct {
	Email        string                     `json:"email"`
	Entitlements []subscription.Entitlement `json:"entitlements"`
	Subscription SubscriptionResponse       `json:"subscription"`
}

type PortalResponse struct {
	CustomerPortalURL string `json:"customer_portal_url"`
}

// SubscriptionsClient talks to the subscription status backend.
type SubscriptionsClient struct {
	c *client
}

// NewSubscriptionsClient creates a client for the API rooted at baseURL,
// e.g. https://example.com/api.
func NewSubscriptionsClient(baseURL string, opts ...Option) (*SubscriptionsClient, error) {
	c, err := newClient(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &SubscriptionsClient{c: c}, nil
}

func (s *SubscriptionsClient) Subscription(ctx context.Context, accessToken string) (SubscriptionResponse, error) {
	if accessToken == "" {
		return SubscriptionResponse{}, ErrMissingToken
	}
	var resp SubscriptionResponse
	err := s.c.do(ctx, http.MethodGet, "/subscription", accessToken, nil, &resp)
	return resp, err
}

// Confirm posts a store purchase token for final validation.
func (s *SubscriptionsClient) Confirm(ctx context.Context, accessToken string, req ConfirmRequest) (ConfirmResponse, error) {
	if accessToken == "" {
		return ConfirmResponse{}, ErrMissingToken
	}
	var resp ConfirmResponse
	err := s.c.do(ctx, http.MethodPost, "/purchase/confirm/google", accessToken, req, &resp)
	return resp, err
}

// Portal returns the customer portal URL for managing the subscription.
func (s *SubscriptionsClient) Portal(ctx context.Context, accessToken string) (PortalResponse, error) {
	if accessToken == "" {
		return PortalResponse{}, ErrMissingToken
	}
	var resp PortalResponse
	err := s.c.do(ctx, http.MethodGet, "/checkout/portal", accessToken, nil, &resp)
	return resp, err
}

func parsePlatform(raw string) subscription.Platform {
	switch p := subscription.Platform(raw); p {
	case subscription.PlatformAndroid, subscription.PlatformIOS, subscription.PlatformStripe, subscription.PlatformPaddle:
		return p
	case "google":
		return subscription.PlatformAndroid
	case "apple":
		return subscription.PlatformIOS
	default:
		return subscription.PlatformUnknown
	}
}

func millis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

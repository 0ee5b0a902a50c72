package billing

import "errors"

var (
	ErrLaunchFailed       = errors.New("billing flow could not be launched")
	ErrNoCheckoutOpener   = errors.New("activity handle cannot open a checkout page")
	ErrCheckoutURLMissing = errors.New("no checkout URL returned by provider")
	ErrUnknownOffer       = errors.New("offer is not configured")
	ErrInvalidConfig      = errors.New("invalid billing provider configuration")
	ErrWebhookSignature   = errors.New("webhook signature verification failed")
	ErrWebhookPayload     = errors.New("malformed webhook payload")
	ErrHistoryUnavailable = errors.New("purchase history unavailable")
)

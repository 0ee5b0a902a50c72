package subscriptions

import (
	"errors"

	"github.com/dmitrymomot/storekit/pkg/subscription"
)

var (
	ErrAlreadyStarted        = errors.New("subscriptions manager already started")
	ErrManagerClosed         = errors.New("subscriptions manager is closed")
	ErrCheckIntervalRequired = errors.New("pending checker interval is required")
	ErrAuthTokenMissing      = errors.New("no auth token stored for the signed-in account")
)

// taxonomy lists the sentinels a remote failure may already carry.
var taxonomy = []error{
	subscription.ErrAuthExpired,
	subscription.ErrNotFound,
	subscription.ErrIdentityMismatch,
	subscription.ErrCanceled,
	subscription.ErrNotSignedIn,
	subscription.ErrNoOffer,
	subscription.ErrInvalidPlan,
	subscription.ErrTransport,
}

// classify makes sure err belongs to the taxonomy. Anything unclassified
// is treated as a transport failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, s := range taxonomy {
		if errors.Is(err, s) {
			return err
		}
	}
	return errors.Join(subscription.ErrTransport, err)
}

// reason is the failure text published on the purchase stream. It never
// carries raw transport details.
func reason(err error) string {
	for _, s := range taxonomy {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return subscription.ErrTransport.Error()
}

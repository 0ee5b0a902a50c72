package subscription

import "errors"

// Failure taxonomy shared by every storekit component. Remote and storage
// errors are joined with one of these so callers can branch with errors.Is.
var (
	// ErrTransport covers network, HTTP and timeout failures. Always retryable
	// and never a reason to touch local state.
	ErrTransport = errors.New("subscription backend unavailable")

	// ErrAuthExpired is the backend's distinguished "expired_token" answer.
	ErrAuthExpired = errors.New("access token expired")

	// ErrNotFound means no purchase or no usable subscription exists.
	// A legitimate outcome, not a bug.
	ErrNotFound = errors.New("subscription not found")

	// ErrIdentityMismatch is returned when a store purchase resolves to a
	// different account than the one signed in. It is never resolved
	// automatically: the user has to sign out first.
	ErrIdentityMismatch = errors.New("store purchase belongs to a different account")

	// ErrCanceled means the user abandoned checkout.
	ErrCanceled = errors.New("purchase canceled")

	ErrNotSignedIn        = errors.New("not signed in")
	ErrNoOffer            = errors.New("no offer available for plan")
	ErrPurchaseInProgress = errors.New("purchase already in progress")
	ErrInvalidPlan        = errors.New("invalid plan id")
)

// Package backend contains the HTTP clients for the account/auth backend and
// the subscription status backend.
//
// Every call is bounded by a timeout, tagged with an X-Request-ID and
// classified into the subscription error taxonomy:
//
//	resp, err := auth.ValidateToken(ctx, accessToken)
//	switch {
//	case errors.Is(err, subscription.ErrAuthExpired):
//		// refresh through store recovery
//	case errors.Is(err, subscription.ErrTransport):
//		// keep the cached state, try again later
//	}
//
// Clients may share a CircuitBreaker so a dead backend fails fast instead
// of costing a full timeout per call.
package backend

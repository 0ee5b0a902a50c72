// Package subscription holds the storekit data model shared by the auth
// repository, the remote clients and the orchestrator.
//
// It has no behaviour beyond small predicates: Status parsing and
// classification, entitlement membership tests, picking the latest store
// purchase, and the purchase attempt states exposed to observers.
//
// # Status
//
// The backend reports one of the wire strings "Auto-Renewable",
// "Not Auto-Renewable", "Grace Period", "Inactive", "Expired" or "Waiting".
// ParseStatus maps them to Status values; unknown input maps to StatusUnknown.
//
//	st := subscription.ParseStatus("auto-renewable")
//	st.IsActive() // true
//
// # Errors
//
// errors.go defines the failure taxonomy used by every package of the module
// (ErrTransport, ErrAuthExpired, ErrNotFound, ErrIdentityMismatch,
// ErrCanceled). Components join their own causes with these sentinels:
//
//	if errors.Is(err, subscription.ErrNotFound) {
//		// nothing to restore
//	}
package subscription

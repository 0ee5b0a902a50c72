package subscription

import "strings"

// Status is the backend's view of a subscription.
type Status string

const (
	StatusUnknown          Status = "Unknown"
	StatusAutoRenewable    Status = "Auto-Renewable"
	StatusNotAutoRenewable Status = "Not Auto-Renewable"
	StatusGracePeriod      Status = "Grace Period"
	StatusInactive         Status = "Inactive"
	StatusExpired          Status = "Expired"
	// StatusWaiting means the store accepted the purchase but the backend has
	// not confirmed it yet. The user is already charged.
	StatusWaiting Status = "Waiting"
)

var knownStatuses = []Status{
	StatusAutoRenewable,
	StatusNotAutoRenewable,
	StatusGracePeriod,
	StatusInactive,
	StatusExpired,
	StatusWaiting,
}

// ParseStatus maps a wire value to a Status. Matching ignores case and
// surrounding spaces; anything unrecognized becomes StatusUnknown.
func ParseStatus(raw string) Status {
	raw = strings.TrimSpace(raw)
	for _, s := range knownStatuses {
		if strings.EqualFold(raw, string(s)) {
			return s
		}
	}
	return StatusUnknown
}

func (s Status) String() string {
	if s == "" {
		return string(StatusUnknown)
	}
	return string(s)
}

// IsActive reports whether the subscription currently grants entitlements.
func (s Status) IsActive() bool {
	switch s {
	case StatusAutoRenewable, StatusNotAutoRenewable, StatusGracePeriod:
		return true
	}
	return false
}

// IsExpired reports whether the subscription ended.
func (s Status) IsExpired() bool {
	return s == StatusExpired || s == StatusInactive
}

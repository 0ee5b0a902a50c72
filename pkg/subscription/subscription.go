package subscription

import (
	"slices"
	"time"
)

// Platform is the store the subscription was bought in.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformStripe  Platform = "stripe"
	PlatformPaddle  Platform = "paddle"
	PlatformUnknown Platform = "unknown"
)

// Product identifiers used in entitlements.
const (
	ProductNetP = "NetP"
	ProductITR  = "Identity Theft Restoration"
	ProductPIR  = "Personal Information Removal"
)

// Base plan ids of the basic subscription product.
const (
	BasicSubscription = "basic_subscription"
	MonthlyPlan       = "monthly-renews"
	YearlyPlan        = "yearly-renews"
)

// IsMonthlyPlan reports whether planID renews every month.
func IsMonthlyPlan(planID string) bool {
	return planID == MonthlyPlan
}

// Entitlement is a capability unlocked by an active subscription.
// Consumers only test membership.
type Entitlement struct {
	Product string `json:"product"`
	Name    string `json:"name"`
}

// Account is the backend identity linked to this device.
type Account struct {
	ExternalID string
	Email      string // optional
}

// Subscription is the cached copy of the backend subscription record.
type Subscription struct {
	ProductID         string
	Platform          Platform
	Status            Status
	StartedAt         time.Time
	ExpiresOrRenewsAt time.Time
	Entitlements      []Entitlement
}

// IsActive returns true if the subscription grants entitlements right now.
func (s *Subscription) IsActive() bool {
	return s != nil && s.Status.IsActive()
}

// IsExpired returns true if the subscription ended.
func (s *Subscription) IsExpired() bool {
	return s != nil && s.Status.IsExpired()
}

// IsUsable reports whether the subscription can back a signed-in, entitled
// session: it must not be expired and must carry at least one entitlement.
func (s *Subscription) IsUsable() bool {
	if s == nil || s.Status == StatusExpired {
		return false
	}
	return len(s.Entitlements) > 0
}

// HasEntitlement tests membership of product in the entitlement list.
func (s *Subscription) HasEntitlement(product string) bool {
	if s == nil {
		return false
	}
	return slices.ContainsFunc(s.Entitlements, func(e Entitlement) bool {
		return e.Product == product
	})
}

// Clone returns a deep copy so cached values never alias caller slices.
func (s *Subscription) Clone() *Subscription {
	if s == nil {
		return nil
	}
	c := *s
	c.Entitlements = slices.Clone(s.Entitlements)
	return &c
}

// PurchaseRecord is one entry of the device purchase ledger. It is re-read
// from the billing provider on demand and never stored by the engine.
type PurchaseRecord struct {
	Token       string
	ProductID   string
	PackageName string
	PurchasedAt time.Time
}

// LatestPurchase returns the most recent record by PurchasedAt.
// Records without a token are ignored.
func LatestPurchase(records []PurchaseRecord) (PurchaseRecord, bool) {
	var (
		latest PurchaseRecord
		found  bool
	)
	for _, r := range records {
		if r.Token == "" {
			continue
		}
		if !found || r.PurchasedAt.After(latest.PurchasedAt) {
			latest = r
			found = true
		}
	}
	return latest, found
}

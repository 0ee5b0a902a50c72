package authstore

import (
	"context"

	"github.com/dmitrymomot/storekit/pkg/subscription"
)

// AccountState is the "account" group: credentials and identity.
type AccountState struct {
	AccessToken string
	AuthToken   string
	ExternalID  string
	Email       string
}

// IsZero reports whether no field is set.
func (a AccountState) IsZero() bool {
	return a == AccountState{}
}

// Snapshot is the full persisted state. Subscription is nil when no
// subscription has been cached.
type Snapshot struct {
	Account      AccountState
	Subscription *subscription.Subscription
}

// Update describes a write touching one or both groups. A group is left
// untouched unless its value is set or its Clear flag is true; Clear wins
// over a value for the same group.
type Update struct {
	Account           *AccountState
	ClearAccount      bool
	Subscription      *subscription.Subscription
	ClearSubscription bool
}

func (u Update) touchesAccount() bool      { return u.Account != nil || u.ClearAccount }
func (u Update) touchesSubscription() bool { return u.Subscription != nil || u.ClearSubscription }

// Storage persists both groups. Apply must write every touched group as one
// atomic unit: either all of it is visible afterwards or none of it.
type Storage interface {
	Load(ctx context.Context) (Snapshot, error)
	Apply(ctx context.Context, u Update) error
	Close() error
}

package authstore

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/dmitrymomot/storekit/pkg/broadcast"
	"github.com/dmitrymomot/storekit/pkg/logger"
	"github.com/dmitrymomot/storekit/pkg/subscription"
)

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.log = l
		}
	}
}

// Repository is the single-writer, multi-reader session store. It mirrors the
// persisted groups in memory; writes hit Storage first and are swapped into
// memory only after they succeed, so readers see either the old or the new
// group, never a mix.
type Repository struct {
	storage Storage
	log     *slog.Logger

	writeMu sync.Mutex // serializes writers across the storage round trip
	mu      sync.RWMutex
	account AccountState
	sub     *subscription.Subscription
	closed  bool

	signedIn     *broadcast.Value[bool]
	status       *broadcast.Value[subscription.Status]
	entitlements *broadcast.Value[[]subscription.Entitlement]
}

// Open loads the persisted state from storage. It panics if storage is nil.
func Open(ctx context.Context, storage Storage, opts ...Option) (*Repository, error) {
	if storage == nil {
		panic("authstore: storage is required")
	}

	r := &Repository{
		storage: storage,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	snap, err := storage.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}
	r.account = snap.Account
	r.sub = snap.Subscription

	r.signedIn = broadcast.NewValue(r.isSignedIn(), broadcast.WithEqual(func(a, b bool) bool { return a == b }))
	r.status = broadcast.NewValue(r.statusLocked(), broadcast.WithEqual(func(a, b subscription.Status) bool { return a == b }))
	r.entitlements = broadcast.NewValue(r.entitlementsLocked(), broadcast.WithEqual(func(a, b []subscription.Entitlement) bool {
		return slices.Equal(a, b)
	}))

	return r, nil
}

func (r *Repository) AccessToken() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.account.AccessToken
}

func (r *Repository) AuthToken() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.account.AuthToken
}

func (r *Repository) ExternalID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.account.ExternalID
}

func (r *Repository) Email() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.account.Email
}

// Account returns a consistent copy of the whole account group.
func (r *Repository) Account() AccountState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.account
}

// IsSignedIn reports whether an access token is stored.
func (r *Repository) IsSignedIn() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isSignedIn()
}

// Subscription returns a copy of the cached subscription, or nil.
func (r *Repository) Subscription() *subscription.Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sub.Clone()
}

func (r *Repository) Entitlements() []subscription.Entitlement {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entitlementsLocked()
}

// Status returns the cached status, StatusUnknown when nothing is cached.
func (r *Repository) Status() subscription.Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.statusLocked()
}

// SaveAccount replaces the account group.
func (r *Repository) SaveAccount(ctx context.Context, a AccountState) error {
	return r.apply(ctx, func(AccountState, *subscription.Subscription) Update {
		return Update{Account: &a}
	})
}

// SaveSubscription replaces the subscription group. A nil subscription
// clears it.
func (r *Repository) SaveSubscription(ctx context.Context, s *subscription.Subscription) error {
	return r.apply(ctx, func(AccountState, *subscription.Subscription) Update {
		if s == nil {
			return Update{ClearSubscription: true}
		}
		return Update{Subscription: s.Clone()}
	})
}

// SaveSession replaces both groups in one atomic write.
func (r *Repository) SaveSession(ctx context.Context, a AccountState, s *subscription.Subscription) error {
	return r.apply(ctx, func(AccountState, *subscription.Subscription) Update {
		u := Update{Account: &a}
		if s == nil {
			u.ClearSubscription = true
		} else {
			u.Subscription = s.Clone()
		}
		return u
	})
}

// SaveSessionIf replaces both groups like SaveSession, but only when check
// accepts the account on file. check runs under the write lock, so no other
// write can land between the check and the save. Its error is returned as is.
func (r *Repository) SaveSessionIf(ctx context.Context, a AccountState, s *subscription.Subscription, check func(current AccountState) error) error {
	return r.applyIf(ctx, func(cur AccountState, _ *subscription.Subscription) (Update, error) {
		if err := check(cur); err != nil {
			return Update{}, err
		}
		u := Update{Account: &a}
		if s == nil {
			u.ClearSubscription = true
		} else {
			u.Subscription = s.Clone()
		}
		return u, nil
	})
}

// RefreshSubscription stores a subscription fetched from the backend. A
// cached StatusWaiting survives a fetched record that is not active: the
// purchase behind it is charged but unconfirmed. It returns what was stored.
func (r *Repository) RefreshSubscription(ctx context.Context, s *subscription.Subscription) (*subscription.Subscription, error) {
	var stored *subscription.Subscription
	err := r.apply(ctx, func(_ AccountState, cur *subscription.Subscription) Update {
		stored = s.Clone()
		if stored == nil {
			stored = &subscription.Subscription{}
		}
		if cur != nil && cur.Status == subscription.StatusWaiting && !stored.IsActive() {
			stored.Status = subscription.StatusWaiting
		}
		return Update{Subscription: stored.Clone()}
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// SetStatus updates the cached status, creating an otherwise empty
// subscription record when none is cached.
func (r *Repository) SetStatus(ctx context.Context, status subscription.Status) error {
	return r.apply(ctx, func(_ AccountState, cur *subscription.Subscription) Update {
		next := cur.Clone()
		if next == nil {
			next = &subscription.Subscription{}
		}
		next.Status = status
		return Update{Subscription: next}
	})
}

// SetEmail updates the email of the account group.
func (r *Repository) SetEmail(ctx context.Context, email string) error {
	return r.apply(ctx, func(cur AccountState, _ *subscription.Subscription) Update {
		cur.Email = email
		return Update{Account: &cur}
	})
}

// SetAuthToken stores a freshly issued auth token.
func (r *Repository) SetAuthToken(ctx context.Context, authToken string) error {
	return r.apply(ctx, func(cur AccountState, _ *subscription.Subscription) Update {
		cur.AuthToken = authToken
		return Update{Account: &cur}
	})
}

func (r *Repository) ClearAccount(ctx context.Context) error {
	return r.apply(ctx, func(AccountState, *subscription.Subscription) Update {
		return Update{ClearAccount: true}
	})
}

func (r *Repository) ClearSubscription(ctx context.Context) error {
	return r.apply(ctx, func(AccountState, *subscription.Subscription) Update {
		return Update{ClearSubscription: true}
	})
}

// Clear removes both groups in one atomic write.
func (r *Repository) Clear(ctx context.Context) error {
	return r.apply(ctx, func(AccountState, *subscription.Subscription) Update {
		return Update{ClearAccount: true, ClearSubscription: true}
	})
}

// StatusChanges streams the subscription status. The current value is
// delivered first.
func (r *Repository) StatusChanges(ctx context.Context) broadcast.Subscriber[subscription.Status] {
	return r.status.Subscribe(ctx)
}

// SignedInChanges streams the signed-in flag. The current value is delivered
// first.
func (r *Repository) SignedInChanges(ctx context.Context) broadcast.Subscriber[bool] {
	return r.signedIn.Subscribe(ctx)
}

// EntitlementChanges streams the entitlement list. The current value is
// delivered first.
func (r *Repository) EntitlementChanges(ctx context.Context) broadcast.Subscriber[[]subscription.Entitlement] {
	return r.entitlements.Subscribe(ctx)
}

// Close ends every stream and closes the storage backend.
func (r *Repository) Close() error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	_ = r.signedIn.Close()
	_ = r.status.Close()
	_ = r.entitlements.Close()
	return r.storage.Close()
}

// apply builds an update from the current state, persists it and then
// publishes it. build runs with writeMu held, so read-modify-write updates
// cannot interleave.
func (r *Repository) apply(ctx context.Context, build func(AccountState, *subscription.Subscription) Update) error {
	return r.applyIf(ctx, func(a AccountState, s *subscription.Subscription) (Update, error) {
		return build(a, s), nil
	})
}

// applyIf is apply with a build func that may refuse the write.
func (r *Repository) applyIf(ctx context.Context, build func(AccountState, *subscription.Subscription) (Update, error)) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.RLock()
	closed := r.closed
	account, sub := r.account, r.sub.Clone()
	r.mu.RUnlock()
	if closed {
		return ErrRepositoryClosed
	}

	u, err := build(account, sub)
	if err != nil {
		return err
	}
	if err := r.storage.Apply(ctx, u); err != nil {
		r.log.ErrorContext(ctx, "auth storage write failed", logger.Component("authstore"), logger.Error(err))
		return errors.Join(ErrStorage, err)
	}

	r.mu.Lock()
	if u.touchesAccount() {
		if u.ClearAccount {
			r.account = AccountState{}
		} else {
			r.account = *u.Account
		}
	}
	if u.touchesSubscription() {
		if u.ClearSubscription {
			r.sub = nil
		} else {
			r.sub = u.Subscription.Clone()
		}
	}
	signedIn, status, ents := r.isSignedIn(), r.statusLocked(), r.entitlementsLocked()
	r.mu.Unlock()

	r.signedIn.Store(signedIn)
	r.status.Store(status)
	r.entitlements.Store(ents)
	return nil
}

func (r *Repository) isSignedIn() bool {
	return r.account.AccessToken != ""
}

func (r *Repository) statusLocked() subscription.Status {
	if r.sub == nil || r.sub.Status == "" {
		return subscription.StatusUnknown
	}
	return r.sub.Status
}

func (r *Repository) entitlementsLocked() []subscription.Entitlement {
	if r.sub == nil {
		return nil
	}
	return slices.Clone(r.sub.Entitlements)
}

package authstore

import (
	"context"
	"sync"

	"github.com/dmitrymomot/storekit/pkg/subscription"
)

// MemoryStorage keeps state in process memory. Suitable for tests and hosts
// that do not need the session to survive a restart.
type MemoryStorage struct {
	mu      sync.Mutex
	account AccountState
	sub     *subscription.Subscription
	failErr error
	writes  int
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Load(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failErr != nil {
		return Snapshot{}, m.failErr
	}
	return Snapshot{Account: m.account, Subscription: m.sub.Clone()}, nil
}

func (m *MemoryStorage) Apply(ctx context.Context, u Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failErr != nil {
		return m.failErr
	}

	switch {
	case u.ClearAccount:
		m.account = AccountState{}
	case u.Account != nil:
		m.account = *u.Account
	}
	switch {
	case u.ClearSubscription:
		m.sub = nil
	case u.Subscription != nil:
		m.sub = u.Subscription.Clone()
	}
	m.writes++
	return nil
}

// FailWith makes every later call return err until called with nil.
func (m *MemoryStorage) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

// Writes returns the number of successful Apply calls.
func (m *MemoryStorage) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *MemoryStorage) Close() error { return nil }

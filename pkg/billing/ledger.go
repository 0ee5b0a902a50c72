package billing

import (
	"slices"
	"sync"

	"github.com/dmitrymomot/storekit/pkg/subscription"
)

// ledger is the provider-side purchase history, keyed by token.
type ledger struct {
	mu      sync.RWMutex
	records []subscription.PurchaseRecord
}

// add inserts r, replacing an existing record with the same token.
// It reports whether the token was new.
func (l *ledger) add(r subscription.PurchaseRecord) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i := slices.IndexFunc(l.records, func(x subscription.PurchaseRecord) bool { return x.Token == r.Token }); i >= 0 {
		l.records[i] = r
		return false
	}
	l.records = append(l.records, r)
	return true
}

func (l *ledger) remove(token string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = slices.DeleteFunc(l.records, func(x subscription.PurchaseRecord) bool { return x.Token == token })
}

func (l *ledger) list() []subscription.PurchaseRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.records)
}

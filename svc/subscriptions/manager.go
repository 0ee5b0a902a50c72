package subscriptions

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/storekit/pkg/authstore"
	"github.com/dmitrymomot/storekit/pkg/backend"
	"github.com/dmitrymomot/storekit/pkg/billing"
	"github.com/dmitrymomot/storekit/pkg/broadcast"
	"github.com/dmitrymomot/storekit/pkg/cache"
	"github.com/dmitrymomot/storekit/pkg/logger"
	"github.com/dmitrymomot/storekit/pkg/subscription"
)

// AuthAPI is the account and authentication backend.
type AuthAPI interface {
	CreateAccount(ctx context.Context, bearer string) (backend.CreateAccountResponse, error)
	StoreLogin(ctx context.Context, req backend.StoreLoginRequest) (backend.StoreLoginResponse, error)
	AccessToken(ctx context.Context, authToken string) (backend.AccessTokenResponse, error)
	ValidateToken(ctx context.Context, accessToken string) (backend.ValidateTokenResponse, error)
	DeleteAccount(ctx context.Context, accessToken string) error
}

// SubscriptionsAPI is the subscription status backend.
type SubscriptionsAPI interface {
	Subscription(ctx context.Context, accessToken string) (backend.SubscriptionResponse, error)
	Confirm(ctx context.Context, accessToken string, req backend.ConfirmRequest) (backend.ConfirmResponse, error)
	Portal(ctx context.Context, accessToken string) (backend.PortalResponse, error)
}

// Manager orchestrates purchases, recovery and token refresh on top of the
// auth repository, the billing source and the two backends. It is the only
// component that applies consistency rules to the repository.
type Manager struct {
	cfg    Config
	repo   *authstore.Repository
	source billing.Source
	auth   AuthAPI
	subs   SubscriptionsAPI
	log    *slog.Logger
	now    func() time.Time
	reg    prometheus.Registerer

	metrics   *metrics
	flow      *purchaseFlow
	refresh   singleflight.Group
	confirms  singleflight.Group
	confirmed *cache.LRUCache[string, time.Time]

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithMetrics registers the manager's Prometheus collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(m *Manager) {
		m.reg = reg
	}
}

// WithClock overrides time.Now, used for access token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// New creates a Manager. It panics on nil dependencies.
func New(cfg Config, repo *authstore.Repository, source billing.Source, auth AuthAPI, subs SubscriptionsAPI, opts ...Option) *Manager {
	if repo == nil {
		panic("subscriptions: auth repository is required")
	}
	if source == nil {
		panic("subscriptions: billing source is required")
	}
	if auth == nil || subs == nil {
		panic("subscriptions: backend clients are required")
	}

	m := &Manager{
		cfg:    cfg,
		repo:   repo,
		source: source,
		auth:   auth,
		subs:   subs,
		log:    slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.reg != nil {
		m.metrics = newMetrics(m.reg)
	}

	size := cfg.ConfirmedTokensSize
	if size <= 0 {
		size = 128
	}
	m.confirmed = cache.NewLRUCache[string, time.Time](size,
		cache.WithTTL[string, time.Time](cfg.ConfirmedTokensTTL),
		cache.WithClock[string, time.Time](m.now),
	)
	m.flow = newPurchaseFlow(m.log, m.metrics)
	return m
}

// Start subscribes to the billing event stream and catches up on a purchase
// left Waiting by a previous run. The event loop runs until ctx is done or
// Close is called.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	switch {
	case m.closed:
		m.mu.Unlock()
		return ErrManagerClosed
	case m.started:
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.started = true
	events := m.source.Subscribe(loopCtx)
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(loopCtx, events)

	if m.repo.Status() == subscription.StatusWaiting {
		if err := m.ConfirmPending(ctx); err != nil {
			m.log.WarnContext(ctx, "pending purchase still unconfirmed",
				logger.Component("subscriptions"),
				logger.Error(err),
			)
		}
	}
	return nil
}

func (m *Manager) run(ctx context.Context, events broadcast.Subscriber[billing.Event]) {
	defer m.wg.Done()
	defer func() { _ = events.Close() }()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-events.Receive(ctx):
			if !ok {
				return
			}
			m.handleEvent(ctx, msg.Data)
		}
	}
}

func (m *Manager) handleEvent(ctx context.Context, e billing.Event) {
	switch e.Kind {
	case billing.EventPurchased:
		if _, err := m.confirm(ctx, e.Token, e.PackageName); err != nil {
			m.log.WarnContext(ctx, "purchase confirmation failed",
				logger.Component("subscriptions"),
				logger.PurchaseToken(e.Token),
				logger.Error(err),
			)
		}
	case billing.EventCanceled:
		if m.flow.settle(ctx, evCanceled) {
			m.log.InfoContext(ctx, "purchase canceled", logger.Component("subscriptions"))
		}
	default:
		m.log.DebugContext(ctx, "ignoring billing event",
			logger.Component("subscriptions"),
			logger.Event(string(e.Kind)),
		)
	}
}

// Close stops the event loop and ends every stream handed out by
// CurrentPurchaseState. The repository stays open; its owner closes it.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
	return m.flow.close()
}

// IsSignedIn streams the signed-in flag, replaying the current value.
func (m *Manager) IsSignedIn(ctx context.Context) broadcast.Subscriber[bool] {
	return m.repo.SignedInChanges(ctx)
}

// SubscriptionStatus streams the cached subscription status.
func (m *Manager) SubscriptionStatus(ctx context.Context) broadcast.Subscriber[subscription.Status] {
	return m.repo.StatusChanges(ctx)
}

// Entitlements streams the cached entitlement list.
func (m *Manager) Entitlements(ctx context.Context) broadcast.Subscriber[[]subscription.Entitlement] {
	return m.repo.EntitlementChanges(ctx)
}

// CurrentPurchaseState streams the purchase attempt state. Intermediate
// states may be skipped by a slow reader; the latest one is never lost.
func (m *Manager) CurrentPurchaseState(ctx context.Context) broadcast.Subscriber[subscription.CurrentPurchase] {
	return m.flow.subscribe(ctx)
}

// CurrentPurchase returns the purchase attempt state without subscribing.
func (m *Manager) CurrentPurchase() subscription.CurrentPurchase {
	return m.flow.state.Load()
}

// ResetPurchase returns a finished purchase attempt to Inactive once the host
// has shown its outcome. It reports false while an attempt is running.
func (m *Manager) ResetPurchase(ctx context.Context) bool {
	return m.flow.reset(ctx)
}

// GetAccessToken returns the persisted access token. It never calls the
// backend.
func (m *Manager) GetAccessToken(ctx context.Context) (string, error) {
	if tok := m.repo.AccessToken(); tok != "" {
		return tok, nil
	}
	return "", subscription.ErrNotSignedIn
}

// GetSubscription returns the cached subscription.
func (m *Manager) GetSubscription(ctx context.Context) (*subscription.Subscription, error) {
	if sub := m.repo.Subscription(); sub != nil {
		return sub, nil
	}
	return nil, subscription.ErrNotFound
}

func (m *Manager) GetEmail(ctx context.Context) string {
	return m.repo.Email()
}

// Offers returns the billing provider's catalog.
func (m *Manager) Offers(ctx context.Context) ([]billing.Offer, error) {
	return m.source.Products(ctx)
}

// GetPortalURL returns the customer portal URL for the signed-in account.
func (m *Manager) GetPortalURL(ctx context.Context) (string, error) {
	tok := m.repo.AccessToken()
	if tok == "" {
		return "", subscription.ErrNotSignedIn
	}
	resp, err := m.subs.Portal(ctx, tok)
	if err != nil {
		return "", classify(err)
	}
	if resp.CustomerPortalURL == "" {
		return "", subscription.ErrNotFound
	}
	return resp.CustomerPortalURL, nil
}

// SignOut forgets the account and the cached subscription. It never calls
// the backend.
func (m *Manager) SignOut(ctx context.Context) error {
	if err := m.repo.Clear(ctx); err != nil {
		return err
	}
	m.confirmed.Clear()
	m.flow.reset(ctx)
	m.log.InfoContext(ctx, "signed out", logger.Component("subscriptions"))
	return nil
}

// DeleteAccount deletes the backend account. Local state is left alone;
// call SignOut afterwards, which is safe even when the delete failed.
func (m *Manager) DeleteAccount(ctx context.Context) error {
	tok := m.repo.AccessToken()
	if tok == "" {
		return subscription.ErrNotSignedIn
	}
	if err := m.auth.DeleteAccount(ctx, tok); err != nil {
		return classify(err)
	}
	m.log.InfoContext(ctx, "account deleted",
		logger.Component("subscriptions"),
		logger.ExternalID(m.repo.ExternalID()),
	)
	return nil
}

// FetchAndStoreAllData refreshes the cached subscription and entitlements.
// A cached Waiting status is kept until the backend reports the
// subscription active, so ConfirmPending keeps retrying. It returns nil when not signed in or when the backend cannot be reached;
// in both cases the cache is left untouched.
func (m *Manager) FetchAndStoreAllData(ctx context.Context) *subscription.Subscription {
	tok := m.repo.AccessToken()
	if tok == "" {
		return nil
	}

	sub, email, err := m.fetchSubscription(ctx, tok)
	if err != nil {
		m.log.WarnContext(ctx, "subscription refresh failed",
			logger.Component("subscriptions"),
			logger.Error(err),
		)
		return nil
	}

	stored, err := m.repo.RefreshSubscription(ctx, sub)
	if err != nil {
		m.log.ErrorContext(ctx, "failed to store subscription", logger.Component("subscriptions"), logger.Error(err))
		return nil
	}
	if email != "" && email != m.repo.Email() {
		if err := m.repo.SetEmail(ctx, email); err != nil {
			m.log.ErrorContext(ctx, "failed to store email", logger.Component("subscriptions"), logger.Error(err))
		}
	}
	return stored
}

// fetchSubscription reads the subscription record and attaches the
// entitlements of the account behind accessToken.
func (m *Manager) fetchSubscription(ctx context.Context, accessToken string) (*subscription.Subscription, string, error) {
	account, err := m.auth.ValidateToken(ctx, accessToken)
	if err != nil {
		return nil, "", classify(err)
	}
	resp, err := m.subs.Subscription(ctx, accessToken)
	if err != nil {
		return nil, "", classify(err)
	}
	return resp.ToSubscription(account.Account.Entitlements), account.Account.Email, nil
}

func (m *Manager) packageName(fromRecord string) string {
	if fromRecord != "" {
		return fromRecord
	}
	return m.cfg.PackageName
}

package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"

	"github.com/dmitrymomot/storekit/pkg/broadcast"
	"github.com/dmitrymomot/storekit/pkg/logger"
	"github.com/dmitrymomot/storekit/pkg/subscription"
)

const maxWebhookBody = 1 << 20

// PaddleConfig holds configuration for the Paddle web checkout.
type PaddleConfig struct {
	APIKey         string `env:"STOREKIT_PADDLE_API_KEY" yaml:"api_key"`
	WebhookSecret  string `env:"STOREKIT_PADDLE_WEBHOOK_SECRET" yaml:"webhook_secret"`
	Environment    string `env:"STOREKIT_PADDLE_ENVIRONMENT" envDefault:"production" yaml:"environment"`
	MonthlyPriceID string `env:"STOREKIT_PADDLE_MONTHLY_PRICE_ID" yaml:"monthly_price_id"`
	YearlyPriceID  string `env:"STOREKIT_PADDLE_YEARLY_PRICE_ID" yaml:"yearly_price_id"`
	// PackageName is reported with every purchase, the way a store reports
	// the app package that made it.
	PackageName string `env:"STOREKIT_PACKAGE_NAME" envDefault:"com.storekit.app" yaml:"package_name"`
	// SuccessURL is where Paddle sends the buyer after checkout.
	SuccessURL string `env:"STOREKIT_PADDLE_SUCCESS_URL" yaml:"success_url"`
}

// Enabled reports whether Paddle credentials are configured.
func (c PaddleConfig) Enabled() bool {
	return c.APIKey != "" && c.WebhookSecret != ""
}

// checkoutFunc creates a Paddle transaction and returns its checkout URL and id.
type checkoutFunc func(ctx context.Context, req *paddle.CreateTransactionRequest) (url, id string, err error)

// PaddleSource is a Source backed by Paddle Billing. Checkouts are Paddle
// transactions carrying the external id in custom data; verified webhooks
// become purchase events and feed the local purchase ledger.
type PaddleSource struct {
	cfg      PaddleConfig
	verifier *paddle.WebhookVerifier
	checkout checkoutFunc
	ledger   ledger
	events   *broadcast.MemoryBroadcaster[Event]
	log      *slog.Logger
}

// PaddleOption configures a PaddleSource.
type PaddleOption func(*PaddleSource)

// WithPaddleLogger sets the logger. Defaults to slog.Default().
func WithPaddleLogger(l *slog.Logger) PaddleOption {
	return func(p *PaddleSource) {
		if l != nil {
			p.log = l
		}
	}
}

// NewPaddleSource creates a Paddle-backed Source.
func NewPaddleSource(cfg PaddleConfig, opts ...PaddleOption) (*PaddleSource, error) {
	if cfg.APIKey == "" {
		return nil, errors.Join(ErrInvalidConfig, errors.New("paddle API key is required"))
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.Join(ErrInvalidConfig, errors.New("paddle webhook secret is required"))
	}

	var (
		client *paddle.SDK
		err    error
	)
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, errors.Join(ErrInvalidConfig, fmt.Errorf("invalid paddle environment: %s", cfg.Environment))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	p := newPaddleSource(cfg, func(ctx context.Context, req *paddle.CreateTransactionRequest) (string, string, error) {
		tx, err := client.TransactionsClient.CreateTransaction(ctx, req)
		if err != nil {
			return "", "", err
		}
		if tx.Checkout == nil || tx.Checkout.URL == nil {
			return "", tx.ID, ErrCheckoutURLMissing
		}
		return *tx.Checkout.URL, tx.ID, nil
	})
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func newPaddleSource(cfg PaddleConfig, checkout checkoutFunc) *PaddleSource {
	return &PaddleSource{
		cfg:      cfg,
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
		checkout: checkout,
		events:   broadcast.NewMemoryBroadcaster[Event](16, broadcast.WithDeliveryTimeout(5*time.Second)),
		log:      slog.Default(),
	}
}

// PurchaseHistory returns the purchases completed through webhooks.
func (p *PaddleSource) PurchaseHistory(ctx context.Context) ([]subscription.PurchaseRecord, error) {
	return p.ledger.list(), nil
}

// Products returns the offers for the configured price ids.
func (p *PaddleSource) Products(ctx context.Context) ([]Offer, error) {
	var offers []Offer
	if p.cfg.MonthlyPriceID != "" {
		offers = append(offers, Offer{
			ProductID: subscription.BasicSubscription,
			PlanID:    subscription.MonthlyPlan,
			PriceRef:  p.cfg.MonthlyPriceID,
		})
	}
	if p.cfg.YearlyPriceID != "" {
		offers = append(offers, Offer{
			ProductID: subscription.BasicSubscription,
			PlanID:    subscription.YearlyPlan,
			PriceRef:  p.cfg.YearlyPriceID,
		})
	}
	return offers, nil
}

func (p *PaddleSource) Subscribe(ctx context.Context) broadcast.Subscriber[Event] {
	return p.events.Subscribe(ctx)
}

// LaunchBillingFlow creates a Paddle transaction for offer and hands the
// checkout URL to handle, which must implement CheckoutOpener.
func (p *PaddleSource) LaunchBillingFlow(ctx context.Context, handle ActivityHandle, offer Offer, externalID string) error {
	opener, ok := handle.(CheckoutOpener)
	if !ok {
		return ErrNoCheckoutOpener
	}
	if offer.PriceRef == "" {
		return errors.Join(ErrUnknownOffer, fmt.Errorf("plan %q has no paddle price", offer.PlanID))
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  offer.PriceRef,
		Quantity: 1,
	})
	req := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"external_id": externalID,
			"product_id":  offer.ProductID,
			"plan_id":     offer.PlanID,
		},
	}
	if p.cfg.SuccessURL != "" {
		req.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(p.cfg.SuccessURL),
		}
	}

	url, txID, err := p.checkout(ctx, req)
	if err != nil {
		return errors.Join(ErrLaunchFailed, err)
	}

	p.log.InfoContext(ctx, "paddle checkout created",
		logger.Component("billing"),
		logger.ExternalID(externalID),
		logger.ProductID(offer.ProductID),
		slog.String("transaction_id", txID),
	)

	if err := opener.OpenCheckout(ctx, url); err != nil {
		return errors.Join(ErrLaunchFailed, err)
	}
	return nil
}

// paddleWebhook is the subset of the Paddle notification envelope we read.
type paddleWebhook struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       struct {
		ID         string         `json:"id"`
		Status     string         `json:"status"`
		CustomData map[string]any `json:"custom_data"`
		Items      []struct {
			PriceID string `json:"price_id"`
			Price   struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"items"`
	} `json:"data"`
}

// ServeHTTP verifies and applies a Paddle webhook. It answers 401 for a bad
// signature, 400 for a malformed body and 200 otherwise, including for
// event types it ignores.
func (p *PaddleSource) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := p.HandleWebhook(r); err != nil {
		switch {
		case errors.Is(err, ErrWebhookSignature):
			http.Error(w, "invalid signature", http.StatusUnauthorized)
		default:
			http.Error(w, "bad request", http.StatusBadRequest)
		}
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HandleWebhook verifies r and turns the notification into purchase events.
func (p *PaddleSource) HandleWebhook(r *http.Request) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		return errors.Join(ErrWebhookPayload, err)
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	valid, err := p.verifier.Verify(r)
	if err != nil || !valid {
		return errors.Join(ErrWebhookSignature, err)
	}

	var evt paddleWebhook
	if err := json.Unmarshal(body, &evt); err != nil {
		return errors.Join(ErrWebhookPayload, err)
	}
	return p.apply(r.Context(), evt)
}

func (p *PaddleSource) apply(ctx context.Context, evt paddleWebhook) error {
	log := p.log.With(
		logger.Component("billing"),
		logger.Event(evt.EventType),
		slog.String("transaction_id", evt.Data.ID),
	)

	switch evt.EventType {
	case "transaction.completed", "transaction.paid":
		if evt.Data.ID == "" {
			return errors.Join(ErrWebhookPayload, errors.New("transaction id is missing"))
		}
		purchasedAt := evt.OccurredAt
		if purchasedAt.IsZero() {
			purchasedAt = time.Now()
		}
		record := subscription.PurchaseRecord{
			Token:       evt.Data.ID,
			ProductID:   evt.productID(),
			PackageName: p.cfg.PackageName,
			PurchasedAt: purchasedAt,
		}
		if !p.ledger.add(record) {
			log.DebugContext(ctx, "duplicate paddle transaction")
		}
		log.InfoContext(ctx, "paddle purchase completed", logger.ExternalID(evt.externalID()))
		return p.events.Broadcast(ctx, broadcast.Message[Event]{Data: Purchased(record.Token, record.PackageName)})

	case "transaction.canceled", "transaction.payment_failed":
		p.ledger.remove(evt.Data.ID)
		log.InfoContext(ctx, "paddle checkout canceled")
		return p.events.Broadcast(ctx, broadcast.Message[Event]{Data: Canceled()})

	default:
		log.DebugContext(ctx, "ignoring paddle event")
		return nil
	}
}

func (e paddleWebhook) externalID() string {
	id, _ := e.Data.CustomData["external_id"].(string)
	return id
}

func (e paddleWebhook) productID() string {
	if plan, ok := e.Data.CustomData["plan_id"].(string); ok && plan != "" {
		return plan
	}
	if len(e.Data.Items) > 0 {
		if e.Data.Items[0].PriceID != "" {
			return e.Data.Items[0].PriceID
		}
		return e.Data.Items[0].Price.ID
	}
	return ""
}

// Close ends every event subscription.
func (p *PaddleSource) Close() error {
	return p.events.Close()
}

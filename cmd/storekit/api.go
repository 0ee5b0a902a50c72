package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/storekit/pkg/billing"
	"github.com/dmitrymomot/storekit/pkg/clientip"
	"github.com/dmitrymomot/storekit/pkg/httpserver"
	"github.com/dmitrymomot/storekit/pkg/logger"
	"github.com/dmitrymomot/storekit/pkg/ratelimiter"
	"github.com/dmitrymomot/storekit/pkg/requestid"
	"github.com/dmitrymomot/storekit/pkg/subscription"
)

type statusView struct {
	SignedIn     bool                         `json:"signed_in"`
	ExternalID   string                       `json:"external_id,omitempty"`
	Email        string                       `json:"email,omitempty"`
	Status       subscription.Status          `json:"status"`
	Entitlements []subscription.Entitlement   `json:"entitlements"`
	Subscription *subscription.Subscription   `json:"subscription,omitempty"`
	Purchase     subscription.CurrentPurchase `json:"purchase"`
}

func (a *app) status() statusView {
	ents := a.repo.Entitlements()
	if ents == nil {
		ents = []subscription.Entitlement{}
	}
	return statusView{
		SignedIn:     a.repo.IsSignedIn(),
		ExternalID:   a.repo.ExternalID(),
		Email:        a.repo.Email(),
		Status:       a.repo.Status(),
		Entitlements: ents,
		Subscription: a.repo.Subscription(),
		Purchase:     a.manager.CurrentPurchase(),
	}
}

func (a *app) router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware, clientip.Default().Middleware)

	r.Get("/healthz", httpserver.HealthCheckHandler(a.log, time.Second))
	r.Get("/readyz", httpserver.HealthCheckHandler(a.log, 2*time.Second, a.checks...))
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", a.handleStatus)
		r.Get("/offers", a.handleOffers)
		r.Get("/purchase", a.handleCurrentPurchase)

		// Both run store logins against the backend.
		r.Group(func(r chi.Router) {
			if a.limiter != nil {
				r.Use(ratelimiter.Middleware(a.limiter, clientip.Key, a.log))
			}
			r.Post("/purchase", a.handlePurchase)
			r.Post("/restore", a.handleRestore)
		})
		if a.paddle != nil {
			r.Post("/webhooks/paddle", a.paddle.ServeHTTP)
		}
	})
	return r
}

func (a *app) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "1" {
		a.manager.FetchAndStoreAllData(r.Context())
	}
	writeJSON(w, http.StatusOK, a.status())
}

func (a *app) handleOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := a.manager.Offers(r.Context())
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	if offers == nil {
		offers = []billing.Offer{}
	}
	writeJSON(w, http.StatusOK, offers)
}

func (a *app) handleCurrentPurchase(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.manager.CurrentPurchase())
}

type purchaseRequest struct {
	PlanID string `json:"plan_id"`
}

type purchaseResponse struct {
	subscription.CurrentPurchase
	CheckoutURL string `json:"checkout_url,omitempty"`
}

// handlePurchase runs the pre-flow and launches the checkout. The checkout
// URL is handed back to the caller instead of being opened here.
func (a *app) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var checkoutURL string
	opener := billing.CheckoutOpenerFunc(func(_ context.Context, url string) error {
		checkoutURL = url
		return nil
	})
	if err := a.manager.Purchase(r.Context(), opener, req.PlanID); err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, purchaseResponse{
		CurrentPurchase: a.manager.CurrentPurchase(),
		CheckoutURL:     checkoutURL,
	})
}

func (a *app) handleRestore(w http.ResponseWriter, r *http.Request) {
	if _, err := a.manager.RecoverSubscriptionFromStore(r.Context()); err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.status())
}

// writeError maps the subscription error taxonomy to HTTP statuses. The
// body only carries the sentinel text.
func (a *app) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, subscription.ErrInvalidPlan), errors.Is(err, subscription.ErrNoOffer):
		status = http.StatusBadRequest
	case errors.Is(err, subscription.ErrNotSignedIn):
		status = http.StatusUnauthorized
	case errors.Is(err, subscription.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, subscription.ErrPurchaseInProgress), errors.Is(err, subscription.ErrIdentityMismatch):
		status = http.StatusConflict
	}
	if status == http.StatusBadGateway {
		a.log.WarnContext(ctx, "request failed", logger.Component("api"), logger.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": publicError(err)})
}

func publicError(err error) string {
	for _, s := range []error{
		subscription.ErrInvalidPlan,
		subscription.ErrNoOffer,
		subscription.ErrNotSignedIn,
		subscription.ErrNotFound,
		subscription.ErrPurchaseInProgress,
		subscription.ErrIdentityMismatch,
		subscription.ErrAuthExpired,
	} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return subscription.ErrTransport.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

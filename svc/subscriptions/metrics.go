package subscriptions

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/storekit/pkg/subscription"
)

// metrics is nil-safe: a Manager without WithMetrics records nothing.
type metrics struct {
	purchases     *prometheus.CounterVec
	recoveries    *prometheus.CounterVec
	confirmations *prometheus.CounterVec
	refreshes     *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storekit",
			Subsystem: "purchase",
			Name:      "transitions_total",
			Help:      "Purchase flow transitions by target state",
		}, []string{"state"}),
		recoveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storekit",
			Subsystem: "recovery",
			Name:      "attempts_total",
			Help:      "Store purchase recoveries by caller and result",
		}, []string{"caller", "result"}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storekit",
			Subsystem: "purchase",
			Name:      "confirmations_total",
			Help:      "Backend purchase confirmations by result",
		}, []string{"result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storekit",
			Subsystem: "auth",
			Name:      "token_refreshes_total",
			Help:      "Auth token refreshes by result",
		}, []string{"result"}),
	}
	reg.MustRegister(m.purchases, m.recoveries, m.confirmations, m.refreshes)
	return m
}

func (m *metrics) purchase(state string) {
	if m != nil {
		m.purchases.WithLabelValues(state).Inc()
	}
}

func (m *metrics) recovery(caller string, err error) {
	if m != nil {
		m.recoveries.WithLabelValues(caller, result(err)).Inc()
	}
}

func (m *metrics) confirmation(res string) {
	if m != nil {
		m.confirmations.WithLabelValues(res).Inc()
	}
}

func (m *metrics) refresh(err error) {
	if m != nil {
		m.refreshes.WithLabelValues(result(err)).Inc()
	}
}

// result maps an outcome to a low-cardinality label.
func result(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, subscription.ErrNotFound):
		return "not_found"
	case errors.Is(err, subscription.ErrAuthExpired):
		return "auth_expired"
	case errors.Is(err, subscription.ErrIdentityMismatch):
		return "identity_mismatch"
	case errors.Is(err, subscription.ErrNotSignedIn):
		return "not_signed_in"
	default:
		return "transport"
	}
}

// Package metrics holds the Prometheus counters of the session client.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reconciliation outcomes.
const (
	OutcomeAuthenticated   = "authenticated"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomePending         = "pending"
	OutcomeRejected        = "rejected"
	OutcomeFailed          = "failed"
	OutcomeSuperseded      = "superseded"
)

// Metrics holds all Prometheus metrics of the client. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Reconciliations *prometheus.CounterVec
	GatewayRequests *prometheus.CounterVec
	TokenLoads      prometheus.Counter
	TokenPurges     prometheus.Counter
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Reconciliations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "communityapp_session_reconciliations_total",
			Help: "Session reconciliation passes by outcome",
		}, []string{"outcome"}),
		GatewayRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "communityapp_gateway_requests_total",
			Help: "Backend requests by method, endpoint and status code (0 for transport failures)",
		}, []string{"method", "endpoint", "code"}),
		TokenLoads: f.NewCounter(prometheus.CounterOpts{
			Name: "communityapp_token_loads_total",
			Help: "Reads of the bearer token from secure storage",
		}),
		TokenPurges: f.NewCounter(prometheus.CounterOpts{
			Name: "communityapp_token_purges_total",
			Help: "Bearer token purges caused by unauthorized responses",
		}),
	}
}

func (m *Metrics) ObserveReconciliation(outcome string) {
	if m == nil {
		return
	}
	m.Reconciliations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRequest(method, endpoint string, code int) {
	if m == nil {
		return
	}
	m.GatewayRequests.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
}

func (m *Metrics) IncTokenLoads() {
	if m == nil {
		return
	}
	m.TokenLoads.Inc()
}

func (m *Metrics) IncTokenPurges() {
	if m == nil {
		return
	}
	m.TokenPurges.Inc()
}

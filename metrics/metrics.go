// Package metrics provides observability for the auth flow and the registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all warden metric collectors. A nil *Metrics is a no-op, so
// services can be wired without observability in tests.
type Metrics struct {
	// Sign-in outcomes by result ("ok", "challenge_not_found", ...)
	LoginOutcome *prometheus.CounterVec

	// Challenges issued
	ChallengesIssued prometheus.Counter

	// Registry writes by outcome and path ("single", "batch")
	RegistryWrites *prometheus.CounterVec

	// Registry read latency
	ReadLatency prometheus.Histogram
}

// New creates a Metrics instance with all collectors registered on the
// default registerer.
func New() *Metrics {
	return &Metrics{
		LoginOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_login_outcomes_total",
			Help: "Total sign-in verification outcomes by result",
		}, []string{"result"}),

		ChallengesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "warden_challenges_issued_total",
			Help: "Total sign-in challenges issued",
		}),

		RegistryWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_registry_writes_total",
			Help: "Total registry write attempts by outcome and path",
		}, []string{"outcome", "path"}),

		ReadLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "warden_registry_read_duration_seconds",
			Help:    "Duration of registry report lookups",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

// IncLogin records a sign-in verification outcome.
func (m *Metrics) IncLogin(result string) {
	if m != nil {
		m.LoginOutcome.WithLabelValues(result).Inc()
	}
}

// IncChallenge records an issued challenge.
func (m *Metrics) IncChallenge() {
	if m != nil {
		m.ChallengesIssued.Inc()
	}
}

// IncRegistryWrite records a registry write attempt.
func (m *Metrics) IncRegistryWrite(outcome, path string) {
	if m != nil {
		m.RegistryWrites.WithLabelValues(outcome, path).Inc()
	}
}

// ObserveRead records the duration of a report lookup.
func (m *Metrics) ObserveRead(d time.Duration) {
	if m != nil {
		m.ReadLatency.Observe(d.Seconds())
	}
}

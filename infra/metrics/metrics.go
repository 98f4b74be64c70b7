// Package metrics declares the client's Prometheus collectors.
//
// All methods are safe on a nil *Metrics so components can run unobserved.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "terminalnotes"

// Metrics groups the counters shared by the cache and the transport.
type Metrics struct {
	mutations *prometheus.CounterVec
	fetches   *prometheus.CounterVec
	refreshes *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Optimistic mutations by name and outcome (committed, rolled_back, discarded).",
		}, []string{"name", "outcome"}),
		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_fetches_total",
			Help:      "Query cache reads by outcome (hit, fetched, error).",
		}, []string{"outcome"}),
		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Access token refresh attempts by outcome (ok, expired, error).",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveMutation(name, outcome string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) ObserveFetch(outcome string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRefresh(outcome string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

// Mutations exposes the mutation counter for tests.
func (m *Metrics) Mutations() *prometheus.CounterVec { return m.mutations }

// Refreshes exposes the refresh counter for tests.
func (m *Metrics) Refreshes() *prometheus.CounterVec { return m.refreshes }

// Handler serves the registry in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

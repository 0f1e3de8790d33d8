package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for storefront_registrations_total.
const (
	OutcomeCreated           = "created"
	OutcomeAlreadyRegistered = "already_registered"
	OutcomeEmailConflict     = "email_conflict"
	OutcomeInvalid           = "invalid"
	OutcomeError             = "error"
)

// Lookup labels for storefront_identity_lookups_total.
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupError = "error"
)

// Metrics groups the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	registrations   *prometheus.CounterVec
	identityLookups *prometheus.CounterVec
}

// New creates the collectors and registers them on reg (default registerer when nil).
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "HTTP requests handled, by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_registrations_total",
			Help: "Profile registration attempts by role and outcome.",
		}, []string{"role", "outcome"}),
		identityLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_identity_lookups_total",
			Help: "Identity provider lookups by cache result.",
		}, []string{"result"}),
	}
	var err error
	if m.httpRequests, err = register(reg, m.httpRequests); err != nil {
		return nil, err
	}
	if m.httpDuration, err = register(reg, m.httpDuration); err != nil {
		return nil, err
	}
	if m.registrations, err = register(reg, m.registrations); err != nil {
		return nil, err
	}
	if m.identityLookups, err = register(reg, m.identityLookups); err != nil {
		return nil, err
	}
	return m, nil
}

// register returns the collector already on reg when one with the same descriptor exists.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Handler serves the exposition format for g.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	method = strings.ToUpper(method)
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) Registration(role, outcome string) {
	if m == nil {
		return
	}
	if role == "" {
		role = "unknown"
	}
	m.registrations.WithLabelValues(role, outcome).Inc()
}

func (m *Metrics) IdentityLookup(result string) {
	if m == nil {
		return
	}
	m.identityLookups.WithLabelValues(result).Inc()
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.Registration("customer", OutcomeCreated)
	m.Registration("customer", OutcomeCreated)
	m.Registration("", OutcomeInvalid)
	m.IdentityLookup(LookupHit)
	m.ObserveHTTP("post", "POST /user/register/customer", 201, 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.registrations.WithLabelValues("customer", OutcomeCreated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.registrations.WithLabelValues("unknown", OutcomeInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.identityLookups.WithLabelValues(LookupHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "POST /user/register/customer", "201")))
}

func TestNewTwiceOnSameRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	require.NoError(t, err)
	second, err := New(reg)
	require.NoError(t, err)

	second.IdentityLookup(LookupError)
	assert.Equal(t, 1.0, testutil.ToFloat64(first.identityLookups.WithLabelValues(LookupError)))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Registration("seller", OutcomeError)
		m.IdentityLookup(LookupMiss)
		m.ObserveHTTP("GET", "/health", 200, time.Millisecond)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	m.IdentityLookup(LookupMiss)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `storefront_identity_lookups_total{result="miss"} 1`)
}

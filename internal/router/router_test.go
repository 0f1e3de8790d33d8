package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/profile"
	profilerepo "github.com/ovaphlow/pitchfork/service-storefront-go/internal/profile/repo"
	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/subscriber"
	subscriberrepo "github.com/ovaphlow/pitchfork/service-storefront-go/internal/subscriber/repo"
	"github.com/ovaphlow/pitchfork/service-storefront-go/pkg/utilities"
)

type rejectAll struct{}

func (rejectAll) Verify(context.Context, string) (string, error) { return "", auth.ErrUnauthorized }

type noIdentities struct{}

func (noIdentities) FetchIdentity(context.Context, string) (*auth.ExternalIdentity, error) {
	return nil, auth.ErrIdentityNotFound
}

func newRouter(t *testing.T) (http.Handler, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	store, err := profilerepo.NewMemoryStore()
	require.NoError(t, err)
	subs, err := subscriberrepo.NewMemoryRepo()
	require.NoError(t, err)
	logger := zap.NewNop().Sugar()

	h := RegisterRoutes(Deps{
		Logger:      logger,
		Gate:        auth.NewGate(rejectAll{}, logger),
		Profiles:    profile.NewHandler(profile.NewService(store, noIdentities{}, nil, m, logger), logger),
		Subscribers: subscriber.NewHandler(subscriber.NewService(subs, logger), logger),
		Metrics:     m,
		Gatherer:    reg,
	})
	return h, reg
}

func TestHealthAndHeaders(t *testing.T) {
	h, _ := newRouter(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	h, _ := newRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc123", rec.Header().Get("X-Request-ID"))
}

func TestProtectedRoutesAndMetrics(t *testing.T) {
	h, reg := newRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/user/register/customer", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/newsletter/subscribe", strings.NewReader(`{"email":"a@b.co"}`)))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	const want = `
# HELP storefront_http_requests_total HTTP requests handled, by route and status.
# TYPE storefront_http_requests_total counter
storefront_http_requests_total{method="GET",route="unmatched",status="404"} 1
storefront_http_requests_total{method="POST",route="POST /newsletter/subscribe",status="201"} 1
storefront_http_requests_total{method="POST",route="POST /user/register/customer",status="401"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(want), "storefront_http_requests_total"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storefront_http_requests_total")
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error","code":"INTERNAL"}`, rec.Body.String())
}

func TestLoggingMiddlewareStoresLogger(t *testing.T) {
	var seen bool
	h := LoggingMiddleware(zap.NewNop().Sugar())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = utilities.LoggerFrom(r.Context(), nil) != nil
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, seen)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

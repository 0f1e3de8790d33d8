package profile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/profile/repo"
)

// subjectVerifier accepts any non-empty credential as the subject id itself.
type subjectVerifier struct{}

func (subjectVerifier) Verify(_ context.Context, cred string) (string, error) {
	if cred == "" {
		return "", auth.ErrUnauthorized
	}
	return cred, nil
}

func newTestServer(t *testing.T) (*fixture, http.Handler) {
	t.Helper()
	f := newFixture(t)
	mux := http.NewServeMux()
	NewHandler(f.svc, zap.NewNop().Sugar()).RegisterRoutes(mux, auth.NewGate(subjectVerifier{}, nil))
	return f, mux
}

func do(t *testing.T, h http.Handler, method, path, subject, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if subject != "" {
		req.Header.Set("Authorization", "Bearer "+subject)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

const scenarioABody = `{"address":{"street":"1 Main","city":"X","state":"Y","postalCode":"12345","country":"Z"}}`

func TestRegisterCustomerEndpoint(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/user/register/customer", "S1", scenarioABody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "/dashboard/customer", body["dashboard"])
	profile := body["profile"].(map[string]any)
	assert.Equal(t, "customer", profile["role"])
	assert.Equal(t, "ann@example.com", profile["email"])
	assert.Equal(t, "S1", profile["subjectId"])

	rec = do(t, h, http.MethodPost, "/user/register/customer", "S1", scenarioABody)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ALREADY_REGISTERED", decodeBody(t, rec)["code"])
}

func TestRegisterSellerEndpointMissingDescription(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/user/register/seller", "S2", `{"storeName":"Sam's"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "INVALID_INPUT", body["code"])
	assert.Equal(t, "storeDescription", body["field"])
}

func TestRegisterEndpointsRequireAuth(t *testing.T) {
	f, h := newTestServer(t)
	for _, path := range []string{"/user/register/customer", "/user/register/seller", "/user/register"} {
		rec := do(t, h, http.MethodPost, path, "", scenarioABody)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Equal(t, "UNAUTHORIZED", decodeBody(t, rec)["code"])
	}
	rec := do(t, h, http.MethodGet, "/user/profile", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, 0, f.ids.calls)
	_, err := f.store.FindBySubject(context.Background(), "S1")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestLegacyRegister(t *testing.T) {
	f, h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/user/register", "S1", `{"role":"customer","clerkId":"S2","shippingAddress":"x"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodPost, "/user/register", "S1", `{"role":"admin","shippingAddress":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "role", decodeBody(t, rec)["field"])

	rec = do(t, h, http.MethodPost, "/user/register", "S1", `{"role":"customer","clerkId":"S1","email":"spoof@evil.example","shippingAddress":"x"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	doc, err := f.store.FindBySubject(context.Background(), "S1")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", doc.Email)
}

func TestGetProfileEndpoint(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/user/profile", "S2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeBody(t, rec)["code"])

	rec = do(t, h, http.MethodPost, "/user/register/seller", "S2", `{"storeName":"Sam's","storeDescription":"Tools"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	for _, path := range []string{"/user/profile", "/user/getUser"} {
		rec = do(t, h, http.MethodGet, path, "S2", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "seller", body["role"])
		assert.Equal(t, "Sam's", body["storeName"])
		assert.Equal(t, "/dashboard/seller", body["dashboard"])
	}
}

func TestEmailErrorsEndpoint(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/user/register/customer", "noemail", `{"shippingAddress":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "EMAIL_UNAVAILABLE", decodeBody(t, rec)["code"])

	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/user/register/customer", "S1", `{"shippingAddress":"x"}`).Code)
	rec = do(t, h, http.MethodPost, "/user/register/customer", "S3", `{"shippingAddress":"y"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "EMAIL_CONFLICT", decodeBody(t, rec)["code"])
}

func TestMalformedBody(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/user/register/customer", "S1", `{"address":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", decodeBody(t, rec)["code"])

	rec = do(t, h, http.MethodPost, "/user/register/customer", "S1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "shippingAddress", decodeBody(t, rec)["field"])

	for _, body := range []string{scenarioABody + "garbage", scenarioABody + " {}", "{}}"} {
		rec = do(t, h, http.MethodPost, "/user/register/customer", "S1", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "INVALID_INPUT", decodeBody(t, rec)["code"], body)
	}

	rec = do(t, h, http.MethodPost, "/user/register/customer", "S1", scenarioABody+"\n")
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestInternalErrorHidesCause(t *testing.T) {
	f, _ := newTestServer(t)
	f.ids.err = assertError("dial tcp 10.0.0.1:443: connection refused")
	mux := http.NewServeMux()
	NewHandler(f.svc, nil).RegisterRoutes(mux, auth.NewGate(subjectVerifier{}, nil))

	rec := do(t, mux, http.MethodPost, "/user/register/customer", "S1", `{"shippingAddress":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error","code":"INTERNAL"}`, rec.Body.String())
}

type assertError string

func (e assertError) Error() string { return string(e) }

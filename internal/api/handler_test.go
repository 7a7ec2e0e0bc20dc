package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michellemazo-scentco/fundraiseathon-klayvio-integration/internal/config"
	"github.com/michellemazo-scentco/fundraiseathon-klayvio-integration/internal/klaviyo"
	"github.com/michellemazo-scentco/fundraiseathon-klayvio-integration/internal/relay"
)

// newTestHandler wires a real relay service against the given upstream.
// Tests that never reach Klaviyo can pass an unroutable URL.
func newTestHandler(upstreamURL, secret string, cfgErr error) *Handler {
	client := klaviyo.NewClient(klaviyo.Config{
		BaseURL: upstreamURL,
		APIKey:  "pk_test_key",
		Timeout: 2 * time.Second,
	})
	svc := relay.NewService(client, config.KlaviyoConfig{
		ListIDs:       []string{"LISTA"},
		SkipJobVerify: true,
	}, config.IntakeConfig{DefaultCountry: "US"})
	return NewHandler(svc, secret, cfgErr)
}

func doRequest(t *testing.T, router http.Handler, req *http.Request) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp),
		"every delivery response must be the JSON envelope, got: %s", rec.Body.String())
	return rec, resp
}

func TestAuthorized(t *testing.T) {
	// No configured secret leaves the endpoint open
	assert.True(t, Authorized("", ""))
	assert.True(t, Authorized("Bearer anything", ""))

	assert.True(t, Authorized("Bearer s3cret", "s3cret"))
	assert.False(t, Authorized("", "s3cret"))
	assert.False(t, Authorized("s3cret", "s3cret"), "bare secret without the bearer scheme")
	assert.False(t, Authorized("Bearer wrong", "s3cret"))
	assert.False(t, Authorized("Bearer s3cret ", "s3cret"))
	assert.False(t, Authorized("bearer s3cret", "s3cret"))
}

func TestWebhookMethodNotAllowed(t *testing.T) {
	router := SetupRoutes(newTestHandler("http://127.0.0.1:1", "", nil))

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/webhook/fundraiseathon", nil)
		rec, resp := doRequest(t, router, req)

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.Equal(t, relay.StatusFailed, resp.Status, method)
		assert.Equal(t, relay.ReasonMethodNotAllowed, resp.Reason, method)
		assert.NotEmpty(t, resp.RequestID, method)
	}
}

func TestWebhookUnauthorized(t *testing.T) {
	router := SetupRoutes(newTestHandler("http://127.0.0.1:1", "s3cret", nil))

	for _, header := range []string{"", "Bearer wrong", "s3cret"} {
		req := httptest.NewRequest(http.MethodPost, "/webhook/fundraiseathon",
			strings.NewReader(`{"email": "jane@example.com"}`))
		req.Header.Set("Content-Type", "application/json")
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec, resp := doRequest(t, router, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header=%q", header)
		assert.Equal(t, relay.ReasonUnauthorized, resp.Reason, "header=%q", header)
	}
}

func TestWebhookAuthorizedPassesGate(t *testing.T) {
	router := SetupRoutes(newTestHandler("http://127.0.0.1:1", "s3cret", nil))

	// Consent is absent, so the delivery stops before any upstream call
	req := httptest.NewRequest(http.MethodPost, "/webhook/fundraiseathon",
		strings.NewReader(`{"email": "jane@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer s3cret")
	rec, resp := doRequest(t, router, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, relay.StatusSkipped, resp.Status)
	assert.Equal(t, relay.ReasonNoConsent, resp.Reason)
}

func TestWebhookMissingConfiguration(t *testing.T) {
	cfgErr := errors.New("klaviyo api_key is required")
	router := SetupRoutes(newTestHandler("http://127.0.0.1:1", "", cfgErr))

	req := httptest.NewRequest(http.MethodPost, "/webhook/fundraiseathon",
		strings.NewReader(`{"email": "jane@example.com", "marketing": "on"}`))
	req.Header.Set("Content-Type", "application/json")
	rec, resp := doRequest(t, router, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, relay.ReasonMissingConfig, resp.Reason)
	assert.Contains(t, resp.Detail, "api_key")
}

func TestWebhookPanicRecovered(t *testing.T) {
	// A nil workflow service blows up past the gates; the recover must
	// still yield the JSON envelope instead of crashing the delivery
	router := SetupRoutes(NewHandler(nil, "", nil))

	req := httptest.NewRequest(http.MethodPost, "/webhook/fundraiseathon",
		strings.NewReader(`{"email": "jane@example.com", "marketing": "on"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "delivery-0815")
	rec, resp := doRequest(t, router, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, relay.StatusFailed, resp.Status)
	assert.Equal(t, relay.ReasonInternalError, resp.Reason)
	assert.Equal(t, "delivery-0815", resp.RequestID)
}

func TestWebhookMissingEmail(t *testing.T) {
	router := SetupRoutes(newTestHandler("http://127.0.0.1:1", "", nil))

	req := httptest.NewRequest(http.MethodPost, "/webhook/fundraiseathon",
		strings.NewReader(`{"name": "Jane Doe", "marketing": "on"}`))
	req.Header.Set("Content-Type", "application/json")
	rec, resp := doRequest(t, router, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, relay.ReasonMissingEmail, resp.Reason)
}

func TestWebhookSubmissionAccepted(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/profiles/":
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"data": {"type": "profile", "id": "01NEW"}}`)
		case r.Method == http.MethodPost && r.URL.Path == "/api/profile-subscription-bulk-create-jobs/":
			w.WriteHeader(http.StatusAccepted)
			fmt.Fprint(w, `{"data": {"type": "profile-subscription-bulk-create-job", "id": "JOB1"}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer upstream.Close()

	router := SetupRoutes(newTestHandler(upstream.URL, "", nil))

	form := "email=jane%40example.com&name=Jane+Doe&marketing=on"
	req := httptest.NewRequest(http.MethodPost, "/webhook/fundraiseathon", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec, resp := doRequest(t, router, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, relay.StatusOK, resp.Status)
	require.NotNil(t, resp.Profile)
	assert.Equal(t, "01NEW", resp.Profile.ID)
	require.Len(t, resp.Lists, 1)
	assert.True(t, resp.Lists[0].Subscribed)
}

func TestWebhookAtRoot(t *testing.T) {
	router := SetupRoutes(newTestHandler("http://127.0.0.1:1", "", nil))

	req := httptest.NewRequest(http.MethodPost, "/",
		strings.NewReader(`{"email": "jane@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	rec, resp := doRequest(t, router, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, relay.StatusSkipped, resp.Status)
}

func TestRequestIDHonored(t *testing.T) {
	router := SetupRoutes(newTestHandler("http://127.0.0.1:1", "", nil))

	req := httptest.NewRequest(http.MethodPost, "/webhook/fundraiseathon",
		strings.NewReader(`{"email": "jane@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "delivery-4711")
	rec, resp := doRequest(t, router, req)

	assert.Equal(t, "delivery-4711", resp.RequestID)
	assert.Equal(t, "delivery-4711", rec.Header().Get("X-Request-ID"))
}

func TestRequestIDGenerated(t *testing.T) {
	router := SetupRoutes(newTestHandler("http://127.0.0.1:1", "", nil))

	req := httptest.NewRequest(http.MethodPost, "/webhook/fundraiseathon",
		strings.NewReader(`{"email": "jane@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	rec, resp := doRequest(t, router, req)

	require.NotEmpty(t, resp.RequestID)
	_, err := uuid.Parse(resp.RequestID)
	assert.NoError(t, err, "generated request IDs are UUIDs")
	assert.Equal(t, resp.RequestID, rec.Header().Get("X-Request-ID"))
}

func TestHealthCheck(t *testing.T) {
	router := SetupRoutes(newTestHandler("http://127.0.0.1:1", "", nil))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestHealthCheckDegraded(t *testing.T) {
	router := SetupRoutes(newTestHandler("http://127.0.0.1:1", "", errors.New("klaviyo api_key is required")))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
}

// Package api exposes the webhook over HTTP. The gate chain and response
// envelope live here, transport neutral, so the standalone server and the
// Lambda adapter behave identically.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/michellemazo-scentco/fundraiseathon-klayvio-integration/internal/pkg/logger"
	"github.com/michellemazo-scentco/fundraiseathon-klayvio-integration/internal/relay"
)

// maxBodyBytes caps inbound payloads. Form submissions are a few hundred
// bytes; anything near the cap is not a fundraiser signup.
const maxBodyBytes = 1 << 20

// Response is the JSON envelope returned for every delivery, success or
// failure. The request ID echoes X-Request-ID when the caller sent one.
type Response struct {
	RequestID string `json:"request_id"`
	relay.Result
}

// Handler serves webhook deliveries against a configured relay service.
// cfgErr carries a startup configuration problem; deliveries are then
// answered with 500 instead of crashing the process, so the form platform
// sees a clear failure rather than a connection reset.
type Handler struct {
	svc    *relay.Service
	secret string
	cfgErr error
}

// NewHandler builds the webhook handler. secret may be empty, which
// disables the shared-secret check.
func NewHandler(svc *relay.Service, secret string, cfgErr error) *Handler {
	return &Handler{svc: svc, secret: secret, cfgErr: cfgErr}
}

// Process runs the gate chain and the relay workflow for one delivery.
// It never panics outward: the JSON envelope is produced on every path,
// because API Gateway turns raw function errors into opaque 502s.
func (h *Handler) Process(ctx context.Context, method, authHeader, contentType string, body []byte, requestID string) (status int, resp Response) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("submission processing panicked",
				"request_id", requestID,
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()))
			result := relay.Failure(relay.ReasonInternalError, "")
			status = result.HTTPStatus()
			resp = Response{RequestID: requestID, Result: *result}
		}
	}()

	result := h.process(ctx, method, authHeader, contentType, body, requestID)
	return result.HTTPStatus(), Response{RequestID: requestID, Result: *result}
}

func (h *Handler) process(ctx context.Context, method, authHeader, contentType string, body []byte, requestID string) *relay.Result {
	if method != http.MethodPost {
		return relay.Failure(relay.ReasonMethodNotAllowed, "only POST deliveries are accepted")
	}
	if !Authorized(authHeader, h.secret) {
		logger.Warn("delivery rejected, bad shared secret", "request_id", requestID)
		return relay.Failure(relay.ReasonUnauthorized, "missing or invalid shared secret")
	}
	if h.cfgErr != nil {
		return relay.Failure(relay.ReasonMissingConfig, h.cfgErr.Error())
	}
	return h.svc.Process(ctx, relay.ParseSubmission(contentType, body), requestID)
}

// Authorized checks the shared secret, presented as a bearer token. An
// empty configured secret leaves the endpoint open.
func Authorized(header, secret string) bool {
	if secret == "" {
		return true
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

// HandleSubmit accepts one form submission delivery.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	requestID := RequestIDFromContext(r.Context())
	body, _ := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))

	status, resp := h.Process(r.Context(), r.Method,
		r.Header.Get("Authorization"), r.Header.Get("Content-Type"),
		body, requestID)
	respondJSON(w, status, resp)
}

// HandleHealth reports liveness. A misconfigured relay still serves, so
// the check degrades instead of failing.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if h.cfgErr != nil {
		status = "degraded"
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

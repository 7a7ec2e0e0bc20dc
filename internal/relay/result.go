package relay

import "net/http"

// Overall request statuses.
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Machine-readable reasons, stable across releases so callers can branch
// on them.
const (
	ReasonMethodNotAllowed = "method_not_allowed"
	ReasonUnauthorized     = "unauthorized"
	ReasonMissingEmail     = "missing_email"
	ReasonMissingConfig    = "missing_server_configuration"
	ReasonNoConsent        = "no_consent"
	ReasonUpstreamError    = "upstream_error"
	ReasonInternalError    = "internal_error"
)

// ProfileOutcome records the resolved profile after the upsert.
type ProfileOutcome struct {
	ID      string `json:"id"`
	Created bool   `json:"created"`
}

// ListOutcome is the per-list subscription result.
type ListOutcome struct {
	ListID      string `json:"list_id"`
	Subscribed  bool   `json:"subscribed"`
	SMSIncluded bool   `json:"sms_included"`
	SMSFallback bool   `json:"sms_fallback,omitempty"`
	JobID       string `json:"job_id,omitempty"`
	JobStatus   string `json:"job_status,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Result is the full outcome of one processed submission.
type Result struct {
	Status  string          `json:"status"`
	Reason  string          `json:"reason,omitempty"`
	Detail  string          `json:"detail,omitempty"`
	Profile *ProfileOutcome `json:"profile,omitempty"`
	Lists   []ListOutcome   `json:"lists,omitempty"`
}

// Failure builds a failed result with a machine-readable reason.
func Failure(reason, detail string) *Result {
	return &Result{Status: StatusFailed, Reason: reason, Detail: detail}
}

// HTTPStatus maps the outcome onto the wire status code. Partial success
// stays 200: the submission was accepted and at least one list took it.
func (r *Result) HTTPStatus() int {
	switch r.Status {
	case StatusOK, StatusPartial, StatusSkipped:
		return http.StatusOK
	}

	switch r.Reason {
	case ReasonMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ReasonUnauthorized:
		return http.StatusUnauthorized
	case ReasonMissingEmail:
		return http.StatusBadRequest
	case ReasonMissingConfig, ReasonInternalError:
		return http.StatusInternalServerError
	case ReasonUpstreamError:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

package klaviyo

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ErrorObject is a single JSON:API error entry from Klaviyo.
type ErrorObject struct {
	ID     string       `json:"id,omitempty"`
	Code   string       `json:"code,omitempty"`
	Title  string       `json:"title,omitempty"`
	Detail string       `json:"detail,omitempty"`
	Source *ErrorSource `json:"source,omitempty"`
	Meta   *ErrorMeta   `json:"meta,omitempty"`
}

// ErrorSource points at the part of the request an error refers to.
type ErrorSource struct {
	Pointer   string `json:"pointer,omitempty"`
	Parameter string `json:"parameter,omitempty"`
}

// ErrorMeta carries error-specific extras. On duplicate-profile conflicts
// Klaviyo names the existing profile here.
type ErrorMeta struct {
	DuplicateProfileID string `json:"duplicate_profile_id,omitempty"`
}

// APIError is a non-2xx response from the Klaviyo API.
type APIError struct {
	StatusCode int
	Body       string
	Errors     []ErrorObject
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 && e.Errors[0].Detail != "" {
		return fmt.Sprintf("klaviyo: status %d: %s", e.StatusCode, e.Errors[0].Detail)
	}
	return fmt.Sprintf("klaviyo: status %d: %s", e.StatusCode, e.Body)
}

// IsSMSRegionUnsupported reports whether the error is Klaviyo rejecting
// SMS consent for a phone number outside the account's supported regions:
// a client error whose detail mentions an unsupported region or whose
// source pointer references the phone number field.
func (e *APIError) IsSMSRegionUnsupported() bool {
	if e.StatusCode < 400 || e.StatusCode >= 500 {
		return false
	}
	for _, eo := range e.Errors {
		detail := strings.ToLower(eo.Detail)
		if strings.Contains(detail, "region") && strings.Contains(detail, "not supported") {
			return true
		}
		if eo.Source != nil && strings.Contains(eo.Source.Pointer, "phone_number") {
			return true
		}
	}
	return false
}

// newAPIError builds an APIError from a response, parsing the JSON:API
// error list when the body carries one.
func newAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode, Body: string(body)}
	var parsed struct {
		Errors []ErrorObject `json:"errors"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		apiErr.Errors = parsed.Errors
	}
	return apiErr
}

// ConflictError is returned when a profile create collides with an
// existing profile holding the same identifier (HTTP 409). When Klaviyo
// names the existing profile, DuplicateProfileID carries its ID and no
// lookup is needed to recover.
type ConflictError struct {
	DuplicateProfileID string
	Detail             string
}

func (e *ConflictError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("klaviyo: profile conflict: %s", e.Detail)
	}
	return "klaviyo: profile conflict"
}

// newConflictError extracts the duplicate profile ID from a 409 response.
func newConflictError(apiErr *APIError) *ConflictError {
	ce := &ConflictError{}
	for _, eo := range apiErr.Errors {
		if ce.Detail == "" && eo.Detail != "" {
			ce.Detail = eo.Detail
		}
		if eo.Meta != nil && eo.Meta.DuplicateProfileID != "" {
			ce.DuplicateProfileID = eo.Meta.DuplicateProfileID
		}
	}
	return ce
}

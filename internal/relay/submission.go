// Package relay turns raw fundraiser form submissions into Klaviyo
// profiles and list subscriptions. It owns payload parsing, contact
// normalization, the consent gate and the upsert-and-subscribe workflow.
package relay

import (
	"encoding/json"
	"mime"
	"net/url"
	"strconv"
	"strings"
)

// Submission is the raw key/value view of one inbound webhook payload.
// Values stay strings no matter how the sender encoded them;
// normalization decides what they mean.
type Submission map[string]string

// Get returns the trimmed value of the first key that has one.
func (s Submission) Get(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(s[k]); v != "" {
			return v
		}
	}
	return ""
}

// ParseSubmission decodes a webhook body into a flat submission. Form
// posts and JSON objects are both accepted, including the double-encoded
// case where the body is a JSON string containing a JSON object. A body
// that parses as none of these yields an empty submission: the relay
// reports "no usable fields" rather than rejecting the transport.
func ParseSubmission(contentType string, body []byte) Submission {
	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return Submission{}
	}

	mediaType := contentType
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = mt
	}

	if mediaType == "application/x-www-form-urlencoded" {
		return parseForm(raw)
	}

	if sub, ok := parseJSON(raw); ok {
		return sub
	}

	// Senders occasionally mislabel form bodies as JSON
	if !strings.HasPrefix(raw, "{") && strings.Contains(raw, "=") {
		return parseForm(raw)
	}
	return Submission{}
}

func parseForm(raw string) Submission {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return Submission{}
	}
	sub := make(Submission, len(values))
	for k, v := range values {
		if len(v) > 0 && v[0] != "" {
			sub[k] = v[0]
		}
	}
	return sub
}

func parseJSON(raw string) (Submission, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		return flatten(obj), true
	}

	// Double-encoded: a JSON string whose contents are the JSON object
	var inner string
	if err := json.Unmarshal([]byte(raw), &inner); err == nil {
		if err := json.Unmarshal([]byte(inner), &obj); err == nil {
			return flatten(obj), true
		}
	}
	return nil, false
}

// flatten keeps scalar fields and drops null, empty and composite values.
func flatten(obj map[string]interface{}) Submission {
	sub := make(Submission, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			if val != "" {
				sub[k] = val
			}
		case bool:
			sub[k] = strconv.FormatBool(val)
		case float64:
			sub[k] = strconv.FormatFloat(val, 'f', -1, 64)
		}
	}
	return sub
}

// Package klaviyo is a minimal client for the pieces of the Klaviyo API
// the webhook relay touches: profile upsert and per-list subscription
// jobs. Requests use the JSON:API shapes of the pinned revision.
package klaviyo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/michellemazo-scentco/fundraiseathon-klayvio-integration/internal/pkg/httpretry"
)

// Client is the Klaviyo API client
type Client struct {
	baseURL    string
	apiKey     string
	revision   string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a new Klaviyo API client
func NewClient(config Config) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	revision := config.Revision
	if revision == "" {
		revision = DefaultRevision
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL:  baseURL,
		apiKey:   config.APIKey,
		revision: revision,
		// The retry client replays idempotent reads only; profile creates
		// and job submissions go out exactly once.
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: timeout,
		}, 2),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// doRequest performs an authenticated request to the Klaviyo API
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	reqURL := fmt.Sprintf("%s%s", c.baseURL, endpoint)

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Klaviyo-API-Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("revision", c.revision)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, respBody)
	}

	return respBody, nil
}

// CreateProfile creates a new profile and returns its Klaviyo ID.
// A duplicate identifier comes back as *ConflictError so callers can
// recover the existing profile instead of failing.
func (c *Client) CreateProfile(ctx context.Context, attrs ProfileAttributes) (string, error) {
	body := profileBody{Data: profileData{Type: "profile", Attributes: attrs}}

	respBody, err := c.doRequest(ctx, http.MethodPost, "/api/profiles/", body)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
			return "", newConflictError(apiErr)
		}
		return "", err
	}

	var parsed profileBody
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse profile response: %w", err)
	}
	if parsed.Data.ID == "" {
		return "", fmt.Errorf("profile response missing id")
	}
	return parsed.Data.ID, nil
}

// UpdateProfile patches an existing profile's attributes in place.
func (c *Client) UpdateProfile(ctx context.Context, profileID string, attrs ProfileAttributes) error {
	body := profileBody{Data: profileData{Type: "profile", ID: profileID, Attributes: attrs}}
	endpoint := fmt.Sprintf("/api/profiles/%s/", url.PathEscape(profileID))

	_, err := c.doRequest(ctx, http.MethodPatch, endpoint, body)
	return err
}

// GetProfileByEmail resolves a profile ID with an exact email filter.
// Returns "" when no profile matches.
func (c *Client) GetProfileByEmail(ctx context.Context, email string) (string, error) {
	params := url.Values{}
	params.Set("filter", fmt.Sprintf(`equals(email,%q)`, email))
	endpoint := "/api/profiles/?" + params.Encode()

	respBody, err := c.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	var parsed profileListBody
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse profile list response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return "", nil
	}
	return parsed.Data[0].ID, nil
}

// SubscribeProfiles submits a bulk subscription job adding one contact to
// one list. The returned job ID may be empty: the endpoint accepts jobs
// asynchronously and does not always describe them in the response.
func (c *Client) SubscribeProfiles(ctx context.Context, sub Subscription) (string, error) {
	profile := subscribeProfile{
		Type: "profile",
		Attributes: subscribeProfileAttributes{
			Email:       sub.Email,
			PhoneNumber: sub.PhoneNumber,
			Subscriptions: subscriptionChannels{
				Email: &channelSubscription{Marketing: consent{Consent: subscribedConsent}},
			},
		},
	}
	if sub.IncludeSMS {
		profile.Attributes.Subscriptions.SMS = &channelSubscription{Marketing: consent{Consent: subscribedConsent}}
	}

	body := subscribeJobBody{
		Data: subscribeJobData{
			Type: "profile-subscription-bulk-create-job",
			Attributes: subscribeJobAttributes{
				Profiles:         subscribeProfilesData{Data: []subscribeProfile{profile}},
				HistoricalImport: false,
			},
			Relationships: subscribeJobRelationships{
				List: listRelationship{Data: relationshipData{Type: "list", ID: sub.ListID}},
			},
		},
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, "/api/profile-subscription-bulk-create-jobs/", body)
	if err != nil {
		return "", err
	}

	// 202 responses arrive with or without a job description; the job ID
	// is best-effort either way.
	if len(bytes.TrimSpace(respBody)) == 0 {
		return "", nil
	}
	var parsed jobBody
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", nil
	}
	return parsed.Data.ID, nil
}

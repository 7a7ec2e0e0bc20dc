package klaviyo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// GetSubscriptionJob fetches the current state of a bulk subscription job.
func (c *Client) GetSubscriptionJob(ctx context.Context, jobID string) (*SubscriptionJob, error) {
	endpoint := fmt.Sprintf("/api/profile-subscription-bulk-create-jobs/%s/", url.PathEscape(jobID))

	respBody, err := c.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var parsed jobBody
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse job response: %w", err)
	}

	return &SubscriptionJob{
		ID:             parsed.Data.ID,
		Status:         JobStatus(parsed.Data.Attributes.Status),
		TotalCount:     parsed.Data.Attributes.TotalCount,
		CompletedCount: parsed.Data.Attributes.CompletedCount,
		FailedCount:    parsed.Data.Attributes.FailedCount,
	}, nil
}

// WaitForSubscriptionJob polls a job at a fixed interval until it settles
// or the budget elapses. The last observed state is returned even when
// the job is still in flight at the deadline; the caller decides what an
// unsettled job means.
func (c *Client) WaitForSubscriptionJob(ctx context.Context, jobID string, interval, budget time.Duration) (*SubscriptionJob, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if budget <= 0 {
		budget = 10 * time.Second
	}

	deadline := time.Now().Add(budget)
	var last *SubscriptionJob
	var lastErr error

	for {
		job, err := c.GetSubscriptionJob(ctx, jobID)
		if err != nil {
			lastErr = err
		} else {
			last = job
			if job.Status.Terminal() {
				return job, nil
			}
		}

		// Stop when the next poll would land past the deadline
		if time.Now().Add(interval).After(deadline) {
			break
		}

		select {
		case <-ctx.Done():
			if last != nil {
				return last, nil
			}
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}

	if last != nil {
		return last, nil
	}
	return nil, lastErr
}

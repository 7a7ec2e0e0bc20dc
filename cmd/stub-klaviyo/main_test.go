package main

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michellemazo-scentco/fundraiseathon-klayvio-integration/internal/klaviyo"
)

// newStubClient serves a fresh stub and points the real Klaviyo client at
// it, so these tests pin the exact wire shapes the relay sends.
func newStubClient(t *testing.T) *klaviyo.Client {
	t.Helper()
	server := httptest.NewServer(requireAPIKey(newStub().routes()))
	t.Cleanup(server.Close)
	return klaviyo.NewClient(klaviyo.Config{
		BaseURL: server.URL,
		APIKey:  "pk_stub",
		Timeout: 5 * time.Second,
	})
}

func TestStubProfileConflict(t *testing.T) {
	client := newStubClient(t)
	ctx := context.Background()

	id, err := client.CreateProfile(ctx, klaviyo.ProfileAttributes{Email: "jane@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// A repeat create conflicts and names the existing profile
	_, err = client.CreateProfile(ctx, klaviyo.ProfileAttributes{Email: "jane@example.com"})
	var conflict *klaviyo.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, id, conflict.DuplicateProfileID)
}

func TestStubLookupMatchesClientFilter(t *testing.T) {
	client := newStubClient(t)
	ctx := context.Background()

	created, err := client.CreateProfile(ctx, klaviyo.ProfileAttributes{Email: "jane@example.com"})
	require.NoError(t, err)

	// The stub must parse the quoted filter the client sends,
	// equals(email,"jane@example.com"), without the closing quote and
	// parenthesis bleeding into the key
	found, err := client.GetProfileByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, created, found)

	missing, err := client.GetProfileByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestStubJobSettles(t *testing.T) {
	client := newStubClient(t)
	ctx := context.Background()

	jobID, err := client.SubscribeProfiles(ctx, klaviyo.Subscription{
		ListID: "LISTA",
		Email:  "jane@example.com",
	})
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	first, err := client.GetSubscriptionJob(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, klaviyo.JobProcessing, first.Status)

	second, err := client.GetSubscriptionJob(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, klaviyo.JobComplete, second.Status)
	assert.False(t, second.Failed())
}

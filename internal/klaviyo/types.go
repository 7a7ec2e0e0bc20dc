package klaviyo

import "time"

// API defaults. Revision is Klaviyo's date-based API version header; it is
// pinned so payload shapes stay stable until a deliberate upgrade.
const (
	DefaultBaseURL  = "https://a.klaviyo.com"
	DefaultRevision = "2024-10-15"
	DefaultTimeout  = 30 * time.Second
)

// subscribedConsent is the only consent value the relay ever writes.
const subscribedConsent = "SUBSCRIBED"

// Config holds Klaviyo API connection settings.
type Config struct {
	BaseURL  string
	APIKey   string
	Revision string
	Timeout  time.Duration
}

// Location is the address block of a profile.
type Location struct {
	City    string `json:"city,omitempty"`
	Region  string `json:"region,omitempty"`
	Country string `json:"country,omitempty"`
	Zip     string `json:"zip,omitempty"`
}

// ProfileAttributes carries the identity and custom fields of a profile.
type ProfileAttributes struct {
	Email       string            `json:"email"`
	PhoneNumber string            `json:"phone_number,omitempty"`
	FirstName   string            `json:"first_name,omitempty"`
	LastName    string            `json:"last_name,omitempty"`
	Location    *Location         `json:"location,omitempty"`
	Properties  map[string]string `json:"properties,omitempty"`
}

// JSON:API envelopes for the profile endpoints.
type profileData struct {
	Type       string            `json:"type"`
	ID         string            `json:"id,omitempty"`
	Attributes ProfileAttributes `json:"attributes"`
}

type profileBody struct {
	Data profileData `json:"data"`
}

type profileListBody struct {
	Data []profileData `json:"data"`
}

// Subscription describes one list subscription for one contact.
// Email marketing consent is always requested. IncludeSMS requests SMS
// consent as well; PhoneNumber may be set without IncludeSMS, in which
// case it rides along as profile data only.
type Subscription struct {
	ListID      string
	Email       string
	PhoneNumber string
	IncludeSMS  bool
}

// Wire shapes for profile-subscription-bulk-create-jobs.
type consent struct {
	Consent string `json:"consent"`
}

type channelSubscription struct {
	Marketing consent `json:"marketing"`
}

type subscriptionChannels struct {
	Email *channelSubscription `json:"email,omitempty"`
	SMS   *channelSubscription `json:"sms,omitempty"`
}

type subscribeProfileAttributes struct {
	Email         string               `json:"email"`
	PhoneNumber   string               `json:"phone_number,omitempty"`
	Subscriptions subscriptionChannels `json:"subscriptions"`
}

type subscribeProfile struct {
	Type       string                     `json:"type"`
	Attributes subscribeProfileAttributes `json:"attributes"`
}

type subscribeProfilesData struct {
	Data []subscribeProfile `json:"data"`
}

type subscribeJobAttributes struct {
	Profiles         subscribeProfilesData `json:"profiles"`
	HistoricalImport bool                  `json:"historical_import"`
}

type relationshipData struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type listRelationship struct {
	Data relationshipData `json:"data"`
}

type subscribeJobRelationships struct {
	List listRelationship `json:"list"`
}

type subscribeJobData struct {
	Type          string                    `json:"type"`
	Attributes    subscribeJobAttributes    `json:"attributes"`
	Relationships subscribeJobRelationships `json:"relationships"`
}

type subscribeJobBody struct {
	Data subscribeJobData `json:"data"`
}

// JobStatus is the lifecycle state of a subscription job.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobComplete   JobStatus = "complete"
	JobCancelled  JobStatus = "cancelled"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the job has settled.
func (s JobStatus) Terminal() bool {
	return s == JobComplete || s == JobCancelled || s == JobFailed
}

// SubscriptionJob is the observed state of a bulk subscription job.
type SubscriptionJob struct {
	ID             string
	Status         JobStatus
	TotalCount     int
	CompletedCount int
	FailedCount    int
}

// Failed reports whether the job settled without subscribing anyone.
// Cancelled and failed jobs always count; the relay submits
// single-profile jobs, so a completed job whose only profile failed
// counts as well.
func (j *SubscriptionJob) Failed() bool {
	if j.Status == JobCancelled || j.Status == JobFailed {
		return true
	}
	return j.Status == JobComplete && j.FailedCount > 0 && j.CompletedCount == 0
}

// Wire shape for the job endpoints.
type jobAttributes struct {
	Status         string `json:"status"`
	TotalCount     int    `json:"total_count"`
	CompletedCount int    `json:"completed_count"`
	FailedCount    int    `json:"failed_count"`
}

type jobData struct {
	Type       string        `json:"type"`
	ID         string        `json:"id"`
	Attributes jobAttributes `json:"attributes"`
}

type jobBody struct {
	Data jobData `json:"data"`
}

package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/michellemazo-scentco/fundraiseathon-klayvio-integration/internal/config"
	"github.com/michellemazo-scentco/fundraiseathon-klayvio-integration/internal/klaviyo"
	"github.com/michellemazo-scentco/fundraiseathon-klayvio-integration/internal/pkg/logger"
)

// Service runs the upsert-and-subscribe workflow for opted-in
// submissions. It holds no per-request state: every invocation works
// entirely from its arguments, so concurrent webhook deliveries never
// interact.
type Service struct {
	client          *klaviyo.Client
	listIDs         []string
	defaultCountry  string
	smsCallingCodes []string
	skipJobVerify   bool
	jobPollInterval time.Duration
	jobPollBudget   time.Duration
}

// NewService wires the workflow against a Klaviyo client.
func NewService(client *klaviyo.Client, klaviyoCfg config.KlaviyoConfig, intakeCfg config.IntakeConfig) *Service {
	return &Service{
		client:          client,
		listIDs:         klaviyoCfg.ListIDs,
		defaultCountry:  intakeCfg.DefaultCountry,
		smsCallingCodes: intakeCfg.SMSAllowedCallingCodes,
		skipJobVerify:   klaviyoCfg.SkipJobVerify,
		jobPollInterval: klaviyoCfg.JobPollInterval(),
		jobPollBudget:   klaviyoCfg.JobPollBudget(),
	}
}

// Process handles one parsed submission end to end. It never returns nil:
// every path produces a result the handler can map onto a status code.
func (s *Service) Process(ctx context.Context, sub Submission, requestID string) *Result {
	email := sub.Get("email")
	if email == "" {
		return Failure(ReasonMissingEmail, "submission has no email address")
	}

	if !OptedIn(sub) {
		logger.Info("submission skipped, no marketing consent",
			"request_id", requestID,
			"email", email)
		return &Result{Status: StatusSkipped, Reason: ReasonNoConsent}
	}

	contact := Normalize(sub, s.defaultCountry)

	profile, err := s.upsertProfile(ctx, contact)
	if err != nil {
		logger.Error("profile upsert failed",
			"request_id", requestID,
			"email", contact.Email,
			"error", err.Error())
		return Failure(ReasonUpstreamError, logger.RedactText(err.Error()))
	}

	logger.Info("profile upserted",
		"request_id", requestID,
		"email", contact.Email,
		"profile_id", profile.ID,
		"created", profile.Created)

	outcomes := s.subscribeAll(ctx, contact, requestID)

	subscribed := 0
	for _, o := range outcomes {
		if o.Subscribed {
			subscribed++
		}
	}

	result := &Result{Profile: profile, Lists: outcomes}
	switch {
	case subscribed == len(outcomes):
		result.Status = StatusOK
	case subscribed > 0:
		result.Status = StatusPartial
	default:
		result.Status = StatusFailed
		result.Reason = ReasonUpstreamError
		result.Detail = "no list accepted the subscription"
	}
	return result
}

// upsertProfile creates the profile, recovering through the conflict
// path when the identifier already exists: prefer the duplicate profile
// ID the platform names, fall back to exactly one lookup by email, then
// update the resolved profile in place.
func (s *Service) upsertProfile(ctx context.Context, contact NormalizedContact) (*ProfileOutcome, error) {
	attrs := contact.ProfileAttributes()

	id, err := s.client.CreateProfile(ctx, attrs)
	if err == nil {
		return &ProfileOutcome{ID: id, Created: true}, nil
	}

	var conflict *klaviyo.ConflictError
	if !errors.As(err, &conflict) {
		return nil, err
	}

	profileID := conflict.DuplicateProfileID
	if profileID == "" {
		profileID, err = s.client.GetProfileByEmail(ctx, contact.Email)
		if err != nil {
			return nil, err
		}
		if profileID == "" {
			return nil, fmt.Errorf("conflict reported but no profile matches %s", logger.RedactEmail(contact.Email))
		}
	}

	if err := s.client.UpdateProfile(ctx, profileID, attrs); err != nil {
		return nil, err
	}
	return &ProfileOutcome{ID: profileID, Created: false}, nil
}

// subscribeAll fans one subscription job out per configured list. Lists
// are independent: each goroutine writes only its own slot and a failure
// never cancels the siblings.
func (s *Service) subscribeAll(ctx context.Context, contact NormalizedContact, requestID string) []ListOutcome {
	outcomes := make([]ListOutcome, len(s.listIDs))

	var wg sync.WaitGroup
	for i, listID := range s.listIDs {
		wg.Add(1)
		go func(i int, listID string) {
			defer wg.Done()
			outcomes[i] = s.subscribeList(ctx, listID, contact, requestID)
		}(i, listID)
	}
	wg.Wait()

	return outcomes
}

func (s *Service) subscribeList(ctx context.Context, listID string, contact NormalizedContact, requestID string) ListOutcome {
	outcome := ListOutcome{ListID: listID}

	includeSMS := s.smsAllowed(contact.Phone)
	outcome.SMSIncluded = includeSMS

	jobID, err := s.client.SubscribeProfiles(ctx, klaviyo.Subscription{
		ListID:      listID,
		Email:       contact.Email,
		PhoneNumber: contact.Phone,
		IncludeSMS:  includeSMS,
	})

	// One documented retry: when the platform rejects the phone for an
	// unsupported SMS region, resubmit the same list without it.
	if err != nil && contact.Phone != "" {
		var apiErr *klaviyo.APIError
		if errors.As(err, &apiErr) && apiErr.IsSMSRegionUnsupported() {
			logger.Warn("sms region unsupported, retrying list without sms",
				"request_id", requestID,
				"list_id", listID,
				"phone", contact.Phone)
			outcome.SMSIncluded = false
			outcome.SMSFallback = true
			jobID, err = s.client.SubscribeProfiles(ctx, klaviyo.Subscription{
				ListID: listID,
				Email:  contact.Email,
			})
		}
	}

	if err != nil {
		logger.Error("list subscription failed",
			"request_id", requestID,
			"list_id", listID,
			"email", contact.Email,
			"error", err.Error())
		outcome.Error = logger.RedactText(err.Error())
		return outcome
	}

	outcome.Subscribed = true
	outcome.JobID = jobID

	if jobID != "" && !s.skipJobVerify {
		job, err := s.client.WaitForSubscriptionJob(ctx, jobID, s.jobPollInterval, s.jobPollBudget)
		if err != nil {
			// The job was accepted; an unobservable status is not a failure
			logger.Warn("subscription job status unavailable",
				"request_id", requestID,
				"list_id", listID,
				"job_id", jobID,
				"error", err.Error())
			return outcome
		}
		outcome.JobStatus = string(job.Status)
		if job.Failed() {
			outcome.Subscribed = false
			outcome.Error = "subscription job " + string(job.Status) + " without subscribing the profile"
		}
	}

	logger.Info("list subscription submitted",
		"request_id", requestID,
		"list_id", listID,
		"email", contact.Email,
		"sms_included", outcome.SMSIncluded,
		"job_id", jobID)

	return outcome
}

// smsAllowed applies the calling-code allow-list. An empty list means an
// unrestricted account: any valid phone may carry SMS consent.
func (s *Service) smsAllowed(phone string) bool {
	if phone == "" {
		return false
	}
	if len(s.smsCallingCodes) == 0 {
		return true
	}
	for _, code := range s.smsCallingCodes {
		if strings.HasPrefix(phone, "+"+code) {
			return true
		}
	}
	return false
}

package relay

import (
	"regexp"
	"strings"

	"github.com/michellemazo-scentco/fundraiseathon-klayvio-integration/internal/klaviyo"
)

// NormalizedContact is the validated, derived view of a submission,
// ready to become a Klaviyo profile.
type NormalizedContact struct {
	Email      string
	FirstName  string
	LastName   string
	Phone      string // E.164, or empty when the submitted phone was unusable
	City       string
	Region     string
	Country    string
	Zip        string
	Properties map[string]string
}

// e164Pattern is the strict E.164 shape: a plus sign, a non-zero leading
// digit, at most 15 digits total.
var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{0,14}$`)

// NormalizePhone returns the trimmed phone when it is already valid
// E.164, "" otherwise. Invalid phones are discarded, not rejected: a bad
// phone must never block the email subscription.
func NormalizePhone(raw string) string {
	phone := strings.TrimSpace(raw)
	if e164Pattern.MatchString(phone) {
		return phone
	}
	return ""
}

// SplitName splits a free-form name on the first whitespace run:
// "Jane van der Berg" → ("Jane", "van der Berg").
func SplitName(full string) (first, last string) {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

// usStates covers the 50 USPS state codes plus DC.
var usStates = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true,
	"CO": true, "CT": true, "DE": true, "FL": true, "GA": true,
	"HI": true, "ID": true, "IL": true, "IN": true, "IA": true,
	"KS": true, "KY": true, "LA": true, "ME": true, "MD": true,
	"MA": true, "MI": true, "MN": true, "MS": true, "MO": true,
	"MT": true, "NE": true, "NV": true, "NH": true, "NJ": true,
	"NM": true, "NY": true, "NC": true, "ND": true, "OH": true,
	"OK": true, "OR": true, "PA": true, "RI": true, "SC": true,
	"SD": true, "TN": true, "TX": true, "UT": true, "VT": true,
	"VA": true, "WA": true, "WV": true, "WI": true, "WY": true,
	"DC": true,
}

func isUSState(region string) bool {
	return usStates[strings.ToUpper(region)]
}

// Campaign fields forwarded to the profile as custom properties.
var propertyFields = []string{"goal", "group", "payment_method", "comments"}

// Normalize derives the contact fields the platform needs from a raw
// submission. Geocoded geo_* fields back up their submitted
// counterparts; defaultCountry fills in when the submission carries no
// usable country signal at all.
func Normalize(sub Submission, defaultCountry string) NormalizedContact {
	contact := NormalizedContact{
		Email: sub.Get("email"),
		Phone: NormalizePhone(sub.Get("phone", "phone_number")),
		City:  sub.Get("city", "geo_city"),
		Zip:   sub.Get("zip", "postal_code"),
	}

	contact.FirstName, contact.LastName = SplitName(sub.Get("name"))

	contact.Region = sub.Get("state", "region", "geo_region")
	contact.Country = resolveCountry(sub.Get("country", "geo_country"), contact.Region, defaultCountry)

	props := make(map[string]string)
	for _, f := range propertyFields {
		if v := sub.Get(f); v != "" {
			props[f] = v
		}
	}
	if len(props) > 0 {
		contact.Properties = props
	}

	return contact
}

// resolveCountry picks the explicit country when present, then infers US
// from a two-letter state code, then falls back to the configured default.
func resolveCountry(explicit, region, defaultCountry string) string {
	if explicit != "" {
		return explicit
	}
	if isUSState(region) {
		return "US"
	}
	return defaultCountry
}

// ProfileAttributes maps the contact onto the Klaviyo profile shape.
func (c NormalizedContact) ProfileAttributes() klaviyo.ProfileAttributes {
	attrs := klaviyo.ProfileAttributes{
		Email:       c.Email,
		PhoneNumber: c.Phone,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Properties:  c.Properties,
	}
	if c.City != "" || c.Region != "" || c.Country != "" || c.Zip != "" {
		attrs.Location = &klaviyo.Location{
			City:    c.City,
			Region:  c.Region,
			Country: c.Country,
			Zip:     c.Zip,
		}
	}
	return attrs
}

package relay

import (
	"reflect"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid us", "+15551234567", "+15551234567"},
		{"valid uk", "+447911123456", "+447911123456"},
		{"valid short", "+1", "+1"},
		{"max length", "+123456789012345", "+123456789012345"},
		{"padded", "  +15551234567  ", "+15551234567"},
		{"too long", "+1234567890123456", ""},
		{"leading zero", "+05551234567", ""},
		{"no plus", "15551234567", ""},
		{"dashes", "555-1234", ""},
		{"letters", "+1555CALLNOW", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePhone(tt.input); got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantFirst string
		wantLast  string
	}{
		{"two parts", "Jane Doe", "Jane", "Doe"},
		{"multi-part surname", "Jane van der Berg", "Jane", "van der Berg"},
		{"single name", "Jane", "Jane", ""},
		{"extra whitespace", "  Jane   Doe  ", "Jane", "Doe"},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := SplitName(tt.input)
			if first != tt.wantFirst || last != tt.wantLast {
				t.Errorf("SplitName(%q) = (%q, %q), want (%q, %q)",
					tt.input, first, last, tt.wantFirst, tt.wantLast)
			}
		})
	}
}

func TestResolveCountry(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		region   string
		want     string
	}{
		{"explicit wins", "Canada", "CA", "Canada"},
		{"us state infers us", "", "CA", "US"},
		{"lowercase state", "", "ny", "US"},
		{"dc counts", "", "DC", "US"},
		{"non-state region", "", "Bavaria", "GB"},
		{"two-letter non-state", "", "XX", "GB"},
		{"nothing", "", "", "GB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveCountry(tt.explicit, tt.region, "GB"); got != tt.want {
				t.Errorf("resolveCountry(%q, %q, GB) = %q, want %q", tt.explicit, tt.region, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	sub := Submission{
		"email":          "jane@example.com",
		"name":           "Jane Doe",
		"phone":          "+15551234567",
		"city":           "Los Angeles",
		"state":          "CA",
		"zip":            "90001",
		"goal":           "500",
		"group":          "Troop 42",
		"payment_method": "card",
	}

	contact := Normalize(sub, "US")

	if contact.Email != "jane@example.com" {
		t.Errorf("Email = %q", contact.Email)
	}
	if contact.FirstName != "Jane" || contact.LastName != "Doe" {
		t.Errorf("Name = (%q, %q), want (Jane, Doe)", contact.FirstName, contact.LastName)
	}
	if contact.Phone != "+15551234567" {
		t.Errorf("Phone = %q", contact.Phone)
	}
	if contact.City != "Los Angeles" || contact.Region != "CA" || contact.Zip != "90001" {
		t.Errorf("Location = (%q, %q, %q)", contact.City, contact.Region, contact.Zip)
	}
	if contact.Country != "US" {
		t.Errorf("Country = %q, want US inferred from state", contact.Country)
	}

	wantProps := map[string]string{"goal": "500", "group": "Troop 42", "payment_method": "card"}
	if !reflect.DeepEqual(contact.Properties, wantProps) {
		t.Errorf("Properties = %v, want %v", contact.Properties, wantProps)
	}
}

func TestNormalizeInvalidPhoneDiscarded(t *testing.T) {
	sub := Submission{
		"email": "jane@example.com",
		"phone": "555-1234",
	}

	contact := Normalize(sub, "US")

	if contact.Phone != "" {
		t.Errorf("Phone = %q, want invalid phone discarded", contact.Phone)
	}
	if contact.Email != "jane@example.com" {
		t.Errorf("Email = %q, discarding the phone must not touch the email", contact.Email)
	}
}

func TestNormalizeGeoFallbacks(t *testing.T) {
	sub := Submission{
		"email":       "jane@example.com",
		"geo_city":    "Toronto",
		"geo_region":  "Ontario",
		"geo_country": "CA",
	}

	contact := Normalize(sub, "US")

	if contact.City != "Toronto" {
		t.Errorf("City = %q, want geo_city fallback", contact.City)
	}
	if contact.Region != "Ontario" {
		t.Errorf("Region = %q, want geo_region fallback", contact.Region)
	}
	if contact.Country != "CA" {
		t.Errorf("Country = %q, want geo_country fallback", contact.Country)
	}
}

func TestNormalizeSubmittedFieldsWinOverGeo(t *testing.T) {
	sub := Submission{
		"email":       "jane@example.com",
		"city":        "Boston",
		"geo_city":    "Cambridge",
		"country":     "US",
		"geo_country": "CA",
	}

	contact := Normalize(sub, "GB")

	if contact.City != "Boston" {
		t.Errorf("City = %q, submitted city must beat geo_city", contact.City)
	}
	if contact.Country != "US" {
		t.Errorf("Country = %q, submitted country must beat geo_country", contact.Country)
	}
}

func TestNormalizeDefaultCountry(t *testing.T) {
	sub := Submission{"email": "jane@example.com"}

	contact := Normalize(sub, "US")

	if contact.Country != "US" {
		t.Errorf("Country = %q, want configured default", contact.Country)
	}
}

func TestProfileAttributes(t *testing.T) {
	contact := NormalizedContact{
		Email:     "jane@example.com",
		FirstName: "Jane",
		LastName:  "Doe",
		Phone:     "+15551234567",
		City:      "Los Angeles",
		Region:    "CA",
		Country:   "US",
		Zip:       "90001",
		Properties: map[string]string{
			"goal": "500",
		},
	}

	attrs := contact.ProfileAttributes()

	if attrs.Email != "jane@example.com" || attrs.PhoneNumber != "+15551234567" {
		t.Errorf("identifiers = (%q, %q)", attrs.Email, attrs.PhoneNumber)
	}
	if attrs.Location == nil {
		t.Fatal("Location = nil, want populated")
	}
	if attrs.Location.Country != "US" || attrs.Location.City != "Los Angeles" {
		t.Errorf("Location = %+v", attrs.Location)
	}
	if attrs.Properties["goal"] != "500" {
		t.Errorf("Properties = %v", attrs.Properties)
	}
}

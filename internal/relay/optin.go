package relay

import "strings"

// optInTokens is the closed set of values that signal marketing consent.
// Anything else ("no", "false", an unrecognized word, absence) means no
// consent, and the submission is acknowledged without touching the
// platform.
var optInTokens = map[string]bool{
	"on":      true,
	"true":    true,
	"1":       true,
	"yes":     true,
	"y":       true,
	"checked": true,
}

// OptedIn reports whether the submission carries an affirmative
// marketing-consent value. Matching is case-insensitive against the
// exact token set; a JSON boolean true arrives here as "true" and
// matches.
func OptedIn(sub Submission) bool {
	return optInTokens[strings.ToLower(strings.TrimSpace(sub["marketing"]))]
}

package logger

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+[1-9]\d{6,14}`)
)

// RedactEmail masks an email address for safe logging, keeping only the
// first character of the local part.
// "jane.doe@example.com" → "j***@example.com"
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" {
		return "***@***"
	}
	// First rune, not first byte: local parts can be non-ASCII
	_, size := utf8.DecodeRuneInString(parts[0])
	return parts[0][:size] + "***@" + parts[1]
}

// RedactPhone masks a phone number, keeping only the last two digits.
// "+15551234567" → "***67"
func RedactPhone(phone string) string {
	if len(phone) < 2 {
		return "***"
	}
	return "***" + phone[len(phone)-2:]
}

// RedactText masks any email addresses or E.164 phone numbers embedded in
// free-form text. Used for upstream error bodies echoed back to callers.
func RedactText(s string) string {
	s = emailPattern.ReplaceAllStringFunc(s, RedactEmail)
	return phonePattern.ReplaceAllStringFunc(s, RedactPhone)
}

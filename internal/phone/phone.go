package phone

import "strings"

// Sanitize normalizes a caller-supplied phone number to international form.
// All non-digit characters are stripped; a local-format leading zero is
// rewritten to the given country code. Numbers already carrying a country
// code pass through unchanged, so the function is idempotent.
func Sanitize(raw, countryCode string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if strings.HasPrefix(digits, "0") {
		return "+" + countryCode + digits[1:]
	}
	if digits == "" {
		return ""
	}
	return "+" + digits
}

// IsLocalFormat reports whether the input looks like a dialable local number
// (10 to 13 digits), the shape the send flow accepts for recipients.
func IsLocalFormat(raw string) bool {
	if len(raw) < 10 || len(raw) > 13 {
		return false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

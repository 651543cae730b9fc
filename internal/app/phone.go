package app

import (
	"strings"

	"github.com/pscheid92/wagate/internal/domain"
)

// NormalizeNumber converts a human-entered phone number to a canonical contact id.
// Non-digits are dropped and a leading trunk 0 is replaced by countryCode.
// It returns "" if no digits remain.
func NormalizeNumber(number, countryCode string) string {
	number, _, _ = strings.Cut(number, "@")

	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(digits, "0") {
		digits = countryCode + digits[1:]
	}
	return digits + domain.ContactServer
}

// InviteCode extracts the invite code from an invite link or a pasted invite text.
func InviteCode(invite string) string {
	fields := strings.Fields(invite)
	if len(fields) == 0 {
		return ""
	}
	code := strings.TrimRight(fields[0], "/")
	if i := strings.LastIndex(code, "/"); i >= 0 {
		code = code[i+1:]
	}
	return code
}

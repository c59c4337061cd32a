package contacts

import (
	"regexp"
	"strings"
)

var (
	phonePattern = regexp.MustCompile(`\(?01[016789]\)?[\s\-.]?\d{3,4}[\s\-.]?\d{4}`)
	nonDigit     = regexp.MustCompile(`\D`)
)

// ExtractPhone returns the first Korean mobile number found in text.
func ExtractPhone(text string) string {
	return phonePattern.FindString(text)
}

// NormalizePhone formats 010 numbers as 010-XXXX-XXXX or 010-XXX-XXXX.
// Anything else comes back trimmed but otherwise untouched.
func NormalizePhone(s string) string {
	d := nonDigit.ReplaceAllString(s, "")
	if !strings.HasPrefix(d, "010") {
		return strings.TrimSpace(s)
	}
	switch len(d) {
	case 11:
		return d[:3] + "-" + d[3:7] + "-" + d[7:]
	case 10:
		return d[:3] + "-" + d[3:6] + "-" + d[6:]
	}
	return strings.TrimSpace(s)
}

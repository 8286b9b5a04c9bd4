package utils

import (
	"regexp"
	"strings"
)

var phoneCleanRegex = regexp.MustCompile(`[^\d+]`)

// NormalizePhone strips formatting characters and ensures a leading +
// so numbers compare and dial consistently.
func NormalizePhone(phone string) string {
	normalized := phoneCleanRegex.ReplaceAllString(phone, "")
	if !strings.HasPrefix(normalized, "+") {
		normalized = "+" + normalized
	}
	return normalized
}

// MaskPhone hides all but the last four digits for log output.
func MaskPhone(phone string) string {
	if len(phone) < 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

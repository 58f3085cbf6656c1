package filter

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	creditCardPattern = regexp.MustCompile(`\b\d{4}[- ]\d{4}[- ]\d{4}[- ]\d{4}\b`)
	residentIDPattern = regexp.MustCompile(`\b\d{6}-\d{7}\b`)
	// Korean mobile and landline numbers, dash-separated digit groups.
	// 010-1234-5678, 011-123-4567, 02-123-4567, 031-1234-5678
	phoneKRPattern = regexp.MustCompile(`\b0\d{1,2}-\d{3,4}-\d{4}\b`)
	emailPattern   = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	ipPattern      = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
)

// DefaultRules returns the PII rule library in evaluation order.
//
// The order is a correctness contract, not a style choice: credit-card and
// resident-ID digit runs can be partially consumed by the looser phone
// pattern, so the stricter numeric formats claim their spans first.
// Highest priority first: CreditCard, ResidentID, PhoneKR, Email, IPAddress.
func DefaultRules() []DetectionRule {
	return []DetectionRule{
		{
			Kind:    KindCreditCard,
			Pattern: creditCardPattern,
			Mask:    maskDigits,
		},
		{
			Kind:    KindResidentID,
			Pattern: residentIDPattern,
			Mask:    maskDigits,
		},
		{
			Kind:    KindPhoneKR,
			Pattern: phoneKRPattern,
			Mask:    maskPhone,
		},
		{
			Kind:    KindEmail,
			Pattern: emailPattern,
			Mask:    maskEmail,
		},
		{
			Kind:     KindIPAddress,
			Pattern:  ipPattern,
			Validate: validOctets,
			Mask:     maskDigits,
		},
	}
}

// maskEmail replaces both the local part and the domain. The token contains
// no characters any detection pattern accepts, which keeps masking idempotent.
func maskEmail(string) string {
	return "***@***.***"
}

// maskPhone keeps the first dash-separated group (the carrier/area prefix)
// and replaces every digit of the remaining groups, preserving dash positions.
// 010-1234-5678 -> 010-****-****
func maskPhone(match string) string {
	groups := strings.Split(match, "-")
	for i := 1; i < len(groups); i++ {
		groups[i] = strings.Repeat("*", len(groups[i]))
	}
	return strings.Join(groups, "-")
}

// maskDigits replaces every digit with '*' and keeps separators, so the
// masked value preserves the structure of the original (dashes, spaces, dots).
func maskDigits(match string) string {
	var b strings.Builder
	b.Grow(len(match))
	for _, r := range match {
		if r >= '0' && r <= '9' {
			b.WriteRune('*')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// validOctets rejects dotted quads with an octet outside 0-255.
func validOctets(match string) bool {
	for _, octet := range strings.Split(match, ".") {
		n, err := strconv.Atoi(octet)
		if err != nil || n > 255 {
			return false
		}
	}
	return true
}

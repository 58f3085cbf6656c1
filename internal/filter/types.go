package filter

import "regexp"

// PIIKind identifies a category of personally identifiable information.
// The set is closed: adding a kind means extending this enum and the rule
// table in patterns.go, nothing else.
type PIIKind string

const (
	KindCreditCard PIIKind = "credit_card"
	KindResidentID PIIKind = "resident_id"
	KindPhoneKR    PIIKind = "phone_kr"
	KindEmail      PIIKind = "email"
	KindIPAddress  PIIKind = "ip_address"
)

// DetectionRule represents a single PII detection rule. Rules are evaluated
// in the order they appear in the library; earlier rules claim text spans
// that later rules must skip.
type DetectionRule struct {
	Kind    PIIKind
	Pattern *regexp.Regexp
	// Validate rejects regex matches that fail semantic checks the pattern
	// cannot express (e.g. IP octet range). Nil means every match is valid.
	Validate func(match string) bool
	// Mask produces the structure-preserving replacement for a match.
	Mask func(match string) string
}

// PIIMatch records one masked occurrence. Start and End are code-point
// offsets into the original text. The matched substring itself is never
// retained past the masking step.
type PIIMatch struct {
	Kind        PIIKind `json:"kind"`
	Start       int     `json:"start"`
	End         int     `json:"end"`
	MaskedValue string  `json:"maskedValue"`
}

// KeywordMatch records one blocklist hit, case-normalized.
type KeywordMatch struct {
	Term string `json:"term"`
}

// Decision is the combined outcome of blocklist and masking evaluation for
// one message. When KeywordMatches is non-empty, Blocked is true and
// MaskedText is empty: blocked messages are never partially masked.
type Decision struct {
	Blocked        bool           `json:"blocked"`
	MaskedText     string         `json:"maskedText"`
	PIIMatches     []PIIMatch     `json:"piiMatches"`
	KeywordMatches []KeywordMatch `json:"keywordMatches"`
}

package filter

import (
	"sort"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Masker applies the PII rule library to text, producing a masked copy and
// the list of matches found. A Masker is immutable after construction and
// safe for concurrent use.
type Masker struct {
	rules  []DetectionRule
	logger *zap.Logger
}

// NewMasker creates a masker over the given rule library. Rule order is the
// evaluation priority: spans claimed by an earlier rule are skipped by every
// later rule.
func NewMasker(rules []DetectionRule, logger *zap.Logger) *Masker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Masker{rules: rules, logger: logger}
}

// claim is a matched span in byte offsets, with its replacement.
type claim struct {
	start  int
	end    int
	kind   PIIKind
	masked string
}

// Mask scans text with every rule in priority order and rewrites all claimed
// spans in a single reconstruction pass. Returned match offsets are
// code-point offsets into the original text; the matched substrings are not
// retained. Masking is idempotent: no mask token matches any rule pattern.
func (m *Masker) Mask(text string) (string, []PIIMatch) {
	var claims []claim

	for _, rule := range m.rules {
		for _, loc := range rule.Pattern.FindAllStringIndex(text, -1) {
			if overlapsAny(claims, loc[0], loc[1]) {
				continue
			}
			match := text[loc[0]:loc[1]]
			if rule.Validate != nil && !rule.Validate(match) {
				continue
			}
			claims = append(claims, claim{
				start:  loc[0],
				end:    loc[1],
				kind:   rule.Kind,
				masked: rule.Mask(match),
			})
			m.logger.Debug("PII detected and masked",
				zap.String("kind", string(rule.Kind)),
				zap.Int("span_start", loc[0]),
				zap.Int("span_end", loc[1]),
			)
		}
	}

	if len(claims) == 0 {
		return text, []PIIMatch{}
	}

	sort.Slice(claims, func(i, j int) bool { return claims[i].start < claims[j].start })

	var (
		out     []byte
		matches = make([]PIIMatch, 0, len(claims))
		prev    = 0
		runePos = 0
	)
	for _, c := range claims {
		out = append(out, text[prev:c.start]...)
		runePos += utf8.RuneCountInString(text[prev:c.start])
		start := runePos
		runePos += utf8.RuneCountInString(text[c.start:c.end])

		out = append(out, c.masked...)
		matches = append(matches, PIIMatch{
			Kind:        c.kind,
			Start:       start,
			End:         runePos,
			MaskedValue: c.masked,
		})
		prev = c.end
	}
	out = append(out, text[prev:]...)

	return string(out), matches
}

func overlapsAny(claims []claim, start, end int) bool {
	for _, c := range claims {
		if start < c.end && end > c.start {
			return true
		}
	}
	return false
}

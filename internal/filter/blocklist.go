package filter

import "strings"

// Blocklist is a configured set of disallowed literal terms. Matching is
// case-insensitive substring containment; there is no wildcard, stemming or
// fuzzy semantics. A Blocklist is immutable and safe for concurrent use.
type Blocklist struct {
	terms  []string
	folded []string
}

// NewBlocklist builds a blocklist from the configured terms. Duplicate and
// empty terms are dropped; the configuration order is preserved and defines
// the order of reported matches.
func NewBlocklist(terms []string) *Blocklist {
	b := &Blocklist{
		terms:  make([]string, 0, len(terms)),
		folded: make([]string, 0, len(terms)),
	}
	seen := make(map[string]bool, len(terms))
	for _, term := range terms {
		folded := strings.ToLower(term)
		if folded == "" || seen[folded] {
			continue
		}
		seen[folded] = true
		b.terms = append(b.terms, term)
		b.folded = append(b.folded, folded)
	}
	return b
}

// Scan returns the blocklist terms contained in text, deduplicated, in
// configuration order. It is a pure function over (text, blocklist).
func (b *Blocklist) Scan(text string) []KeywordMatch {
	folded := strings.ToLower(text)
	matches := make([]KeywordMatch, 0)
	for i, term := range b.folded {
		if strings.Contains(folded, term) {
			matches = append(matches, KeywordMatch{Term: b.terms[i]})
		}
	}
	return matches
}

// Terms returns the configured terms in order.
func (b *Blocklist) Terms() []string {
	out := make([]string, len(b.terms))
	copy(out, b.terms)
	return out
}

package filter

import "go.uber.org/zap"

// Engine is the single entry point combining blocklist and masking into one
// decision. It holds only immutable configuration and may be shared across
// any number of request goroutines without synchronization.
type Engine struct {
	blocklist *Blocklist
	masker    *Masker
	logger    *zap.Logger
}

// NewEngine creates a decision engine over the default PII rule library and
// the given blocklist terms.
func NewEngine(blockedTerms []string, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		blocklist: NewBlocklist(blockedTerms),
		masker:    NewMasker(DefaultRules(), logger),
		logger:    logger,
	}
}

// Evaluate produces the filter decision for one message. It never fails:
// finding a keyword or PII is a normal outcome, not an error, and any string
// input is valid. Blocklist hits take absolute priority; a blocked message
// is never partially processed for PII.
func (e *Engine) Evaluate(text string) Decision {
	keywords := e.blocklist.Scan(text)
	if len(keywords) > 0 {
		e.logger.Info("message blocked by keyword filter",
			zap.Int("keyword_count", len(keywords)),
		)
		return Decision{
			Blocked:        true,
			MaskedText:     "",
			PIIMatches:     []PIIMatch{},
			KeywordMatches: keywords,
		}
	}

	masked, piiMatches := e.masker.Mask(text)
	return Decision{
		Blocked:        false,
		MaskedText:     masked,
		PIIMatches:     piiMatches,
		KeywordMatches: []KeywordMatch{},
	}
}

// BlockedTerms returns the configured blocklist terms.
func (e *Engine) BlockedTerms() []string {
	return e.blocklist.Terms()
}

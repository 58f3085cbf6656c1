// Package upstream talks to the external generative backend. The content
// filter has already run by the time anything reaches this package; only
// masked text is ever sent here.
package upstream

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Turn is one prior exchange replayed to the model as conversation context.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// Completer produces a model response for a message, optionally continuing
// from prior turns (oldest first).
type Completer interface {
	Complete(ctx context.Context, message string, history []Turn) (string, error)
}

// Config contains generative backend configuration.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// New returns an OpenAI-backed completer when an API key is configured, and
// the canned dummy completer otherwise, so the service stays usable in
// development without credentials.
func New(cfg Config, logger *zap.Logger) Completer {
	if cfg.APIKey == "" {
		logger.Info("no upstream API key configured, using dummy completer")
		return &DummyCompleter{}
	}
	return NewOpenAICompleter(cfg, logger)
}

// DummyCompleter answers with canned responses and never leaves the process.
type DummyCompleter struct{}

// Complete returns a canned answer keyed on the message content.
func (d *DummyCompleter) Complete(_ context.Context, message string, _ []Turn) (string, error) {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "안녕") || strings.Contains(lower, "hello"):
		return "안녕하세요! 저는 AI 챗봇입니다. 무엇을 도와드릴까요?", nil
	case strings.Contains(lower, "날씨"):
		return "죄송하지만 실시간 날씨 정보는 제공하지 못합니다.", nil
	default:
		return "현재 테스트 모드로 동작 중입니다. API 키를 설정하면 실제 응답을 받을 수 있습니다.", nil
	}
}

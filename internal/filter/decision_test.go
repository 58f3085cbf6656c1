package filter

import (
	"testing"

	"go.uber.org/zap"
)

func newTestEngine() *Engine {
	return NewEngine([]string{"해킹", "크랙", "불법"}, zap.NewNop())
}

func TestEvaluateClean(t *testing.T) {
	engine := newTestEngine()

	in := "오늘 점심 뭐 먹을까"
	d := engine.Evaluate(in)
	if d.Blocked {
		t.Error("clean message blocked")
	}
	if d.MaskedText != in {
		t.Errorf("clean message altered: %q", d.MaskedText)
	}
	if len(d.PIIMatches) != 0 || len(d.KeywordMatches) != 0 {
		t.Errorf("clean message produced matches: %+v", d)
	}
}

func TestEvaluateMasksPII(t *testing.T) {
	engine := newTestEngine()

	d := engine.Evaluate("내 번호는 010-1234-5678 이야")
	if d.Blocked {
		t.Error("PII-only message must not be blocked")
	}
	if d.MaskedText != "내 번호는 010-****-**** 이야" {
		t.Errorf("masked = %q", d.MaskedText)
	}
	if len(d.PIIMatches) != 1 {
		t.Errorf("expected 1 PII match, got %d", len(d.PIIMatches))
	}
}

func TestEvaluateBlockedSkipsMasking(t *testing.T) {
	engine := newTestEngine()

	// Keyword plus PII in the same message: blocklist takes absolute
	// priority and masking never runs.
	d := engine.Evaluate("해킹한 번호 010-1234-5678 좀 봐줘")
	if !d.Blocked {
		t.Fatal("message with blocklist term not blocked")
	}
	if d.MaskedText != "" {
		t.Errorf("blocked decision carries masked text: %q", d.MaskedText)
	}
	if len(d.PIIMatches) != 0 {
		t.Errorf("blocked decision carries PII matches: %v", d.PIIMatches)
	}
	if len(d.KeywordMatches) != 1 || d.KeywordMatches[0].Term != "해킹" {
		t.Errorf("keyword matches = %v", d.KeywordMatches)
	}
}

func TestEvaluateConcurrent(t *testing.T) {
	engine := newTestEngine()

	// The engine holds no mutable state; hammer it from many goroutines.
	done := make(chan bool)
	for i := 0; i < 16; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				d := engine.Evaluate("메일은 test@example.com 입니다")
				if d.Blocked || d.MaskedText != "메일은 ***@***.*** 입니다" {
					t.Errorf("unexpected decision: %+v", d)
				}
			}
			done <- true
		}()
	}
	for i := 0; i < 16; i++ {
		<-done
	}
}

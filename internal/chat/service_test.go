package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/yourusername/chatguard/internal/audit"
	"github.com/yourusername/chatguard/internal/filter"
	"github.com/yourusername/chatguard/internal/logger"
	"github.com/yourusername/chatguard/internal/upstream"
)

// recordingCompleter captures what actually reaches the upstream boundary.
type recordingCompleter struct {
	calls    int
	lastMsg  string
	lastHist []upstream.Turn
	answer   string
	err      error
}

func (c *recordingCompleter) Complete(_ context.Context, message string, history []upstream.Turn) (string, error) {
	c.calls++
	c.lastMsg = message
	c.lastHist = history
	if c.err != nil {
		return "", c.err
	}
	return c.answer, nil
}

// failingStore fails every append but delegates reads.
type failingStore struct {
	*audit.MemoryStore
	appendCalls int
}

func (s *failingStore) Append(_ context.Context, _ *audit.Entry) (int64, error) {
	s.appendCalls++
	return 0, errors.New("storage unavailable")
}

func nopLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

func newTestService(store audit.Store, completer upstream.Completer) *Service {
	engine := filter.NewEngine([]string{"해킹", "크랙"}, zap.NewNop())
	return NewService(engine, store, nil, completer, 2000, nopLogger())
}

func TestChatBlockedMessage(t *testing.T) {
	store := audit.NewMemoryStore()
	completer := &recordingCompleter{answer: "should never be used"}
	svc := newTestService(store, completer)

	resp, err := svc.Chat(context.Background(), Request{UserID: "u1", Message: "해킹 방법 알려줘"})
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if !resp.Filtered {
		t.Error("blocked message not marked filtered")
	}
	if resp.Response != RefusalText {
		t.Errorf("response = %q, want refusal text", resp.Response)
	}
	if completer.calls != 0 {
		t.Error("upstream called for a blocked message")
	}

	entries, _ := store.ListByUser(context.Background(), "u1", 10)
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	if !entries[0].Filtered {
		t.Error("audit entry not marked filtered")
	}
	if entries[0].Response != RefusalText {
		t.Errorf("audit response = %q, want refusal text", entries[0].Response)
	}
}

func TestChatMasksBeforeUpstreamAndStorage(t *testing.T) {
	store := audit.NewMemoryStore()
	completer := &recordingCompleter{answer: "알겠습니다"}
	svc := newTestService(store, completer)

	resp, err := svc.Chat(context.Background(), Request{
		UserID:  "u1",
		Message: "내 번호는 010-1234-5678 이야",
	})
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if resp.Filtered {
		t.Error("PII-only message marked filtered")
	}
	if resp.LogID <= 0 {
		t.Errorf("log id = %d, want positive", resp.LogID)
	}

	// The raw number must not reach the upstream call nor the stored entry.
	if strings.Contains(completer.lastMsg, "1234-5678") {
		t.Errorf("unmasked PII sent upstream: %q", completer.lastMsg)
	}
	if completer.lastMsg != "내 번호는 010-****-**** 이야" {
		t.Errorf("upstream message = %q", completer.lastMsg)
	}

	entries, _ := store.ListByUser(context.Background(), "u1", 10)
	if strings.Contains(entries[0].Message, "1234-5678") {
		t.Errorf("unmasked PII persisted: %q", entries[0].Message)
	}
}

func TestChatValidation(t *testing.T) {
	svc := newTestService(audit.NewMemoryStore(), &recordingCompleter{})

	cases := []struct {
		name string
		req  Request
		want error
	}{
		{"EmptyMessage", Request{UserID: "u1", Message: ""}, ErrEmptyMessage},
		{"TooLong", Request{UserID: "u1", Message: strings.Repeat("가", 2001)}, ErrMessageTooLong},
		{"EmptyUser", Request{UserID: "", Message: "hi"}, ErrInvalidUserID},
		{"LongUser", Request{UserID: strings.Repeat("u", 51), Message: "hi"}, ErrInvalidUserID},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Chat(context.Background(), tc.req)
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestChatUpstreamFailure(t *testing.T) {
	store := audit.NewMemoryStore()
	completer := &recordingCompleter{err: errors.New("model down")}
	svc := newTestService(store, completer)

	resp, err := svc.Chat(context.Background(), Request{UserID: "u1", Message: "안녕"})
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if resp.Response != ApologyText {
		t.Errorf("response = %q, want apology text", resp.Response)
	}
	if resp.Filtered {
		t.Error("upstream failure marked as filtered")
	}

	// The turn is still logged, with the apology as the response.
	entries, _ := store.ListByUser(context.Background(), "u1", 10)
	if len(entries) != 1 || entries[0].Response != ApologyText {
		t.Errorf("audit entries = %+v", entries)
	}
}

func TestChatAppendFailureDegrades(t *testing.T) {
	store := &failingStore{MemoryStore: audit.NewMemoryStore()}
	completer := &recordingCompleter{answer: "네"}
	svc := newTestService(store, completer)

	resp, err := svc.Chat(context.Background(), Request{UserID: "u1", Message: "안녕"})
	if err != nil {
		t.Fatalf("append failure must not fail the request: %v", err)
	}
	if resp.LogID != NoLogID {
		t.Errorf("log id = %d, want %d", resp.LogID, NoLogID)
	}
	if resp.Response != "네" {
		t.Errorf("response = %q, want the computed answer", resp.Response)
	}
	if store.appendCalls != 2 {
		t.Errorf("append attempts = %d, want exactly one retry", store.appendCalls)
	}
}

func TestChatConversationContext(t *testing.T) {
	store := audit.NewMemoryStore()
	ctx := context.Background()
	store.Append(ctx, &audit.Entry{UserID: "u1", Message: "첫 질문", Response: "첫 답변"})
	store.Append(ctx, &audit.Entry{UserID: "u1", Message: "둘째 질문", Response: "둘째 답변"})

	completer := &recordingCompleter{answer: "셋째 답변"}
	svc := newTestService(store, completer)

	_, err := svc.Chat(ctx, Request{UserID: "u1", Message: "셋째 질문", UseContext: true, ContextLimit: 10})
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}

	if len(completer.lastHist) != 4 {
		t.Fatalf("history length = %d, want 4", len(completer.lastHist))
	}
	// Oldest first, alternating user/assistant.
	if completer.lastHist[0].Content != "첫 질문" || completer.lastHist[0].Role != "user" {
		t.Errorf("first turn = %+v", completer.lastHist[0])
	}
	if completer.lastHist[3].Content != "둘째 답변" || completer.lastHist[3].Role != "assistant" {
		t.Errorf("last turn = %+v", completer.lastHist[3])
	}
}

func TestChatWithoutContext(t *testing.T) {
	store := audit.NewMemoryStore()
	ctx := context.Background()
	store.Append(ctx, &audit.Entry{UserID: "u1", Message: "이전", Response: "답변"})

	completer := &recordingCompleter{answer: "응답"}
	svc := newTestService(store, completer)

	svc.Chat(ctx, Request{UserID: "u1", Message: "새 질문", UseContext: false})
	if len(completer.lastHist) != 0 {
		t.Errorf("context passed despite UseContext=false: %+v", completer.lastHist)
	}
}

func TestDeleteThenHistory(t *testing.T) {
	store := audit.NewMemoryStore()
	ctx := context.Background()
	svc := newTestService(store, &recordingCompleter{answer: "ok"})

	resp, _ := svc.Chat(ctx, Request{UserID: "u1", Message: "기록 남기기"})
	id := resp.LogID

	deleted, err := svc.Delete(ctx, id)
	if err != nil || !deleted {
		t.Fatalf("delete = (%v, %v), want (true, nil)", deleted, err)
	}

	entries, _ := svc.History(ctx, "u1", 10)
	for _, e := range entries {
		if e.ID == id {
			t.Errorf("deleted id %d still in history", id)
		}
	}

	deleted, _ = svc.Delete(ctx, id)
	if deleted {
		t.Error("second delete of same id reported true")
	}
}

func TestSetEngineHotReload(t *testing.T) {
	store := audit.NewMemoryStore()
	completer := &recordingCompleter{answer: "ok"}
	svc := newTestService(store, completer)

	ctx := context.Background()
	resp, _ := svc.Chat(ctx, Request{UserID: "u1", Message: "신규금지어 포함"})
	if resp.Filtered {
		t.Fatal("term blocked before reload")
	}

	svc.SetEngine(filter.NewEngine([]string{"신규금지어"}, zap.NewNop()))
	resp, _ = svc.Chat(ctx, Request{UserID: "u1", Message: "신규금지어 포함"})
	if !resp.Filtered {
		t.Error("term not blocked after engine swap")
	}
}

// Package chat orchestrates one chat turn: validation, the content-safety
// decision, the upstream model call and the audit log append.
package chat

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/yourusername/chatguard/internal/audit"
	"github.com/yourusername/chatguard/internal/filter"
	"github.com/yourusername/chatguard/internal/history"
	"github.com/yourusername/chatguard/internal/logger"
	"github.com/yourusername/chatguard/internal/upstream"
)

const (
	// RefusalText is the constant answer for blocked messages. It is fixed
	// regardless of message content so callers can tell it apart from model
	// output.
	RefusalText = "보안 정책상 해당 요청은 처리할 수 없습니다."

	// ApologyText is the constant answer when the upstream model fails.
	ApologyText = "죄송합니다. 일시적인 오류가 발생했습니다. 잠시 후 다시 시도해주세요."

	// NoLogID marks a response whose audit append failed after retry.
	NoLogID = -1

	DefaultContextLimit = 10
	MaxContextLimit     = 50
	MaxUserIDLength     = 50
)

// Validation errors, surfaced to the caller as request errors before any
// filtering or logging happens.
var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message exceeds maximum length")
	ErrInvalidUserID  = errors.New("user id must be 1-50 characters")
)

// Request is one chat turn from a caller.
type Request struct {
	UserID       string
	Message      string
	UseContext   bool
	ContextLimit int
}

// Response is the outcome of one chat turn. Decision is the raw filter
// outcome for observers (event broadcasting); it is not part of the wire
// response.
type Response struct {
	Response  string
	Filtered  bool
	LogID     int64
	Timestamp time.Time
	Decision  filter.Decision
}

// Service wires the filter engine, audit store, context cache and upstream
// completer together. The engine pointer is swappable so blocklist changes
// hot-reload without a restart; everything else is fixed at construction.
type Service struct {
	mu        sync.RWMutex
	engine    *filter.Engine
	store     audit.Store
	cache     *history.Cache
	completer upstream.Completer
	maxLength int
	logger    *logger.Logger
}

// NewService creates the chat orchestrator.
func NewService(engine *filter.Engine, store audit.Store, cache *history.Cache, completer upstream.Completer, maxMessageLength int, log *logger.Logger) *Service {
	return &Service{
		engine:    engine,
		store:     store,
		cache:     cache,
		completer: completer,
		maxLength: maxMessageLength,
		logger:    log,
	}
}

// SetEngine swaps the filter engine. In-flight requests keep the engine they
// started with.
func (s *Service) SetEngine(engine *filter.Engine) {
	s.mu.Lock()
	s.engine = engine
	s.mu.Unlock()
	s.logger.Info("filter engine replaced",
		zap.Int("blocklist_terms", len(engine.BlockedTerms())),
	)
}

func (s *Service) currentEngine() *filter.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// Chat runs one turn end to end. The audit append is deliberately the last
// step: if it fails even after one retry, the already-computed response is
// still returned, with LogID set to NoLogID.
func (s *Service) Chat(ctx context.Context, req Request) (*Response, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	log := s.logger.WithUser(req.UserID)
	decision := s.currentEngine().Evaluate(req.Message)

	var responseText, storedMessage string
	if decision.Blocked {
		// Blocked messages are answered with the fixed refusal and never
		// reach the upstream model. The raw text is stored: nothing left
		// the system, and auditors need to see what was attempted.
		responseText = RefusalText
		storedMessage = req.Message
		terms := make([]string, 0, len(decision.KeywordMatches))
		for _, m := range decision.KeywordMatches {
			terms = append(terms, m.Term)
		}
		log.Info("message blocked",
			zap.Strings("terms", terms),
		)
	} else {
		storedMessage = decision.MaskedText
		if len(decision.PIIMatches) > 0 {
			log.Info("PII masked before upstream call",
				zap.Int("pii_count", len(decision.PIIMatches)),
			)
		}

		var turns []upstream.Turn
		if req.UseContext {
			turns = s.loadContext(ctx, req.UserID, req.ContextLimit)
		}

		answer, err := s.completer.Complete(ctx, decision.MaskedText, turns)
		if err != nil {
			// The upstream failure path carries no generated content, so
			// the filter is not re-invoked.
			log.Error("upstream model failed, substituting apology", zap.Error(err))
			responseText = ApologyText
		} else {
			responseText = answer
		}
	}

	entry := &audit.Entry{
		UserID:   req.UserID,
		Message:  storedMessage,
		Response: responseText,
		Filtered: decision.Blocked,
	}
	logID := s.appendWithRetry(ctx, entry, log)
	if logID != NoLogID {
		s.cache.Invalidate(ctx, req.UserID)
	}

	timestamp := entry.CreatedAt
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	return &Response{
		Response:  responseText,
		Filtered:  decision.Blocked,
		LogID:     logID,
		Timestamp: timestamp.UTC(),
		Decision:  decision,
	}, nil
}

func (s *Service) validate(req Request) error {
	if req.UserID == "" || utf8.RuneCountInString(req.UserID) > MaxUserIDLength {
		return ErrInvalidUserID
	}
	if req.Message == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(req.Message) > s.maxLength {
		return ErrMessageTooLong
	}
	return nil
}

// loadContext fetches the user's recent turns oldest-first, through the
// cache when one is configured. Context loading is best effort: a storage
// error degrades to an empty context, never a failed request.
func (s *Service) loadContext(ctx context.Context, userID string, limit int) []upstream.Turn {
	if limit <= 0 {
		limit = DefaultContextLimit
	}
	if limit > MaxContextLimit {
		limit = MaxContextLimit
	}

	if turns, ok := s.cache.Get(ctx, userID, limit); ok {
		return turns
	}

	entries, err := s.store.ListByUser(ctx, userID, limit)
	if err != nil {
		s.logger.WithUser(userID).Warn("failed to load conversation context", zap.Error(err))
		return nil
	}

	// Entries arrive newest-first; the model wants them in chronological
	// order.
	turns := make([]upstream.Turn, 0, len(entries)*2)
	for i := len(entries) - 1; i >= 0; i-- {
		turns = append(turns,
			upstream.Turn{Role: "user", Content: entries[i].Message},
			upstream.Turn{Role: "assistant", Content: entries[i].Response},
		)
	}

	s.cache.Set(ctx, userID, limit, turns)
	return turns
}

// appendWithRetry appends the audit entry, retrying once before degrading
// to NoLogID.
func (s *Service) appendWithRetry(ctx context.Context, entry *audit.Entry, log *logger.Logger) int64 {
	id, err := s.store.Append(ctx, entry)
	if err == nil {
		return id
	}
	log.Warn("audit append failed, retrying once", zap.Error(err))

	id, err = s.store.Append(ctx, entry)
	if err == nil {
		return id
	}
	log.Error("audit append failed after retry, degrading response", zap.Error(err))
	return NoLogID
}

// History returns the user's audit entries newest-first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = DefaultContextLimit
	}
	return s.store.ListByUser(ctx, userID, limit)
}

// Delete removes one audit entry by id. Deleting an absent id returns false
// without error.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	return s.store.DeleteByID(ctx, id)
}

package events

import (
	"time"

	"github.com/yourusername/chatguard/internal/filter"
)

// Type identifies a hub event.
type Type string

const (
	// TypeDecision is emitted for every filter decision.
	TypeDecision Type = "filter_decision"
	// TypeConnection is emitted when observers connect or disconnect.
	TypeConnection Type = "connection"
)

// Event is one message pushed to connected observers.
type Event struct {
	Type      Type        `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
	Data      interface{} `json:"data"`
}

// DecisionEvent describes one filter decision. It carries kinds and terms,
// never message text: observers see what was found, not what was said.
type DecisionEvent struct {
	RequestID    string           `json:"request_id"`
	UserID       string           `json:"user_id"`
	Blocked      bool             `json:"blocked"`
	PIIKinds     []filter.PIIKind `json:"pii_kinds"`
	BlockedTerms []string         `json:"blocked_terms,omitempty"`
	LogID        int64            `json:"log_id"`
}

// ConnectionEvent describes an observer connecting or disconnecting.
type ConnectionEvent struct {
	Action   string `json:"action"` // "connected" or "disconnected"
	ClientID string `json:"client_id"`
}

// ClientMessage is a message received from an observer.
type ClientMessage struct {
	Type   string `json:"type"`
	Events []Type `json:"events,omitempty"`
}

// NewDecisionEvent builds a DecisionEvent from a filter decision.
func NewDecisionEvent(requestID, userID string, decision filter.Decision, logID int64) Event {
	kinds := make([]filter.PIIKind, 0, len(decision.PIIMatches))
	for _, m := range decision.PIIMatches {
		kinds = append(kinds, m.Kind)
	}
	terms := make([]string, 0, len(decision.KeywordMatches))
	for _, m := range decision.KeywordMatches {
		terms = append(terms, m.Term)
	}
	return Event{
		Type:      TypeDecision,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
		Data: DecisionEvent{
			RequestID:    requestID,
			UserID:       userID,
			Blocked:      decision.Blocked,
			PIIKinds:     kinds,
			BlockedTerms: terms,
			LogID:        logID,
		},
	}
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/yourusername/chatguard/internal/chat"
	"github.com/yourusername/chatguard/internal/events"
)

type chatRequest struct {
	UserID       string `json:"user_id"`
	Message      string `json:"message"`
	UseContext   *bool  `json:"use_context,omitempty"`
	ContextLimit int    `json:"context_limit,omitempty"`
}

type chatResponse struct {
	Response  string `json:"response"`
	Filtered  bool   `json:"filtered"`
	LogID     int64  `json:"log_id"`
	Timestamp string `json:"timestamp"`
}

type historyEntry struct {
	ID        int64  `json:"id"`
	Message   string `json:"message"`
	Response  string `json:"response"`
	Filtered  bool   `json:"filtered"`
	CreatedAt string `json:"created_at"`
}

type historyResponse struct {
	UserID     string         `json:"user_id"`
	TotalCount int            `json:"total_count"`
	Logs       []historyEntry `json:"logs"`
}

type deleteResponse struct {
	Deleted bool  `json:"deleted"`
	ID      int64 `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleChat runs one chat turn.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r.Context())
	log := s.logger.WithRequestID(requestID)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	// Context replay defaults to on, matching the documented request shape.
	useContext := true
	if req.UseContext != nil {
		useContext = *req.UseContext
	}

	resp, err := s.chat.Chat(r.Context(), chat.Request{
		UserID:       req.UserID,
		Message:      req.Message,
		UseContext:   useContext,
		ContextLimit: req.ContextLimit,
	})
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyMessage),
			errors.Is(err, chat.ErrMessageTooLong),
			errors.Is(err, chat.ErrInvalidUserID):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		default:
			log.Error("chat request failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		}
		return
	}

	if s.hub != nil {
		s.hub.Broadcast(events.NewDecisionEvent(requestID, req.UserID, resp.Decision, resp.LogID))
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:  resp.Response,
		Filtered:  resp.Filtered,
		LogID:     resp.LogID,
		Timestamp: resp.Timestamp.UTC().Format(time.RFC3339),
	})
}

// handleHistory returns a user's chat log, newest-first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	limit := chat.DefaultContextLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		limit = parsed
	}

	entries, err := s.chat.History(r.Context(), userID, limit)
	if err != nil {
		s.logger.Error("history query failed", zap.Error(err), zap.String("user_id", userID))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to query history"})
		return
	}

	logs := make([]historyEntry, 0, len(entries))
	for _, e := range entries {
		logs = append(logs, historyEntry{
			ID:        e.ID,
			Message:   e.Message,
			Response:  e.Response,
			Filtered:  e.Filtered,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, historyResponse{
		UserID:     userID,
		TotalCount: len(logs),
		Logs:       logs,
	})
}

// handleDelete removes one log entry by id. Deleting an absent id is not an
// error; the response says whether anything was removed.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid log id"})
		return
	}

	deleted, err := s.chat.Delete(r.Context(), id)
	if err != nil {
		s.logger.Error("delete failed", zap.Error(err), zap.Int64("id", id))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to delete log"})
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{Deleted: deleted, ID: id})
}

func (s *Server) handlePreflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

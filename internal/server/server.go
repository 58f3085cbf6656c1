// Package server exposes the chat boundary over HTTP: one endpoint per
// operation in the orchestrator plus health, info and the live event feed.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/yourusername/chatguard/internal/chat"
	"github.com/yourusername/chatguard/internal/config"
	"github.com/yourusername/chatguard/internal/events"
	"github.com/yourusername/chatguard/internal/logger"
)

// Server is the HTTP boundary of the service.
type Server struct {
	config *config.Config
	logger *logger.Logger
	chat   *chat.Service
	hub    *events.Hub
	router *mux.Router
	server *http.Server
}

// New creates the HTTP server around an assembled chat service.
func New(cfg *config.Config, chatSvc *chat.Service, hub *events.Hub, log *logger.Logger) *Server {
	s := &Server{
		config: cfg,
		logger: log.WithComponent("server"),
		chat:   chatSvc,
		hub:    hub,
		router: mux.NewRouter(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.corsMiddleware)
	api.Use(s.loggingMiddleware)
	api.HandleFunc("/chat", s.handleChat).Methods("POST")
	api.HandleFunc("/chat/history/{user_id}", s.handleHistory).Methods("GET")
	api.HandleFunc("/chat/logs/{id}", s.handleDelete).Methods("DELETE")
	api.PathPrefix("/").HandlerFunc(s.handlePreflight).Methods("OPTIONS")

	if s.config.Events.Enabled && s.hub != nil {
		s.router.HandleFunc(s.config.Events.Path, s.hub.HandleWebSocket).Methods("GET")
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting",
		zap.Int("port", s.config.Server.Port),
		zap.Strings("allowed_origins", s.config.Server.AllowedOrigins),
	)
	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP server stopping")
	return s.server.Shutdown(ctx)
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339))
}

// handleInfo handles info requests.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"name":"chatguard","version":%q,"max_message_length":%d,"blocklist_terms":%d,"events_enabled":%t}`,
		Version,
		s.config.Filter.MaxMessageLength,
		len(s.config.Filter.Blocklist),
		s.config.Events.Enabled,
	)
}

// Version is stamped by the build; cmd/chatguard overrides it.
var Version = "dev"

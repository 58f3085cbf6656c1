package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/chatguard/internal/audit"
	"github.com/yourusername/chatguard/internal/chat"
	"github.com/yourusername/chatguard/internal/config"
	"github.com/yourusername/chatguard/internal/events"
	"github.com/yourusername/chatguard/internal/filter"
	"github.com/yourusername/chatguard/internal/history"
	"github.com/yourusername/chatguard/internal/logger"
	"github.com/yourusername/chatguard/internal/server"
	"github.com/yourusername/chatguard/internal/upstream"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("chatguard %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	if *healthCheck {
		performHealthCheck()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: true,
			Path:    cfg.Logging.File.Path,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	server.Version = version
	log.Info("Starting chatguard",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.Int("port", cfg.Server.Port),
	)

	// Audit log store: Postgres when configured, in-memory otherwise.
	var store audit.Store
	if cfg.Database.DatabaseURL != "" {
		store, err = audit.NewPostgresStore(&audit.Config{
			DatabaseURL:     cfg.Database.DatabaseURL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		}, log.WithComponent("audit").Logger)
		if err != nil {
			log.Fatal("Failed to connect audit log store", zap.Error(err))
		}
	} else {
		log.Warn("No database_url configured, audit log is in-memory and volatile")
		store = audit.NewMemoryStore()
	}
	defer store.Close()

	// Optional conversation-context cache.
	var cache *history.Cache
	if cfg.Cache.Enabled {
		cache, err = history.NewCache(&history.Config{
			RedisURL: cfg.Cache.RedisURL,
			TTL:      cfg.Cache.TTL,
		}, log.WithComponent("cache").Logger)
		if err != nil {
			log.Fatal("Failed to connect context cache", zap.Error(err))
		}
		defer cache.Close()
	}

	completer := upstream.New(upstream.Config{
		APIKey:      cfg.Upstream.APIKey,
		BaseURL:     cfg.Upstream.BaseURL,
		Model:       cfg.Upstream.Model,
		MaxTokens:   cfg.Upstream.MaxTokens,
		Temperature: cfg.Upstream.Temperature,
		Timeout:     cfg.Upstream.Timeout,
	}, log.WithComponent("upstream").Logger)

	engine := filter.NewEngine(cfg.Filter.Blocklist, log.WithComponent("filter").Logger)
	chatSvc := chat.NewService(engine, store, cache, completer, cfg.Filter.MaxMessageLength, log.WithComponent("chat"))

	var hub *events.Hub
	if cfg.Events.Enabled {
		hub = events.NewHub(&events.HubConfig{
			BroadcastDecisions:   cfg.Events.BroadcastDecisions,
			BroadcastConnections: cfg.Events.BroadcastConnections,
		}, log.WithComponent("events").Logger)
		go hub.Run()
	}

	// Blocklist changes hot-reload without a restart.
	if err := config.Watch(func(newCfg *config.Config) {
		chatSvc.SetEngine(filter.NewEngine(newCfg.Filter.Blocklist, log.WithComponent("filter").Logger))
	}); err != nil {
		log.Warn("Config watch unavailable", zap.Error(err))
	}

	srv := server.New(cfg, chatSvc, hub, log)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Error("Server error", zap.Error(err))
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
			os.Exit(1)
		}

		log.Info("Server shutdown complete")
	}
}

// performHealthCheck performs a health check against the running server.
func performHealthCheck() {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get("http://localhost:8080/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}

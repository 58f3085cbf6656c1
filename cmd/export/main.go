package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/yourusername/chatguard/internal/audit"
	"github.com/yourusername/chatguard/internal/config"
	"github.com/yourusername/chatguard/internal/export"
	"github.com/yourusername/chatguard/internal/logger"
)

func main() {
	var (
		configPath = flag.String("config", "", "Configuration file path")
		userID     = flag.String("user", "", "User id to export")
		limit      = flag.Int("limit", 1000, "Maximum number of entries to export")
		output     = flag.String("output", "audit_export.parquet", "Output Parquet file")
	)
	flag.Parse()

	if *userID == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s --user <user_id> [options]\n\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --user alice --output alice.parquet\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --user alice --limit 100\n", os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.Database.DatabaseURL == "" {
		log.Fatal("Export requires a configured database_url")
	}

	store, err := audit.NewPostgresStore(&audit.Config{
		DatabaseURL:     cfg.Database.DatabaseURL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, log.WithComponent("audit").Logger)
	if err != nil {
		log.Fatal("Failed to connect audit log store", zap.Error(err))
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling export")
		cancel()
	}()

	exporter := export.NewExporter(store, log.WithComponent("export").Logger)
	n, err := exporter.ExportUser(ctx, *userID, *limit, *output)
	if err != nil {
		log.Fatal("Export failed", zap.Error(err))
	}

	log.Info("Export completed",
		zap.Int("rows", n),
		zap.String("output", *output),
	)
}

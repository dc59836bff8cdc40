package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bankops/retail-analytics/internal/adapters/clickhouse"
	"github.com/bankops/retail-analytics/internal/adapters/config"
	"github.com/bankops/retail-analytics/internal/adapters/database"
	"github.com/bankops/retail-analytics/internal/artifacts"
	"github.com/bankops/retail-analytics/internal/server"
	"github.com/bankops/retail-analytics/internal/service"
	"github.com/bankops/retail-analytics/internal/storage"
	"github.com/bankops/retail-analytics/pkg/logger"
	"github.com/bankops/retail-analytics/pkg/models"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("retail analytics service starting")

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.RunMigrations(db.Conn(), cfg.Database.MigrationsPath); err != nil {
		return err
	}

	// Load the active artifact pair once; scoring shares it read-only
	holder := artifacts.NewHolder()
	store := artifacts.NewStore(cfg.Artifacts.Dir)
	pair, err := store.Load()
	switch {
	case err == nil:
		holder.Swap(pair)
		logger.Info("model artifacts loaded",
			zap.Float64("auc", pair.AUC),
			zap.Time("trained_at", pair.TrainedAt),
		)
	case errors.Is(err, models.ErrArtifactMissing):
		logger.Warn("no trained model artifacts found; risk scoring is unavailable until training runs")
	default:
		return fmt.Errorf("failed to load model artifacts: %w", err)
	}

	repo := storage.NewRepository(db.DB())

	var history service.HistoryWriter
	if cfg.ClickHouse.Enabled {
		chDB, err := database.NewClickHouse(&cfg.ClickHouse)
		if err != nil {
			logger.Warn("clickhouse unavailable, run history disabled", zap.Error(err))
		} else {
			defer chDB.Close()
			history = clickhouse.NewHistoryWriter(chDB.DB())
			logger.Info("✅ run history sink enabled")
		}
	}

	svc := service.New(repo, holder, repo, history, logger.Log)
	srv := server.New(cfg.Server.Port, svc, db)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

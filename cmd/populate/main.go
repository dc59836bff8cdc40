package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/bankops/retail-analytics/internal/adapters/config"
	"github.com/bankops/retail-analytics/internal/adapters/database"
	"github.com/bankops/retail-analytics/internal/features"
	"github.com/bankops/retail-analytics/internal/segmentation"
	"github.com/bankops/retail-analytics/internal/storage"
	"github.com/bankops/retail-analytics/pkg/logger"
)

// Populates the cluster column in the customers table using the
// segmentation engine. Unlike the query path, a write failure here is an
// error: persisting clusters is the whole point of the command.
func main() {
	k := flag.Int("k", segmentation.DefaultK, "Number of clusters")
	flag.Parse()

	if err := run(context.Background(), *k); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, k int) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, ""); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := storage.NewRepository(db.DB())

	customers, err := repo.Customers(ctx)
	if err != nil {
		return err
	}
	savings, err := repo.SavingsAccounts(ctx)
	if err != nil {
		return err
	}
	cards, err := repo.CardActivity(ctx)
	if err != nil {
		return err
	}

	rows, err := features.NewAggregator().CustomerTable(customers, savings, cards)
	if err != nil {
		return fmt.Errorf("failed to build customer feature table: %w", err)
	}

	result, err := segmentation.NewEngine().Segment(rows, k)
	if err != nil {
		return fmt.Errorf("segmentation failed: %w", err)
	}

	if err := repo.UpdateClusters(ctx, result.Assignments); err != nil {
		return fmt.Errorf("failed to persist clusters: %w", err)
	}

	logger.Info("clusters populated",
		zap.Int("customers", len(result.Assignments)),
		zap.Int("k", result.K),
	)
	return nil
}

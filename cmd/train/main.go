package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/bankops/retail-analytics/internal/adapters/config"
	"github.com/bankops/retail-analytics/internal/adapters/database"
	"github.com/bankops/retail-analytics/internal/adapters/telegram"
	"github.com/bankops/retail-analytics/internal/artifacts"
	"github.com/bankops/retail-analytics/internal/features"
	"github.com/bankops/retail-analytics/internal/risk"
	"github.com/bankops/retail-analytics/internal/storage"
	"github.com/bankops/retail-analytics/pkg/logger"
)

func main() {
	var (
		artifactsDir = flag.String("artifacts", "", "Artifacts directory (overrides ARTIFACTS_DIR)")
		notify       = flag.Bool("notify", true, "Send training report via Telegram when configured")
	)
	flag.Parse()

	if err := run(context.Background(), *artifactsDir, *notify); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, artifactsDir string, notify bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if artifactsDir == "" {
		artifactsDir = cfg.Artifacts.Dir
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

	loans, err := repo.Loans(ctx)
	if err != nil {
		return err
	}
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

	rows, err := features.NewAggregator().LoanTable(loans, customers, savings, cards)
	if err != nil {
		return fmt.Errorf("failed to build loan feature table: %w", err)
	}

	logger.Info("training loan risk model", zap.Int("loans", len(rows)))

	pair, err := risk.NewTrainer().Train(rows)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	// No automatic gate: the AUC is reported for manual review
	logger.Info("training complete",
		zap.Float64("auc_roc", pair.AUC),
		zap.Int("train_rows", pair.TrainRows),
		zap.Int("test_rows", pair.TestRows),
	)

	if err := artifacts.NewStore(artifactsDir).Save(pair); err != nil {
		return fmt.Errorf("failed to save artifacts: %w", err)
	}
	logger.Info("model and scaler saved", zap.String("dir", artifactsDir))

	if notify && cfg.Telegram.BotToken != "" {
		notifier, err := telegram.NewNotifier(&cfg.Telegram)
		if err != nil {
			logger.Warn("telegram notifier unavailable", zap.Error(err))
			return nil
		}
		if err := notifier.SendTrainingReport(pair); err != nil {
			logger.Warn("failed to send training report", zap.Error(err))
		}
	}

	return nil
}

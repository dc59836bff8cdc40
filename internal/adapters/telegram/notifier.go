package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/bankops/retail-analytics/internal/adapters/config"
	"github.com/bankops/retail-analytics/internal/risk"
	"github.com/bankops/retail-analytics/pkg/logger"
)

// Notifier sends operator notifications via Telegram. Model acceptance is a
// manual review step, so training results go straight to the operator chat.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewNotifier creates a Telegram notifier
func NewNotifier(cfg *config.TelegramConfig) (*Notifier, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	bot.Debug = false

	logger.Info("telegram notifier initialized",
		zap.String("bot_username", bot.Self.UserName),
	)

	return &Notifier{api: bot, chatID: cfg.ChatID}, nil
}

// SendTrainingReport sends the training summary for manual review.
// Nil receivers are safe so callers can wire the notifier unconditionally.
func (n *Notifier) SendTrainingReport(pair *risk.ArtifactPair) error {
	if n == nil {
		return nil
	}

	text := fmt.Sprintf(
		"📊 Loan risk model trained\n\nAUC-ROC: %.3f\nTrain rows: %d\nHoldout rows: %d\nTrained at: %s",
		pair.AUC,
		pair.TrainRows,
		pair.TestRows,
		pair.TrainedAt.Format("2006-01-02 15:04:05 MST"),
	)

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send training report: %w", err)
	}
	return nil
}

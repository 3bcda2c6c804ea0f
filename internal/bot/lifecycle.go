package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Start starts the bot in polling mode and blocks until Stop is called
func (b *Bot) Start() error {
	b.logger.Info("Starting bot in polling mode")

	// Remove webhook (if any was set previously)
	if _, err := b.tg.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		b.logger.Warn("Failed to delete webhook", zap.Error(err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tg.GetUpdatesChan(u)

	b.logger.Info("Bot started successfully. Waiting for updates...")

	for update := range updates {
		b.handleUpdate(update)
	}
	return nil
}

// Stop halts the inbound transport; Start returns once the update channel
// drains
func (b *Bot) Stop() {
	b.tg.StopReceivingUpdates()
}

// API returns the underlying Telegram client, shared with the outbound
// poller
func (b *Bot) API() *tgbotapi.BotAPI {
	return b.tg
}

package bot

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"supportbot/internal/keygen"
	"supportbot/internal/state"
	"supportbot/internal/storage"
)

// NewBot creates a new Telegram support bot
func NewBot(token string, store storage.Storage, cfg Config, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Bot created", zap.String("bot_username", api.Self.UserName))

	delay := cfg.NotifyDelay
	if delay == 0 {
		delay = 500 * time.Millisecond
	}

	return &Bot{
		tg:          api,
		api:         api,
		store:       store,
		sessions:    state.NewSessions(),
		tickets:     state.NewTickets(),
		keys:        keygen.New(keygen.DefaultLength, nil),
		notifier:    NewNotifier(api, cfg.AdminIDs, delay, logger),
		adminChatID: cfg.AdminChatID,
		appURL:      cfg.AppURL,
		channelURL:  cfg.ChannelURL,
		logger:      logger,
	}, nil
}

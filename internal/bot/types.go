package bot

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"supportbot/internal/keygen"
	"supportbot/internal/state"
	"supportbot/internal/storage"
)

// telegramSender is the subset of the Telegram client the routing engine
// uses for outbound traffic. *tgbotapi.BotAPI satisfies it; tests substitute
// a recording fake.
type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Bot represents the Telegram support bot wrapper
type Bot struct {
	tg          *tgbotapi.BotAPI // transport lifecycle; nil in tests
	api         telegramSender
	store       storage.Storage
	sessions    state.SessionStore
	tickets     state.TicketRegistry
	keys        *keygen.Generator
	notifier    *Notifier
	adminChatID int64
	appURL      string
	channelURL  string
	logger      *zap.Logger
}

// Config carries the bot's static settings
type Config struct {
	AdminChatID int64
	AdminIDs    []int64
	AppURL      string
	ChannelURL  string
	NotifyDelay time.Duration
}

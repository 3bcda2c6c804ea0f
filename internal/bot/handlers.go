package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"supportbot/internal/models"
)

// handleUpdate routes a single inbound event
func (b *Bot) handleUpdate(update tgbotapi.Update) {
	if update.Message != nil {
		b.handleMessage(update.Message)
	}
	if update.CallbackQuery != nil {
		b.handleCallbackQuery(update.CallbackQuery)
	}
}

// handleMessage processes a single message
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage", zap.Any("panic", r))
		}
	}()

	if message.From == nil || message.Chat == nil {
		return
	}
	ctx := context.Background()

	// Messages in the admin channel follow the reply-correlation flow
	if message.Chat.ID == b.adminChatID {
		b.handleAdminChatMessage(ctx, message)
		return
	}

	// Everything else is only handled in private chats
	if !message.Chat.IsPrivate() {
		return
	}

	if message.IsCommand() {
		switch message.Command() {
		case "start":
			b.handleStart(ctx, message)
		case "stop":
			b.handleStop(message)
		default:
			b.sendText(message.Chat.ID, "Неизвестная команда. Используйте /start.")
		}
		return
	}

	b.handleUserMessage(ctx, message)
}

// handleUserMessage routes a user's free-text or media message by session
// state
func (b *Bot) handleUserMessage(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID

	session, ok := b.sessions.Get(userID)
	if !ok {
		// No topic selected: the message opens nothing. Unregistered users
		// get pointed at /start, registered ones are ignored until they
		// pick a topic.
		if _, err := b.store.GetUser(ctx, userID); err != nil {
			b.sendText(message.Chat.ID,
				"Для использования поддержки необходимо зарегистрироваться.\nНажмите /start для регистрации.")
		}
		return
	}

	text, mediaType, fileID := extractContent(message)
	if text == "" && mediaType == "" {
		return
	}

	switch session.State {
	case models.StateAwaitingMessage, models.StateActive:
		b.relayUserMessage(ctx, message, session, text, mediaType, fileID)
	}
}

// extractContent pulls the relayable payload out of a message: plain text,
// or a photo/document with its caption
func extractContent(message *tgbotapi.Message) (text, mediaType, fileID string) {
	switch {
	case len(message.Photo) > 0:
		// the last photo size is the largest
		photo := message.Photo[len(message.Photo)-1]
		text = message.Caption
		if text == "" {
			text = "[Фото]"
		}
		return text, models.MediaPhoto, photo.FileID
	case message.Document != nil:
		text = message.Caption
		if text == "" {
			text = "[Файл]"
		}
		return text, models.MediaDocument, message.Document.FileID
	default:
		return message.Text, "", ""
	}
}

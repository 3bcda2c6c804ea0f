package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"supportbot/internal/models"
)

// sendMessage sends a prepared message and logs delivery failures
func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) {
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("Failed to send message",
			zap.Int64("chat_id", msg.ChatID),
			zap.Error(err),
		)
	}
}

// sendText sends a plain text message
func (b *Bot) sendText(chatID int64, text string) {
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

// sendMarkdown sends a Markdown-formatted message, optionally threaded as a
// reply. If the provider rejects the formatting, the text is retried once
// with the formatting stripped.
func (b *Bot) sendMarkdown(chatID int64, text string, replyTo int) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if replyTo != 0 {
		msg.ReplyToMessageID = replyTo
	}

	sent, err := b.api.Send(msg)
	if err == nil || !isEntityParseError(err) {
		return sent, err
	}

	plain := tgbotapi.NewMessage(chatID, stripMarkdown(text))
	if replyTo != 0 {
		plain.ReplyToMessageID = replyTo
	}
	return b.api.Send(plain)
}

// request fires a transport request where the response is not interesting
func (b *Bot) request(c tgbotapi.Chattable) {
	if _, err := b.api.Request(c); err != nil {
		b.logger.Debug("Transport request failed", zap.Error(err))
	}
}

// appendLog writes a record to the support message log; log failures must
// not break the conversation
func (b *Bot) appendLog(ctx context.Context, msg *models.SupportMessage) {
	if err := b.store.Append(ctx, msg); err != nil {
		b.logger.Error("Failed to append support message",
			zap.Int64("chat_id", msg.ChatID),
			zap.Error(err),
		)
	}
}

// fullNameOf joins the user's first and last name
func fullNameOf(from *tgbotapi.User) string {
	name := strings.TrimSpace(from.FirstName + " " + from.LastName)
	if name == "" {
		return "Пользователь"
	}
	return name
}

// usernameOf renders the @-handle the way the directory stores it
func usernameOf(from *tgbotapi.User) string {
	if from.UserName == "" {
		return "null"
	}
	return "@" + from.UserName
}

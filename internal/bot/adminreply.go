package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"supportbot/internal/models"
)

// handleAdminChatMessage processes a message posted in the admin channel.
// Only replies to tracked ticket messages from listed admins matter;
// everything else is internal discussion and is ignored.
func (b *Bot) handleAdminChatMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.ReplyToMessage == nil {
		return
	}

	ticket, ok := b.tickets.Get(message.ReplyToMessage.MessageID)
	if !ok {
		return
	}

	admin, ok := b.lookupAdmin(ctx, message.From.ID)
	if !ok {
		// the sender is not in the admin directory; nothing is delivered
		// and the ticket stays untouched
		return
	}

	text := message.Text
	if text == "" {
		text = "[Вложение]"
	}

	if _, err := b.sendMarkdown(ticket.UserID, "*"+admin.Nickname+":*\n"+escapeMarkdown(text), 0); err != nil {
		b.logger.Error("Failed to deliver admin reply",
			zap.Int64("user_id", ticket.UserID),
			zap.Int("ticket_message_id", ticket.MessageID),
			zap.Error(err),
		)
		return
	}

	ticket.Answered = true
	b.tickets.Put(ticket)

	b.appendLog(ctx, &models.SupportMessage{
		ChatID:    ticket.UserID,
		Sender:    models.SenderAdmin,
		Text:      text,
		Username:  admin.Nickname,
		Topic:     ticket.Topic.Label(),
		Delivered: true,
		CreatedAt: time.Now(),
	})

	// Reflect the new status on the channel message. Edit failures (e.g.
	// the message is too old) are swallowed.
	edit := tgbotapi.NewEditMessageText(b.adminChatID, ticket.MessageID, ticketBody(ticket, admin.Nickname))
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Debug("Failed to edit ticket message",
			zap.Int("ticket_message_id", ticket.MessageID),
			zap.Error(err),
		)
	}
}

// lookupAdmin resolves a sender against the admin directory
func (b *Bot) lookupAdmin(ctx context.Context, senderID int64) (models.Admin, bool) {
	admins, err := b.store.ListAdmins(ctx)
	if err != nil {
		b.logger.Error("Failed to list admins", zap.Error(err))
		return models.Admin{}, false
	}
	for _, admin := range admins {
		if admin.ID == senderID {
			return admin, true
		}
	}
	return models.Admin{}, false
}

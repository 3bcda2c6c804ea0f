package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"supportbot/internal/models"
)

const previewLimit = 100

// relayUserMessage forwards a session message to the admin channel. The
// first message of a session opens the ticket; later ones are threaded onto
// the previous admin-channel message and re-key the ticket to the newest
// message ID.
func (b *Bot) relayUserMessage(ctx context.Context, message *tgbotapi.Message, session *models.Session, text, mediaType, fileID string) {
	fileURL := ""
	if fileID != "" {
		url, err := b.api.GetFileDirectURL(fileID)
		if err != nil {
			b.logger.Warn("Failed to resolve file URL",
				zap.String("file_id", fileID),
				zap.Error(err),
			)
		} else {
			fileURL = url
		}
	}

	if !b.relayToAdminChat(ctx, session, message.From, text, mediaType, fileURL) {
		b.sendText(message.Chat.ID, "Произошла ошибка. Попробуйте позже.")
		return
	}

	b.appendLog(ctx, &models.SupportMessage{
		ChatID:    message.Chat.ID,
		Sender:    models.SenderUser,
		Text:      text,
		Username:  usernameOf(message.From),
		FullName:  fullNameOf(message.From),
		Topic:     b.topicForChat(ctx, message.Chat.ID, session),
		MediaType: mediaType,
		FileID:    fileID,
		FileURL:   fileURL,
		Delivered: true,
		CreatedAt: time.Now(),
	})
}

// relayToAdminChat sends the ticket message to the admin channel, records
// the ticket under the returned message ID and advances the session. It
// also fans the notification out to the individual admins.
func (b *Bot) relayToAdminChat(ctx context.Context, session *models.Session, from *tgbotapi.User, text, mediaType, fileURL string) bool {
	ticket := &models.Ticket{
		UserID:    from.ID,
		Topic:     session.Topic,
		FullName:  fullNameOf(from),
		Username:  usernameOf(from),
		LastText:  text,
		MediaType: mediaType,
	}

	replyTo := 0
	if session.State == models.StateActive {
		replyTo = session.LastMessageID
	}

	sent, err := b.sendMarkdown(b.adminChatID, ticketBody(ticket, ""), replyTo)
	if err != nil {
		b.logger.Error("Failed to relay message to admin chat",
			zap.Int64("user_id", from.ID),
			zap.Error(err),
		)
		return false
	}

	ticket.MessageID = sent.MessageID
	b.tickets.Put(ticket)

	session.State = models.StateActive
	session.LastMessageID = sent.MessageID
	b.sessions.Put(session)

	b.notifier.Broadcast(adminNotification(ticket))
	return true
}

// mediaLine renders the media marker for the admin-facing templates
func mediaLine(mediaType string) string {
	switch mediaType {
	case models.MediaPhoto:
		return "\n📷 Фото"
	case models.MediaDocument:
		return "\n📄 Файл"
	}
	return ""
}

// ticketBody renders the admin-channel message for a ticket. answeredBy is
// empty while the ticket is open.
func ticketBody(t *models.Ticket, answeredBy string) string {
	status := "не отвечено"
	if answeredBy != "" {
		status = "отвечено (" + answeredBy + ")"
	}

	return fmt.Sprintf("*Новое сообщение*\n\n%s\n%s\n%d\n%s%s\n%s\n\nСтатус: %s",
		t.FullName,
		stripMarkdown(t.Username),
		t.UserID,
		t.Topic.Label(),
		mediaLine(t.MediaType),
		truncate(escapeMarkdown(t.LastText), previewLimit),
		status,
	)
}

// adminNotification renders the per-admin notification for a relayed message
func adminNotification(t *models.Ticket) string {
	return fmt.Sprintf("*Новое сообщение*\n\n%s\n%s\n%d\n%s%s\n%s\n%s",
		t.FullName,
		stripMarkdown(t.Username),
		t.UserID,
		t.Topic.Label(),
		mediaLine(t.MediaType),
		truncate(escapeMarkdown(t.LastText), previewLimit),
		time.Now().Format("02.01.2006 15:04:05"),
	)
}

// topicNotification renders the per-admin ping sent when a user picks a
// support topic, before any message arrives
func topicNotification(from *tgbotapi.User, topic models.Topic) string {
	return fmt.Sprintf("*Новое сообщение*\n\n%s\n%s\n%d\n%s\n%s",
		fullNameOf(from),
		stripMarkdown(usernameOf(from)),
		from.ID,
		topic.Label(),
		time.Now().Format("02.01.2006 15:04:05"),
	)
}

// topicForChat resolves the topic label for a log record: the session knows
// it, with the message log as fallback for long-running chats
func (b *Bot) topicForChat(ctx context.Context, chatID int64, session *models.Session) string {
	if session != nil && session.Topic != "" {
		return session.Topic.Label()
	}
	topic, err := b.store.LastTopic(ctx, chatID)
	if err != nil {
		return "Не указана"
	}
	return topic
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"supportbot/internal/models"
)

const (
	callbackSupportRequest  = "support_request"
	callbackTopicPayment    = "support_payment"
	callbackTopicHelper     = "support_helper"
	callbackTopicSuggestion = "support_suggestions"
	callbackTopicOther      = "support_other"
)

// topicByCallback maps callback data to a support topic
func topicByCallback(data string) (models.Topic, bool) {
	switch data {
	case callbackTopicPayment:
		return models.TopicPayment, true
	case callbackTopicHelper:
		return models.TopicHelper, true
	case callbackTopicSuggestion:
		return models.TopicSuggestion, true
	case callbackTopicOther:
		return models.TopicOther, true
	}
	return "", false
}

// handleCallbackQuery processes inline keyboard button presses
func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleCallbackQuery", zap.Any("panic", r))
		}
	}()

	if query.From == nil || query.Message == nil {
		return
	}
	ctx := context.Background()
	chatID := query.Message.Chat.ID

	// Answer the callback query to remove the loading state
	b.request(tgbotapi.NewCallback(query.ID, ""))

	// Remove the menu the button came from; failures are not interesting
	b.request(tgbotapi.NewDeleteMessage(chatID, query.Message.MessageID))

	if topic, ok := topicByCallback(query.Data); ok {
		b.handleTopicSelected(ctx, chatID, query.From, topic)
		return
	}

	switch query.Data {
	case callbackSupportRequest:
		b.showSupportMenu(chatID)
	default:
		b.sendText(chatID, "Неизвестная команда")
		b.showMainMenu(chatID)
	}
}

// handleTopicSelected creates the support session for the chosen topic.
// Pressing a topic button twice simply overwrites the session.
func (b *Bot) handleTopicSelected(ctx context.Context, chatID int64, from *tgbotapi.User, topic models.Topic) {
	session := &models.Session{
		UserID: from.ID,
		Topic:  topic,
		State:  models.StateAwaitingMessage,
	}
	b.sessions.Put(session)

	// Record the choice in the support log and tell the admins
	b.appendLog(ctx, &models.SupportMessage{
		ChatID:    chatID,
		Sender:    models.SenderUser,
		Text:      "Тема: " + topic.Label(),
		Username:  usernameOf(from),
		FullName:  fullNameOf(from),
		Topic:     topic.Label(),
		Delivered: true,
		CreatedAt: time.Now(),
	})
	b.notifier.Broadcast(topicNotification(from, topic))

	if topic == models.TopicPayment {
		// Payment issues are triaged by an admin without upfront detail:
		// open the ticket immediately with a placeholder body
		if !b.relayToAdminChat(ctx, session, from, "—", "", "") {
			b.sendText(chatID, "Произошла ошибка. Попробуйте позже.")
			return
		}
		b.sendMarkdown(chatID,
			"Вы выбрали тему: *"+topic.Label()+"*\n\n"+
				"Администратор свяжется с вами в ближайшее время. "+
				"Для закрытия чата с поддержкой используйте /stop", 0)
		return
	}

	b.sendMarkdown(chatID,
		"Вы выбрали тему: *"+topic.Label()+"*\n\n"+
			"*Опишите вашу проблему или вопрос*\n"+
			"Просто напишите сообщение, и администратор свяжется с вами в ближайшее время. "+
			"Для закрытия чата с поддержкой используйте /stop", 0)
}

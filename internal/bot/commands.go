package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleStart registers the user, resets any live session and shows the
// main menu. This is the only way back to the no-session state besides
// /stop.
func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) {
	if !b.registerUser(ctx, message.From) {
		b.sendText(message.Chat.ID, "Произошла ошибка при регистрации. Попробуйте позже.")
		return
	}

	b.sessions.Delete(message.From.ID)
	b.showMainMenu(message.Chat.ID)
}

// handleStop ends the support conversation from any state
func (b *Bot) handleStop(message *tgbotapi.Message) {
	b.sessions.Delete(message.From.ID)
	b.sendText(message.Chat.ID, "Диалог с поддержкой завершён. Чтобы начать заново, используйте /start.")
}

// showMainMenu presents the top-level menu
func (b *Bot) showMainMenu(chatID int64) {
	var rows [][]tgbotapi.InlineKeyboardButton
	if b.appURL != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Открыть приложение", b.appURL),
		))
	}
	if b.channelURL != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Наш канал", b.channelURL),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Написать в поддержку", callbackSupportRequest),
	))

	msg := tgbotapi.NewMessage(chatID, "*Вас приветствует команда MR*\n\nВыберите действие:")
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.sendMessage(msg)
}

// showSupportMenu presents the topic selection menu
func (b *Bot) showSupportMenu(chatID int64) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Оплата товара", callbackTopicPayment),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Проблема с Helper'ом", callbackTopicHelper),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Предложения по улучшению", callbackTopicSuggestion),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Другое", callbackTopicOther),
		),
	)

	msg := tgbotapi.NewMessage(chatID,
		"*Выберите тему обращения*\n\nПожалуйста, выберите наиболее подходящую категорию для вашего обращения:")
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = keyboard
	b.sendMessage(msg)
}

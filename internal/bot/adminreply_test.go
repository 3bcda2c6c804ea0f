package bot

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportbot/internal/models"
	"supportbot/internal/storage/stubs"
)

// openTicket drives a user through topic selection and a first message,
// returning the admin-channel message ID the ticket is keyed by
func openTicket(t *testing.T, b *Bot, api *fakeSender, text string) int {
	t.Helper()
	b.handleUpdate(tgbotapi.Update{CallbackQuery: callbackQuery(testUser(), callbackTopicHelper)})
	b.handleUpdate(tgbotapi.Update{Message: privateMessage(testUser(), text)})

	session, ok := b.sessions.Get(testUserID)
	require.True(t, ok)
	require.Equal(t, models.StateActive, session.State)
	return session.LastMessageID
}

func adminReply(adminID int64, repliedToID int, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From:           &tgbotapi.User{ID: adminID, FirstName: "Саша"},
		Chat:           &tgbotapi.Chat{ID: testAdminChatID, Type: "supergroup"},
		Text:           text,
		ReplyToMessage: &tgbotapi.Message{MessageID: repliedToID},
	}
}

func TestAdminReply_DeliveredToUser(t *testing.T) {
	api := &fakeSender{}
	store := stubs.NewMockStore()
	store.SeedAdmins(models.Admin{ID: testAdminOne, Nickname: "Саша"})
	b := newTestBot(api, store)

	ticketID := openTicket(t, b, api, "не получается войти")
	userMsgs := len(api.messagesTo(testUserID))

	b.handleUpdate(tgbotapi.Update{Message: adminReply(testAdminOne, ticketID, "Попробуйте перезайти")})

	msgs := api.messagesTo(testUserID)
	require.Len(t, msgs, userMsgs+1)
	reply := msgs[len(msgs)-1]
	assert.Contains(t, reply.Text, "*Саша:*")
	assert.Contains(t, reply.Text, "Попробуйте перезайти")
	assert.Equal(t, tgbotapi.ModeMarkdown, reply.ParseMode)

	ticket, ok := b.tickets.Get(ticketID)
	require.True(t, ok)
	assert.True(t, ticket.Answered)

	// the reply is logged already delivered, so the dispatcher skips it
	records := store.Messages()
	last := records[len(records)-1]
	assert.Equal(t, models.SenderAdmin, last.Sender)
	assert.Equal(t, "Попробуйте перезайти", last.Text)
	assert.True(t, last.Delivered)
}

func TestAdminReply_EditsTicketStatus(t *testing.T) {
	api := &fakeSender{}
	store := stubs.NewMockStore()
	store.SeedAdmins(models.Admin{ID: testAdminOne, Nickname: "Саша"})
	b := newTestBot(api, store)

	ticketID := openTicket(t, b, api, "вопрос")

	b.handleUpdate(tgbotapi.Update{Message: adminReply(testAdminOne, ticketID, "ответ")})

	var edit *tgbotapi.EditMessageTextConfig
	for _, c := range api.sent {
		if e, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			edit = &e
		}
	}
	require.NotNil(t, edit, "the channel message must be edited")
	assert.Equal(t, ticketID, edit.MessageID)
	assert.Contains(t, edit.Text, "отвечено (Саша)")
}

func TestAdminReply_EditKeepsMediaLine(t *testing.T) {
	api := &fakeSender{fileURLs: map[string]string{"photo-1": "https://files.example/photo-1.jpg"}}
	store := stubs.NewMockStore()
	store.SeedAdmins(models.Admin{ID: testAdminOne, Nickname: "Саша"})
	b := newTestBot(api, store)

	b.handleUpdate(tgbotapi.Update{CallbackQuery: callbackQuery(testUser(), callbackTopicHelper)})
	msg := privateMessage(testUser(), "")
	msg.Photo = []tgbotapi.PhotoSize{{FileID: "photo-1"}}
	b.handleUpdate(tgbotapi.Update{Message: msg})

	session, ok := b.sessions.Get(testUserID)
	require.True(t, ok)

	b.handleUpdate(tgbotapi.Update{Message: adminReply(testAdminOne, session.LastMessageID, "получили фото")})

	var edit *tgbotapi.EditMessageTextConfig
	for _, c := range api.sent {
		if e, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			edit = &e
		}
	}
	require.NotNil(t, edit)
	assert.Contains(t, edit.Text, "📷 Фото", "the media marker must survive the status edit")
	assert.Contains(t, edit.Text, "отвечено (Саша)")
}

func TestAdminReply_EditFailureIsSwallowed(t *testing.T) {
	api := &fakeSender{}
	api.sendHook = func(c tgbotapi.Chattable) error {
		if _, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			return &tgbotapi.Error{Code: 400, Message: "Bad Request: message to edit not found"}
		}
		return nil
	}
	store := stubs.NewMockStore()
	store.SeedAdmins(models.Admin{ID: testAdminOne, Nickname: "Саша"})
	b := newTestBot(api, store)

	ticketID := openTicket(t, b, api, "вопрос")
	userMsgs := len(api.messagesTo(testUserID))

	b.handleUpdate(tgbotapi.Update{Message: adminReply(testAdminOne, ticketID, "ответ")})

	// the user still got the reply and the ticket still flipped
	assert.Len(t, api.messagesTo(testUserID), userMsgs+1)
	ticket, _ := b.tickets.Get(ticketID)
	assert.True(t, ticket.Answered)
}

func TestAdminReply_NonAdminIgnored(t *testing.T) {
	api := &fakeSender{}
	store := stubs.NewMockStore()
	store.SeedAdmins(models.Admin{ID: testAdminOne, Nickname: "Саша"})
	b := newTestBot(api, store)

	ticketID := openTicket(t, b, api, "вопрос")
	userMsgs := len(api.messagesTo(testUserID))
	logged := len(store.Messages())

	b.handleUpdate(tgbotapi.Update{Message: adminReply(555, ticketID, "я не админ")})

	assert.Len(t, api.messagesTo(testUserID), userMsgs, "nothing may be delivered")
	assert.Len(t, store.Messages(), logged, "nothing may be logged")
	ticket, _ := b.tickets.Get(ticketID)
	assert.False(t, ticket.Answered, "the ticket stays untouched")
}

func TestAdminReply_UntrackedMessageIgnored(t *testing.T) {
	api := &fakeSender{}
	store := stubs.NewMockStore()
	store.SeedAdmins(models.Admin{ID: testAdminOne, Nickname: "Саша"})
	b := newTestBot(api, store)

	openTicket(t, b, api, "вопрос")
	sent := len(api.sent)

	// reply to a channel message the bot never sent
	b.handleUpdate(tgbotapi.Update{Message: adminReply(testAdminOne, 99999, "мимо")})

	assert.Len(t, api.sent, sent)
}

func TestAdminChat_PlainDiscussionIgnored(t *testing.T) {
	api := &fakeSender{}
	store := stubs.NewMockStore()
	store.SeedAdmins(models.Admin{ID: testAdminOne, Nickname: "Саша"})
	b := newTestBot(api, store)

	openTicket(t, b, api, "вопрос")
	sent := len(api.sent)

	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: testAdminOne},
		Chat: &tgbotapi.Chat{ID: testAdminChatID, Type: "supergroup"},
		Text: "обычное обсуждение без reply",
	}
	b.handleUpdate(tgbotapi.Update{Message: msg})

	assert.Len(t, api.sent, sent)
}

func TestAdminReply_AttachmentPlaceholder(t *testing.T) {
	api := &fakeSender{}
	store := stubs.NewMockStore()
	store.SeedAdmins(models.Admin{ID: testAdminOne, Nickname: "Саша"})
	b := newTestBot(api, store)

	ticketID := openTicket(t, b, api, "вопрос")

	reply := adminReply(testAdminOne, ticketID, "")
	reply.Photo = []tgbotapi.PhotoSize{{FileID: "admin-photo"}}
	b.handleUpdate(tgbotapi.Update{Message: reply})

	assert.Contains(t, api.lastTo(t, testUserID).Text, "[Вложение]")
}

func TestAdminReply_AfterRekeyResolvesLatest(t *testing.T) {
	api := &fakeSender{}
	store := stubs.NewMockStore()
	store.SeedAdmins(models.Admin{ID: testAdminOne, Nickname: "Саша"})
	b := newTestBot(api, store)

	openTicket(t, b, api, "первое")
	b.handleUpdate(tgbotapi.Update{Message: privateMessage(testUser(), "второе")})

	session, _ := b.sessions.Get(testUserID)
	latestID := session.LastMessageID

	b.handleUpdate(tgbotapi.Update{Message: adminReply(testAdminOne, latestID, "видим оба")})

	reply := api.lastTo(t, testUserID)
	assert.Contains(t, reply.Text, "видим оба")

	ticket, ok := b.tickets.Get(latestID)
	require.True(t, ok)
	assert.True(t, ticket.Answered)
	assert.Equal(t, "второе", ticket.LastText)
}

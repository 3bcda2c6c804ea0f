package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"supportbot/internal/models"
	"supportbot/internal/storage/stubs"
)

// fakeAPI records what the poller sends and can fail selected sends
type fakeAPI struct {
	sent     []tgbotapi.Chattable
	sendHook func(c tgbotapi.Chattable) error
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.sendHook != nil {
		if err := f.sendHook(c); err != nil {
			return tgbotapi.Message{}, err
		}
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func newTestPoller(store *stubs.MockStore, api *fakeAPI) *Poller {
	p := New(store, api, time.Second, zap.NewNop())
	p.sleep = func(time.Duration) {}
	return p
}

func seedPending(t *testing.T, store *stubs.MockStore, chatID int64, text string) string {
	t.Helper()
	msg := &models.SupportMessage{
		ChatID: chatID,
		Sender: models.SenderAdmin,
		Text:   text,
	}
	require.NoError(t, store.Append(context.Background(), msg))
	return msg.ID
}

func pendingCount(t *testing.T, store *stubs.MockStore) int {
	t.Helper()
	pending, err := store.Undelivered(context.Background(), 0)
	require.NoError(t, err)
	return len(pending)
}

func TestTick_DeliversAndMarks(t *testing.T) {
	store := stubs.NewMockStore()
	api := &fakeAPI{}
	p := newTestPoller(store, api)

	seedPending(t, store, 42, "ответ администратора")
	seedPending(t, store, 43, "второй ответ")

	p.tick(context.Background())

	require.Len(t, api.sent, 2)
	first := api.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, int64(42), first.ChatID)
	assert.Equal(t, "ответ администратора", first.Text)
	assert.Equal(t, tgbotapi.ModeMarkdown, first.ParseMode)

	assert.Zero(t, pendingCount(t, store))
}

func TestTick_EmptyPayloadRetiredWithoutSend(t *testing.T) {
	store := stubs.NewMockStore()
	api := &fakeAPI{}
	p := newTestPoller(store, api)

	seedPending(t, store, 42, "")

	p.tick(context.Background())

	assert.Empty(t, api.sent)
	assert.Zero(t, pendingCount(t, store))
}

func TestTick_PhotoDeliveredByURL(t *testing.T) {
	store := stubs.NewMockStore()
	api := &fakeAPI{}
	p := newTestPoller(store, api)

	msg := &models.SupportMessage{
		ChatID:    42,
		Sender:    models.SenderAdmin,
		Text:      "вот скриншот",
		MediaType: models.MediaPhoto,
		FileURL:   "https://files.example/shot.jpg",
	}
	require.NoError(t, store.Append(context.Background(), msg))

	p.tick(context.Background())

	require.Len(t, api.sent, 1)
	photo, ok := api.sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Equal(t, "вот скриншот", photo.Caption)
	assert.Equal(t, tgbotapi.FileURL("https://files.example/shot.jpg"), photo.File)
	assert.Zero(t, pendingCount(t, store))
}

func TestTick_RateLimitStopsScanAndCoolsDown(t *testing.T) {
	store := stubs.NewMockStore()
	api := &fakeAPI{}
	api.sendHook = func(tgbotapi.Chattable) error {
		return &tgbotapi.Error{
			Code:               429,
			Message:            "Too Many Requests: retry after 7",
			ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 7},
		}
	}
	p := newTestPoller(store, api)

	clock := time.Now()
	p.now = func() time.Time { return clock }

	seedPending(t, store, 42, "первое")
	seedPending(t, store, 43, "второе")

	p.tick(context.Background())

	assert.Empty(t, api.sent, "the scan stops at the rate limit")
	assert.Equal(t, 2, pendingCount(t, store), "nothing is marked delivered")

	// ticks inside the cooldown window do not touch the transport
	api.sendHook = nil
	clock = clock.Add(5 * time.Second)
	p.tick(context.Background())
	assert.Empty(t, api.sent)

	// after the window the backlog drains
	clock = clock.Add(3 * time.Second)
	p.tick(context.Background())
	assert.Len(t, api.sent, 2)
	assert.Zero(t, pendingCount(t, store))
}

func TestTick_RateLimitWithoutRetryAfterUsesDefault(t *testing.T) {
	store := stubs.NewMockStore()
	api := &fakeAPI{}
	api.sendHook = func(tgbotapi.Chattable) error {
		return &tgbotapi.Error{Code: 429, Message: "Too Many Requests"}
	}
	p := newTestPoller(store, api)

	clock := time.Now()
	p.now = func() time.Time { return clock }

	seedPending(t, store, 42, "текст")
	p.tick(context.Background())

	api.sendHook = nil
	clock = clock.Add(19 * time.Second)
	p.tick(context.Background())
	assert.Empty(t, api.sent, "default cooldown is still in effect")

	clock = clock.Add(2 * time.Second)
	p.tick(context.Background())
	assert.Len(t, api.sent, 1)
}

func TestTick_BlockedUserRetiredPermanently(t *testing.T) {
	store := stubs.NewMockStore()
	api := &fakeAPI{}
	api.sendHook = func(c tgbotapi.Chattable) error {
		if msg, ok := c.(tgbotapi.MessageConfig); ok && msg.ChatID == 42 {
			return &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}
		}
		return nil
	}
	p := newTestPoller(store, api)

	seedPending(t, store, 42, "не дойдёт")
	seedPending(t, store, 43, "дойдёт")

	p.tick(context.Background())

	// the blocked record is retired so it cannot wedge the queue, the
	// rest of the batch is still delivered
	require.Len(t, api.sent, 1)
	assert.Equal(t, int64(43), api.sent[0].(tgbotapi.MessageConfig).ChatID)
	assert.Zero(t, pendingCount(t, store))
}

func TestTick_TransientErrorLeavesRecordPending(t *testing.T) {
	store := stubs.NewMockStore()
	api := &fakeAPI{}
	api.sendHook = func(tgbotapi.Chattable) error {
		return errors.New("dial tcp: connection refused")
	}
	p := newTestPoller(store, api)

	seedPending(t, store, 42, "попробуем позже")

	p.tick(context.Background())

	assert.Empty(t, api.sent)
	assert.Equal(t, 1, pendingCount(t, store), "transient failures keep the record for the next scan")
}

func TestTick_BatchLimitRespected(t *testing.T) {
	store := stubs.NewMockStore()
	api := &fakeAPI{}
	p := newTestPoller(store, api)

	for i := 0; i < 8; i++ {
		seedPending(t, store, int64(100+i), "сообщение")
	}

	p.tick(context.Background())
	assert.Len(t, api.sent, defaultBatch)
	assert.Equal(t, 8-defaultBatch, pendingCount(t, store))

	p.tick(context.Background())
	assert.Len(t, api.sent, 8)
	assert.Zero(t, pendingCount(t, store))
}

func TestTick_SkipsWhileBusy(t *testing.T) {
	store := stubs.NewMockStore()
	api := &fakeAPI{}
	p := newTestPoller(store, api)

	seedPending(t, store, 42, "текст")

	p.busy.Store(true)
	p.tick(context.Background())
	assert.Empty(t, api.sent, "an overlapping tick is a no-op")

	p.busy.Store(false)
	p.tick(context.Background())
	assert.Len(t, api.sent, 1)
}

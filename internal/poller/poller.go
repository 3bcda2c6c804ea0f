// Package poller pushes admin-authored messages from the external support
// log to their users on a fixed interval.
package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"supportbot/internal/models"
	"supportbot/internal/storage"
)

const (
	defaultBatch           = 5
	defaultCooldownSeconds = 20
)

// sender is the outbound part of the Telegram client the poller needs
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Poller periodically scans the support message log for undelivered
// admin messages and sends them to users. Only one scan runs at a time; a
// tick that fires while the previous scan is still running is skipped.
type Poller struct {
	log      storage.MessageLog
	api      sender
	interval time.Duration
	batch    int
	logger   *zap.Logger

	busy atomic.Bool

	mu            sync.Mutex
	cooldownUntil time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// New creates a poller over the given message log
func New(log storage.MessageLog, api sender, interval time.Duration, logger *zap.Logger) *Poller {
	return &Poller{
		log:      log,
		api:      api,
		interval: interval,
		batch:    defaultBatch,
		logger:   logger,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Run ticks until the context is cancelled
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("Outbound poller started", zap.Duration("interval", p.interval))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbound poller stopped")
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick runs one scan over the undelivered backlog
func (p *Poller) tick(ctx context.Context) {
	if !p.busy.CompareAndSwap(false, true) {
		// previous scan still running; skip this tick entirely
		return
	}
	defer p.busy.Store(false)

	if p.coolingDown() {
		return
	}

	messages, err := p.log.Undelivered(ctx, p.batch)
	if err != nil {
		p.logger.Error("Failed to query undelivered messages", zap.Error(err))
		return
	}

	for i, msg := range messages {
		if p.coolingDown() {
			return
		}
		if i > 0 {
			p.sleep(time.Second)
		}

		if msg.Text == "" && msg.MediaType == "" {
			// nothing to deliver; retire the record
			p.markDelivered(ctx, msg.ID)
			continue
		}

		if err := p.deliver(msg); err != nil {
			if p.handleDeliveryError(ctx, msg, err) {
				return
			}
			continue
		}
		p.markDelivered(ctx, msg.ID)
	}
}

// deliver sends one admin message to its user
func (p *Poller) deliver(msg models.SupportMessage) error {
	var c tgbotapi.Chattable
	switch msg.MediaType {
	case models.MediaPhoto:
		photo := tgbotapi.NewPhoto(msg.ChatID, tgbotapi.FileURL(msg.FileURL))
		photo.Caption = msg.Text
		photo.ParseMode = tgbotapi.ModeMarkdown
		c = photo
	case models.MediaDocument:
		doc := tgbotapi.NewDocument(msg.ChatID, tgbotapi.FileURL(msg.FileURL))
		doc.Caption = msg.Text
		doc.ParseMode = tgbotapi.ModeMarkdown
		c = doc
	default:
		text := tgbotapi.NewMessage(msg.ChatID, msg.Text)
		text.ParseMode = tgbotapi.ModeMarkdown
		c = text
	}

	_, err := p.api.Send(c)
	return err
}

// handleDeliveryError classifies a transport failure. It returns true when
// the scan must stop (rate limit).
func (p *Poller) handleDeliveryError(ctx context.Context, msg models.SupportMessage, err error) bool {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		switch tgErr.Code {
		case 429:
			retryAfter := tgErr.RetryAfter
			if retryAfter <= 0 {
				retryAfter = defaultCooldownSeconds
			}
			p.setCooldown(time.Duration(retryAfter) * time.Second)
			p.logger.Warn("Rate limited, backing off",
				zap.Int("retry_after_seconds", retryAfter),
			)
			return true
		case 403, 400:
			// the user blocked the bot or the request is malformed; retrying
			// would wedge the queue on this record forever
			p.logger.Warn("Giving up on undeliverable message",
				zap.String("message_id", msg.ID),
				zap.Int64("chat_id", msg.ChatID),
				zap.Int("code", tgErr.Code),
			)
			p.markDelivered(ctx, msg.ID)
			return false
		}
	}

	p.logger.Error("Failed to deliver admin message",
		zap.String("message_id", msg.ID),
		zap.Int64("chat_id", msg.ChatID),
		zap.Error(err),
	)
	return false
}

func (p *Poller) markDelivered(ctx context.Context, id string) {
	if err := p.log.MarkDelivered(ctx, id); err != nil {
		p.logger.Error("Failed to mark message delivered",
			zap.String("message_id", id),
			zap.Error(err),
		)
	}
}

func (p *Poller) coolingDown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now().Before(p.cooldownUntil)
}

func (p *Poller) setCooldown(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cooldownUntil = p.now().Add(d)
}

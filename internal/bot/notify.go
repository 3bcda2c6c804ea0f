package bot

import (
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Notifier sends formatted notifications to a set of admin recipients,
// pausing between sends to stay under the transport's rate limits.
type Notifier struct {
	api        telegramSender
	recipients []int64
	delay      time.Duration
	logger     *zap.Logger
	sleep      func(time.Duration)
}

// NewNotifier creates a notifier for the given recipient list
func NewNotifier(api telegramSender, recipients []int64, delay time.Duration, logger *zap.Logger) *Notifier {
	return &Notifier{
		api:        api,
		recipients: recipients,
		delay:      delay,
		logger:     logger,
		sleep:      time.Sleep,
	}
}

// Broadcast delivers the Markdown-formatted text to every recipient in
// order. A recipient failure is logged and does not stop delivery to the
// rest.
func (n *Notifier) Broadcast(text string) {
	for i, recipient := range n.recipients {
		if i > 0 {
			n.sleep(n.delay)
		}

		msg := tgbotapi.NewMessage(recipient, text)
		msg.ParseMode = tgbotapi.ModeMarkdown
		_, err := n.api.Send(msg)
		if err == nil {
			continue
		}

		if isEntityParseError(err) {
			// the provider rejected our formatting; retry once plain
			plain := tgbotapi.NewMessage(recipient, stripMarkdown(text))
			if _, err = n.api.Send(plain); err == nil {
				continue
			}
		}

		n.logger.Warn("Failed to notify admin",
			zap.Int64("admin_id", recipient),
			zap.Error(err),
		)
	}
}

// isEntityParseError reports whether the transport rejected the message
// because its Markdown entities could not be parsed
func isEntityParseError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "can't parse entities")
}

var markdownEscaper = strings.NewReplacer(
	"*", "\\*",
	"_", "\\_",
	"`", "\\`",
)

// escapeMarkdown escapes user-supplied text before it is interpolated into
// a Markdown template
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// stripMarkdown removes the formatting markers for the plain-text retry
func stripMarkdown(s string) string {
	return strings.NewReplacer("\\*", "*", "\\_", "_", "\\`", "`", "*", "").Replace(s)
}

package bot

import (
	"context"
	"errors"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"supportbot/internal/models"
	"supportbot/internal/storage"
)

// registerUser makes sure a directory record exists for the user. The
// operation is idempotent: an existing record is never touched, and a
// concurrent duplicate insert counts as success.
func (b *Bot) registerUser(ctx context.Context, from *tgbotapi.User) bool {
	_, err := b.store.GetUser(ctx, from.ID)
	if err == nil {
		return true
	}
	if !errors.Is(err, storage.ErrNotFound) {
		b.logger.Error("Failed to check user registration",
			zap.Int64("user_id", from.ID),
			zap.Error(err),
		)
		return false
	}

	user := &models.User{
		ID:           from.ID,
		FullName:     fullNameOf(from),
		Username:     usernameOf(from),
		Key:          b.keys.Key(),
		Status:       "pending",
		Role:         "user",
		RegisteredAt: time.Now(),
	}

	err = b.store.CreateUser(ctx, user)
	if errors.Is(err, storage.ErrDuplicate) {
		// someone got there first; the record exists, which is all we need
		return true
	}
	if err != nil {
		b.logger.Error("Failed to create user",
			zap.Int64("user_id", from.ID),
			zap.Error(err),
		)
		return false
	}

	b.logger.Info("New user registered",
		zap.Int64("user_id", from.ID),
		zap.String("key", user.Key),
	)
	return true
}

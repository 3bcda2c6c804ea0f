package storage

import (
	"context"
	"errors"

	"supportbot/internal/models"
)

// ErrNotFound is returned by keyed lookups when no record exists. Callers
// treat it as a normal branch, not a failure.
var ErrNotFound = errors.New("storage: record not found")

// ErrDuplicate is returned by inserts that hit an existing key. Registration
// treats it as success.
var ErrDuplicate = errors.New("storage: duplicate key")

// Directory is the external keyed store of user and admin records
type Directory interface {
	// GetUser looks up a user by Telegram ID; returns ErrNotFound when absent
	GetUser(ctx context.Context, id int64) (*models.User, error)

	// CreateUser inserts a new record; returns ErrDuplicate when the ID is taken
	CreateUser(ctx context.Context, user *models.User) error

	// ListAdmins returns the authorized admins with their display nicknames
	ListAdmins(ctx context.Context) ([]models.Admin, error)
}

// MessageLog is the external append-only support message log
type MessageLog interface {
	// Append inserts a new record. The record's ID is assigned by the store
	// and set on the passed message.
	Append(ctx context.Context, msg *models.SupportMessage) error

	// LastTopic returns the most recent non-empty topic recorded for a chat,
	// or ErrNotFound when none exists
	LastTopic(ctx context.Context, chatID int64) (string, error)

	// Undelivered returns admin-authored records not yet delivered to users,
	// oldest first, at most limit
	Undelivered(ctx context.Context, limit int) ([]models.SupportMessage, error)

	// MarkDelivered flags a record as delivered
	MarkDelivered(ctx context.Context, id string) error
}

// Storage is what a backend provides to the application
type Storage interface {
	Directory
	MessageLog
	Close() error
}

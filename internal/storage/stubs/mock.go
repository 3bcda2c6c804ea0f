package stubs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"supportbot/internal/models"
	"supportbot/internal/storage"
)

// MockStore is an in-memory implementation of the storage interfaces for
// tests and local runs without external services
type MockStore struct {
	mu       sync.RWMutex
	users    map[int64]*models.User
	admins   []models.Admin
	messages []*models.SupportMessage
}

// NewMockStore creates an empty mock store
func NewMockStore() *MockStore {
	return &MockStore{
		users: make(map[int64]*models.User),
	}
}

// SeedAdmins replaces the admin directory contents
func (m *MockStore) SeedAdmins(admins ...models.Admin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admins = admins
}

// GetUser looks up a user by Telegram ID
func (m *MockStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	u := *user
	return &u, nil
}

// CreateUser inserts a new user record
func (m *MockStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; ok {
		return storage.ErrDuplicate
	}
	u := *user
	m.users[user.ID] = &u
	return nil
}

// ListAdmins returns the seeded admins
func (m *MockStore) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	admins := make([]models.Admin, len(m.admins))
	copy(admins, m.admins)
	return admins, nil
}

// Append inserts a support message record, assigning it an ID
func (m *MockStore) Append(ctx context.Context, msg *models.SupportMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	stored := *msg
	m.messages = append(m.messages, &stored)
	return nil
}

// LastTopic returns the most recent non-empty topic for a chat
func (m *MockStore) LastTopic(ctx context.Context, chatID int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.messages) - 1; i >= 0; i-- {
		msg := m.messages[i]
		if msg.ChatID == chatID && msg.Sender == models.SenderUser && msg.Topic != "" {
			return msg.Topic, nil
		}
	}
	return "", storage.ErrNotFound
}

// Undelivered returns admin messages not yet delivered, oldest first
func (m *MockStore) Undelivered(ctx context.Context, limit int) ([]models.SupportMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pending []models.SupportMessage
	for _, msg := range m.messages {
		if msg.Sender == models.SenderAdmin && !msg.Delivered {
			pending = append(pending, *msg)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if limit > 0 && limit < len(pending) {
		pending = pending[:limit]
	}
	return pending, nil
}

// MarkDelivered flags a record as delivered
func (m *MockStore) MarkDelivered(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, msg := range m.messages {
		if msg.ID == id {
			msg.Delivered = true
			return nil
		}
	}
	return storage.ErrNotFound
}

// Messages returns a snapshot of all records, for assertions in tests
func (m *MockStore) Messages() []models.SupportMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.SupportMessage, 0, len(m.messages))
	for _, msg := range m.messages {
		out = append(out, *msg)
	}
	return out
}

// UserCount returns the number of directory records, for assertions in tests
func (m *MockStore) UserCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}

// Close does nothing for the mock store
func (m *MockStore) Close() error {
	return nil
}

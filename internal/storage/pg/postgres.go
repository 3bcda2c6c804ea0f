// Package pg backs the user directory and support message log with a hosted
// Postgres database reached through pgx.
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"supportbot/internal/models"
	"supportbot/internal/storage"
)

const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
}

// New connects to Postgres and verifies the connection
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &Store{pool: pool}, nil
}

// GetUser looks up a user by Telegram ID
func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	const query = `
        SELECT idtg, name, telegram, key, status, role, registration_date
        FROM users WHERE idtg = $1`

	var user models.User
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.FullName,
		&user.Username,
		&user.Key,
		&user.Status,
		&user.Role,
		&user.RegisteredAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return &user, nil
}

// CreateUser inserts a new user record. A concurrent duplicate insert is
// reported as storage.ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	const query = `
        INSERT INTO users (idtg, name, telegram, key, status, role, registration_date)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		user.ID,
		user.FullName,
		user.Username,
		user.Key,
		user.Status,
		user.Role,
		user.RegisteredAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return storage.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create user %d: %w", user.ID, err)
	}
	return nil
}

// ListAdmins returns the admin directory
func (s *Store) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	rows, err := s.pool.Query(ctx, `SELECT idtg, nickname FROM admins ORDER BY nickname`)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	defer rows.Close()

	var admins []models.Admin
	for rows.Next() {
		var admin models.Admin
		if err := rows.Scan(&admin.ID, &admin.Nickname); err != nil {
			return nil, fmt.Errorf("failed to scan admin: %w", err)
		}
		admins = append(admins, admin)
	}
	return admins, rows.Err()
}

// Append inserts a support message record
func (s *Store) Append(ctx context.Context, msg *models.SupportMessage) error {
	const query = `
        INSERT INTO support_messages
            (chat_id, sender, message, username, full_name, topic,
             media_type, file_id, file_url, sent_to_user)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, created_at`

	err := s.pool.QueryRow(ctx, query,
		msg.ChatID,
		msg.Sender,
		msg.Text,
		msg.Username,
		msg.FullName,
		msg.Topic,
		msg.MediaType,
		msg.FileID,
		msg.FileURL,
		msg.Delivered,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append support message: %w", err)
	}
	return nil
}

// LastTopic returns the most recent non-empty topic recorded for a chat
func (s *Store) LastTopic(ctx context.Context, chatID int64) (string, error) {
	const query = `
        SELECT topic FROM support_messages
        WHERE chat_id = $1 AND sender = 'user' AND topic <> ''
        ORDER BY created_at DESC LIMIT 1`

	var topic string
	err := s.pool.QueryRow(ctx, query, chatID).Scan(&topic)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get last topic for chat %d: %w", chatID, err)
	}
	return topic, nil
}

// Undelivered returns admin messages not yet sent to users, oldest first
func (s *Store) Undelivered(ctx context.Context, limit int) ([]models.SupportMessage, error) {
	const query = `
        SELECT id, chat_id, sender, message, username, full_name, topic,
               media_type, file_id, file_url, sent_to_user, created_at
        FROM support_messages
        WHERE sender = 'admin' AND sent_to_user = false
        ORDER BY created_at ASC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query undelivered messages: %w", err)
	}
	defer rows.Close()

	var messages []models.SupportMessage
	for rows.Next() {
		var msg models.SupportMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.ChatID,
			&msg.Sender,
			&msg.Text,
			&msg.Username,
			&msg.FullName,
			&msg.Topic,
			&msg.MediaType,
			&msg.FileID,
			&msg.FileURL,
			&msg.Delivered,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan support message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// MarkDelivered flags a record as sent to the user
func (s *Store) MarkDelivered(ctx context.Context, id string) error {
	cmd, err := s.pool.Exec(ctx,
		`UPDATE support_messages SET sent_to_user = true, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark message %s delivered: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Close releases the connection pool
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Package docstore backs the user directory and support message log with a
// hosted JSON document store ("bin"): the whole document is fetched with GET
// and replaced with PUT, authenticated by a master-key header.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"supportbot/internal/models"
	"supportbot/internal/storage"
)

const masterKeyHeader = "X-Master-Key"

// document is the bin's JSON layout
type document struct {
	Users    []userRecord    `json:"users"`
	Admins   []adminRecord   `json:"admins"`
	Messages []messageRecord `json:"messages"`
}

type userRecord struct {
	IDTG             int64  `json:"idtg"`
	Name             string `json:"name"`
	Telegram         string `json:"telegram"`
	Key              string `json:"key"`
	Status           string `json:"status"`
	Role             string `json:"role"`
	RegistrationDate string `json:"registration_date"`
}

type adminRecord struct {
	IDTG     int64  `json:"idtg"`
	Nickname string `json:"nickname"`
}

type messageRecord struct {
	ID         string `json:"id"`
	ChatID     int64  `json:"chat_id"`
	Sender     string `json:"sender"`
	Message    string `json:"message"`
	Username   string `json:"username"`
	FullName   string `json:"full_name"`
	Topic      string `json:"topic"`
	MediaType  string `json:"media_type"`
	FileID     string `json:"file_id"`
	FileURL    string `json:"file_url"`
	SentToUser bool   `json:"sent_to_user"`
	CreatedAt  string `json:"created_at"`
}

type Store struct {
	baseURL string
	binID   string
	apiKey  string
	client  *http.Client
}

// New creates a document store client and verifies the bin is reachable
func New(ctx context.Context, baseURL, binID, apiKey string) (*Store, error) {
	s := &Store{
		baseURL: baseURL,
		binID:   binID,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
	if _, err := s.read(ctx); err != nil {
		return nil, fmt.Errorf("failed to read document bin: %w", err)
	}
	return s, nil
}

func (s *Store) read(ctx context.Context) (*document, error) {
	url := fmt.Sprintf("%s/b/%s/latest", s.baseURL, s.binID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(masterKeyHeader, s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("document store returned status %d", resp.StatusCode)
	}

	// the /latest endpoint wraps the document in a "record" envelope
	var envelope struct {
		Record document `json:"record"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return &envelope.Record, nil
}

func (s *Store) write(ctx context.Context, doc *document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	url := fmt.Sprintf("%s/b/%s", s.baseURL, s.binID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set(masterKeyHeader, s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("document store returned status %d", resp.StatusCode)
	}
	return nil
}

// GetUser looks up a user by Telegram ID
func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range doc.Users {
		if r.IDTG == id {
			return userFromRecord(r), nil
		}
	}
	return nil, storage.ErrNotFound
}

// CreateUser appends a new user record to the document
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	doc, err := s.read(ctx)
	if err != nil {
		return err
	}
	for _, r := range doc.Users {
		if r.IDTG == user.ID {
			return storage.ErrDuplicate
		}
	}
	doc.Users = append(doc.Users, userRecord{
		IDTG:             user.ID,
		Name:             user.FullName,
		Telegram:         user.Username,
		Key:              user.Key,
		Status:           user.Status,
		Role:             user.Role,
		RegistrationDate: user.RegisteredAt.Format("2006-01-02"),
	})
	return s.write(ctx, doc)
}

// ListAdmins returns the admin directory
func (s *Store) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	admins := make([]models.Admin, 0, len(doc.Admins))
	for _, r := range doc.Admins {
		admins = append(admins, models.Admin{ID: r.IDTG, Nickname: r.Nickname})
	}
	return admins, nil
}

// Append adds a support message record to the document
func (s *Store) Append(ctx context.Context, msg *models.SupportMessage) error {
	doc, err := s.read(ctx)
	if err != nil {
		return err
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	doc.Messages = append(doc.Messages, messageRecord{
		ID:         msg.ID,
		ChatID:     msg.ChatID,
		Sender:     msg.Sender,
		Message:    msg.Text,
		Username:   msg.Username,
		FullName:   msg.FullName,
		Topic:      msg.Topic,
		MediaType:  msg.MediaType,
		FileID:     msg.FileID,
		FileURL:    msg.FileURL,
		SentToUser: msg.Delivered,
		CreatedAt:  msg.CreatedAt.Format(time.RFC3339),
	})
	return s.write(ctx, doc)
}

// LastTopic returns the most recent non-empty topic recorded for a chat
func (s *Store) LastTopic(ctx context.Context, chatID int64) (string, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return "", err
	}
	for i := len(doc.Messages) - 1; i >= 0; i-- {
		r := doc.Messages[i]
		if r.ChatID == chatID && r.Sender == models.SenderUser && r.Topic != "" {
			return r.Topic, nil
		}
	}
	return "", storage.ErrNotFound
}

// Undelivered returns admin-authored records not yet sent to users, oldest first
func (s *Store) Undelivered(ctx context.Context, limit int) ([]models.SupportMessage, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	var pending []models.SupportMessage
	for _, r := range doc.Messages {
		if r.Sender == models.SenderAdmin && !r.SentToUser {
			pending = append(pending, messageFromRecord(r))
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

// MarkDelivered flags a record as sent to the user
func (s *Store) MarkDelivered(ctx context.Context, id string) error {
	doc, err := s.read(ctx)
	if err != nil {
		return err
	}
	for i := range doc.Messages {
		if doc.Messages[i].ID == id {
			doc.Messages[i].SentToUser = true
			return s.write(ctx, doc)
		}
	}
	return storage.ErrNotFound
}

// Close does nothing; the store is stateless between calls
func (s *Store) Close() error {
	return nil
}

func userFromRecord(r userRecord) *models.User {
	registered, _ := time.Parse("2006-01-02", r.RegistrationDate)
	return &models.User{
		ID:           r.IDTG,
		FullName:     r.Name,
		Username:     r.Telegram,
		Key:          r.Key,
		Status:       r.Status,
		Role:         r.Role,
		RegisteredAt: registered,
	}
}

func messageFromRecord(r messageRecord) models.SupportMessage {
	created, _ := time.Parse(time.RFC3339, r.CreatedAt)
	return models.SupportMessage{
		ID:        r.ID,
		ChatID:    r.ChatID,
		Sender:    r.Sender,
		Text:      r.Message,
		Username:  r.Username,
		FullName:  r.FullName,
		Topic:     r.Topic,
		MediaType: r.MediaType,
		FileID:    r.FileID,
		FileURL:   r.FileURL,
		Delivered: r.SentToUser,
		CreatedAt: created,
	}
}

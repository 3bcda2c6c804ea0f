package models

import "time"

// User represents a registered bot user in the directory
type User struct {
	ID           int64
	FullName     string
	Username     string
	Key          string
	Status       string
	Role         string
	RegisteredAt time.Time
}

// Admin represents an authorized support admin
type Admin struct {
	ID       int64
	Nickname string
}

// Topic is one of the closed set of support topics
type Topic string

const (
	TopicPayment    Topic = "payment"
	TopicHelper     Topic = "helper"
	TopicSuggestion Topic = "suggestions"
	TopicOther      Topic = "other"
)

// Label returns the user-facing topic name
func (t Topic) Label() string {
	switch t {
	case TopicPayment:
		return "Оплата товара"
	case TopicHelper:
		return "Проблема с Helper'ом"
	case TopicSuggestion:
		return "Предложения по улучшению"
	case TopicOther:
		return "Другое"
	}
	return string(t)
}

// SessionState is the per-user conversation state
type SessionState int

const (
	// StateNone is never stored; a user with no session is in this state
	StateNone SessionState = iota
	// StateAwaitingMessage means a topic is chosen but no ticket is open yet
	StateAwaitingMessage
	// StateActive means a ticket is open and further messages append to it
	StateActive
)

func (s SessionState) String() string {
	switch s {
	case StateAwaitingMessage:
		return "awaiting_message"
	case StateActive:
		return "active"
	}
	return "none"
}

// Session is the ephemeral per-user support conversation
type Session struct {
	UserID int64
	Topic  Topic
	State  SessionState
	// LastMessageID is the admin-channel message ID of the most recent
	// relayed message for this conversation
	LastMessageID int
}

// Ticket tracks one relayed admin-channel message. The key is the message ID
// the admin channel returned when the message was sent.
type Ticket struct {
	MessageID int
	UserID    int64
	Topic     Topic
	FullName  string
	Username  string
	LastText  string
	MediaType string
	Answered  bool
}

// Message senders as recorded in the support message log
const (
	SenderUser  = "user"
	SenderAdmin = "admin"
)

// Media types as recorded in the support message log
const (
	MediaPhoto    = "photo"
	MediaDocument = "document"
)

// SupportMessage is one record in the external support message log
type SupportMessage struct {
	ID        string
	ChatID    int64
	Sender    string
	Text      string
	Username  string
	FullName  string
	Topic     string
	MediaType string
	FileID    string
	FileURL   string
	Delivered bool
	CreatedAt time.Time
}

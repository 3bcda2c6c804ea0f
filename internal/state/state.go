// Package state holds the in-process conversation state: support sessions
// keyed by user ID and tickets keyed by the admin-channel message ID that
// carries them. Both stores are scoped to the process lifetime.
package state

import (
	"sync"

	"supportbot/internal/models"
)

// SessionStore keeps at most one live support session per user
type SessionStore interface {
	Get(userID int64) (*models.Session, bool)
	Put(session *models.Session)
	Delete(userID int64)
}

// TicketRegistry maps admin-channel message IDs to tickets. Lookups on
// identifiers this process never sent must miss.
type TicketRegistry interface {
	Get(messageID int) (*models.Ticket, bool)
	Put(ticket *models.Ticket)
}

// Sessions is the in-memory SessionStore
type Sessions struct {
	mu sync.RWMutex
	m  map[int64]*models.Session
}

func NewSessions() *Sessions {
	return &Sessions{m: make(map[int64]*models.Session)}
}

func (s *Sessions) Get(userID int64) (*models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.m[userID]
	return session, ok
}

// Put stores the session, replacing any existing one for the same user
func (s *Sessions) Put(session *models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[session.UserID] = session
}

func (s *Sessions) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, userID)
}

// Tickets is the in-memory TicketRegistry
type Tickets struct {
	mu sync.RWMutex
	m  map[int]*models.Ticket
}

func NewTickets() *Tickets {
	return &Tickets{m: make(map[int]*models.Ticket)}
}

func (t *Tickets) Get(messageID int) (*models.Ticket, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ticket, ok := t.m[messageID]
	return ticket, ok
}

// Put stores the ticket keyed by its admin-channel message ID, overwriting
// any previous ticket under the same key
func (t *Tickets) Put(ticket *models.Ticket) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m[ticket.MessageID] = ticket
}

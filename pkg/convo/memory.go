package convo

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store in memory. Used by tests and local runs
// without a database.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	messages map[string][]Message
	contacts map[string]EmergencyContact
	alerts   []AlertRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		messages: make(map[string][]Message),
		contacts: make(map[string]EmergencyContact),
	}
}

func (s *MemoryStore) CreateSession(ctx context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now
	s.sessions[session.ID] = *session
	return nil
}

func (s *MemoryStore) GetSession(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (s *MemoryStore) UpdateSessionLanguage(ctx context.Context, id, language string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil
	}
	session.Language = language
	session.UpdatedAt = time.Now()
	s.sessions[id] = session
	return nil
}

func (s *MemoryStore) AppendMessage(ctx context.Context, msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], *msg)
	return nil
}

func (s *MemoryStore) RecentMessages(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryStore) EmergencyContact(ctx context.Context, userID string) (*EmergencyContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	contact, ok := s.contacts[userID]
	if !ok {
		return nil, nil
	}
	return &contact, nil
}

// SetEmergencyContact seeds a contact. Test helper.
func (s *MemoryStore) SetEmergencyContact(contact EmergencyContact) {
	s.mu.Lock()
	s.contacts[contact.UserID] = contact
	s.mu.Unlock()
}

func (s *MemoryStore) AppendAlert(ctx context.Context, record *AlertRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.SentAt.IsZero() {
		record.SentAt = time.Now()
	}
	s.alerts = append(s.alerts, *record)
	return nil
}

// Alerts returns the journaled alert records. Test helper.
func (s *MemoryStore) Alerts() []AlertRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AlertRecord, len(s.alerts))
	copy(out, s.alerts)
	return out
}

func (s *MemoryStore) Close() error { return nil }

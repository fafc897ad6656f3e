package state

import (
	"context"
	"errors"
	"sync"
)

var ErrStateNotFound = errors.New("session state not found")

// Store is the session persistence contract used by the dialogue graph.
// Load returns ErrStateNotFound when the chat has no stored session.
type Store interface {
	Load(ctx context.Context, chatID int64) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, chatID int64) error
}

// MemoryStore keeps sessions in process memory. Sessions are lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]Session, 64)}
}

func (m *MemoryStore) Load(ctx context.Context, chatID int64) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[chatID]
	if !ok {
		return nil, ErrStateNotFound
	}
	return &s, nil
}

func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.ChatID] = *s
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, chatID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, chatID)
	return nil
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

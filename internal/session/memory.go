package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	session   *Session
	expiresAt time.Time
}

// MemoryStore is an in-process Store for single-instance deployments.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[int64]memoryEntry
	now      func() time.Time
}

// NewMemoryStore creates a MemoryStore whose sessions live for ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[int64]memoryEntry),
		now:      time.Now,
	}
}

// Start opens a session, or fails with ErrActive.
func (m *MemoryStore) Start(_ context.Context, accountID int64, game string, bet int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.sessions[accountID]; ok && now.Before(e.expiresAt) {
		return nil, ErrActive
	}

	s := newSession(accountID, game, bet, now)
	m.sessions[accountID] = memoryEntry{session: s, expiresAt: now.Add(m.ttl)}
	return s, nil
}

// Finish closes s. Finishing a session that expired or was replaced is a no-op.
func (m *MemoryStore) Finish(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.sessions[s.AccountID]; ok && e.session.ID == s.ID {
		delete(m.sessions, s.AccountID)
	}
	return nil
}

// Active returns the account's live session, or nil.
func (m *MemoryStore) Active(_ context.Context, accountID int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[accountID]
	if !ok {
		return nil, nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.sessions, accountID)
		return nil, nil
	}
	return e.session, nil
}

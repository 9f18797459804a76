// Package contextstore persists per-session conversation state. Two
// implementations exist: an in-process map for single-instance
// deployments and a Redis store for anything horizontally scaled.
package contextstore

import (
	"context"
	"sync"
	"time"

	"github.com/bitiz/tirebot-go/internal/domain"
)

// Memory is a thread-safe in-process context store with idle eviction.
// Expired sessions are swept lazily on access, so an idle process does
// not need a background goroutine. The store keeps its own last-access
// timestamp per entry; the sweep never reads the context struct, which
// the owning turn may be mutating at the same time.
type Memory struct {
	mu    sync.Mutex
	items map[string]*memoryEntry
	ttl   time.Duration
	now   func() time.Time
}

type memoryEntry struct {
	c          *domain.ConversationContext
	lastAccess time.Time
}

// NewMemory creates a store evicting sessions idle longer than ttl.
func NewMemory(ttl time.Duration) *Memory {
	return NewMemoryWithClock(ttl, time.Now)
}

// NewMemoryWithClock is NewMemory with an injectable clock.
func NewMemoryWithClock(ttl time.Duration, now func() time.Time) *Memory {
	return &Memory{
		items: make(map[string]*memoryEntry),
		ttl:   ttl,
		now:   now,
	}
}

// GetOrCreate returns the live context for a session, creating a fresh
// one when none exists or the previous one idled out. Reading refreshes
// the idle timestamp, mirroring the TTL refresh of the Redis store.
func (s *Memory) GetOrCreate(_ context.Context, sessionID string) (*domain.ConversationContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()

	if e, ok := s.items[sessionID]; ok {
		e.lastAccess = s.now()
		return e.c, nil
	}
	c := domain.NewConversationContext(sessionID)
	c.CreatedAt = s.now()
	c.LastActivity = c.CreatedAt
	s.items[sessionID] = &memoryEntry{c: c, lastAccess: c.CreatedAt}
	return c, nil
}

// Save stores the context and refreshes its idle timestamp. Idempotent
// for the pointer GetOrCreate handed out.
func (s *Memory) Save(_ context.Context, c *domain.ConversationContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.items[c.SessionID]; ok {
		e.c = c
		e.lastAccess = s.now()
		return nil
	}
	s.items[c.SessionID] = &memoryEntry{c: c, lastAccess: s.now()}
	return nil
}

// Clear drops the session state.
func (s *Memory) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, sessionID)
	return nil
}

// Len reports the number of live sessions, expired entries excluded.
func (s *Memory) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	return len(s.items)
}

// sweep removes idle sessions by the store-owned timestamps. Caller
// holds the lock.
func (s *Memory) sweep() {
	cutoff := s.now().Add(-s.ttl)
	for id, e := range s.items {
		if e.lastAccess.Before(cutoff) {
			delete(s.items, id)
		}
	}
}

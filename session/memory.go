package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/zentist/clinicdesk/core"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Store with lazy TTL expiry. Entries pass
// through the JSON codec on both sides so the stored format matches what the
// durable store would hold.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates a MemoryStore. A non-positive ttl defaults to
// DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: map[string]memoryEntry{},
		ttl:     ttl,
		now:     time.Now,
	}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, userID, conversationID string) (core.ConversationState, bool, error) {
	key := Key(userID, conversationID)

	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return core.ConversationState{}, false, nil
	}
	if s.now().After(entry.expiresAt) {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Save may have renewed it.
		if cur, ok := s.entries[key]; ok && s.now().After(cur.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return core.ConversationState{}, false, nil
	}

	var state core.ConversationState
	if err := json.Unmarshal(entry.data, &state); err != nil {
		return core.ConversationState{}, false, fmt.Errorf("session: decode %s: %w", key, err)
	}
	return state, true, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, userID, conversationID string, state core.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("session: encode state: %w", err)
	}

	s.mu.Lock()
	s.entries[Key(userID, conversationID)] = memoryEntry{
		data:      data,
		expiresAt: s.now().Add(s.ttl),
	}
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps entries in process memory and is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Key]Entry
	now     func() time.Time
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Key]Entry), now: time.Now}
}

func (s *MemoryStore) Get(ctx context.Context, key Key) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || !entry.ExpiresAt.After(s.now()) {
		return Entry{}, ErrMiss
	}
	return entry, nil
}

func (s *MemoryStore) Put(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Key] = entry
	return nil
}

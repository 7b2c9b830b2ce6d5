package sink

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	status  Status
	expires time.Time
}

// MemoryStore is an in-process Store. Keys expire after ttl, and expired
// entries are swept at most once per ttl.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Reserve(_ context.Context, key string) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	if e, ok := s.entries[key]; ok && now.Before(e.expires) {
		return e.status, nil
	}
	s.entries[key] = memoryEntry{status: StatusPending, expires: now.Add(s.ttl)}
	return StatusNew, nil
}

func (s *MemoryStore) MarkDelivered(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{status: StatusDelivered, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep(s.now())
	return len(s.entries)
}

// sweep must be called with mu held.
func (s *MemoryStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < s.ttl {
		return
	}
	for key, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, key)
		}
	}
	s.lastSweep = now
}

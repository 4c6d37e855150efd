package embedder

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	vec     []float64
	expires time.Time
}

// MemoryStore is an in-process Store. A zero ttl never expires.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	maxEntries int
	now        func() time.Time
}

// NewMemoryStore creates a store holding at most maxEntries vectors. Zero
// means unbounded.
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the vector under key. Expired entries are dropped on read.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]float64, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		s.mu.Lock()
		defer s.mu.Unlock()
		// a Set may have refreshed the entry since the read lock was dropped
		if cur, ok := s.entries[key]; ok {
			if cur.expires.IsZero() || s.now().Before(cur.expires) {
				return cur.vec, true, nil
			}
			delete(s.entries, key)
		}
		return nil, false, nil
	}
	return e.vec, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, vec []float64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		s.evictLocked(now)
	}

	var expires time.Time
	if ttl > 0 {
		expires = now.Add(ttl)
	}
	s.entries[key] = memoryEntry{vec: vec, expires: expires}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// evictLocked drops expired entries, then the soonest-to-expire one if the
// store is still full.
func (s *MemoryStore) evictLocked(now time.Time) {
	var (
		victim   string
		earliest time.Time
	)
	for k, e := range s.entries {
		if !e.expires.IsZero() && !now.Before(e.expires) {
			delete(s.entries, k)
			continue
		}
		if victim == "" || (!e.expires.IsZero() && (earliest.IsZero() || e.expires.Before(earliest))) {
			victim, earliest = k, e.expires
		}
	}
	if len(s.entries) >= s.maxEntries && victim != "" {
		delete(s.entries, victim)
	}
}

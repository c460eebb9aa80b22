package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	values    map[string]string
	expiresAt time.Time
}

// MemoryStore is a process-local Store used when redis is not configured.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, sid, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.live(sid)
	if entry == nil {
		return "", false, nil
	}
	val, ok := entry.values[key]
	return val, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, sid, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.live(sid)
	if entry == nil {
		entry = &memoryEntry{values: make(map[string]string)}
		s.sessions[sid] = entry
	}
	entry.values[key] = value
	entry.expiresAt = s.now().Add(s.ttl)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sid string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.live(sid)
	if entry == nil {
		return nil
	}
	for _, k := range keys {
		delete(entry.values, k)
	}
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	now := s.now()
	for sid, entry := range s.sessions {
		if !now.Before(entry.expiresAt) {
			delete(s.sessions, sid)
			removed++
		}
	}
	return removed
}

// live returns the entry for sid, evicting it if expired. Caller holds mu.
func (s *MemoryStore) live(sid string) *memoryEntry {
	entry, ok := s.sessions[sid]
	if !ok {
		return nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.sessions, sid)
		return nil
	}
	return entry
}

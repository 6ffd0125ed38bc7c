package store

import (
	"context"
	"sync"
	"time"

	"github.com/tgexam/backend/internal/model"
)

// MemorySessionStore is the process-local SessionStore for single-instance
// deployments. Records expire after the configured TTL, refreshed on Put.
type MemorySessionStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
	done    chan struct{}
	once    sync.Once
}

type memoryEntry struct {
	rec       model.SessionRecord
	expiresAt time.Time
}

// NewMemorySessionStore creates the store and starts its expiry janitor.
// Call Close to stop the janitor.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	s := &MemorySessionStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		done:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

func (s *MemorySessionStore) Get(_ context.Context, sessionID string) (*model.SessionRecord, error) {
	s.mu.RLock()
	entry, ok := s.entries[sessionID]
	s.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, ErrNotFound
	}
	rec := entry.rec
	return &rec, nil
}

func (s *MemorySessionStore) Put(_ context.Context, rec *model.SessionRecord) error {
	s.mu.Lock()
	s.entries[rec.SessionID] = memoryEntry{
		rec:       *rec,
		expiresAt: time.Now().Add(s.ttl),
	}
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.entries, sessionID)
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) List(_ context.Context) ([]model.SessionRecord, error) {
	now := time.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.SessionRecord, 0, len(s.entries))
	for _, entry := range s.entries {
		if now.After(entry.expiresAt) {
			continue
		}
		out = append(out, entry.rec)
	}
	return out, nil
}

// Close stops the expiry janitor.
func (s *MemorySessionStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *MemorySessionStore) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemorySessionStore) sweep() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
}

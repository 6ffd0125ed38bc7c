package exam

import (
	"sync"

	"github.com/tgexam/backend/internal/model"
)

// Manager holds the in-process attempts keyed by session id. A page reload
// starts a fresh attempt for the same session; the registry record keeps the
// accumulated counters across reloads.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	pool     []model.Question
	attempts map[string]*Attempt
}

// NewManager creates a Manager over the loaded question pool.
func NewManager(cfg Config, pool []model.Question) *Manager {
	return &Manager{
		cfg:      cfg,
		pool:     pool,
		attempts: make(map[string]*Attempt),
	}
}

// Begin creates and starts a fresh attempt for the session, replacing any
// previous unfinished one.
func (m *Manager) Begin(sessionID, candidateName string, opts ...AttemptOption) (*Attempt, error) {
	att := NewAttempt(m.cfg, m.pool, opts...)
	if err := att.Begin(candidateName); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.attempts[sessionID] = att
	m.mu.Unlock()
	return att, nil
}

// Get returns the attempt for a session, or nil.
func (m *Manager) Get(sessionID string) *Attempt {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attempts[sessionID]
}

// Remove drops the attempt for a session.
func (m *Manager) Remove(sessionID string) {
	m.mu.Lock()
	delete(m.attempts, sessionID)
	m.mu.Unlock()
}

// Expired is an attempt the expiry sweep just finished with reason time_up.
type Expired struct {
	SessionID string
	Fields    *model.ResultFields
}

// ExpireOverdue finishes all overdue in-progress attempts and removes them
// from the manager, returning their final submission fields.
func (m *Manager) ExpireOverdue() []Expired {
	m.mu.Lock()
	snapshot := make(map[string]*Attempt, len(m.attempts))
	for id, att := range m.attempts {
		snapshot[id] = att
	}
	m.mu.Unlock()

	var out []Expired
	for id, att := range snapshot {
		if att.Phase() != PhaseInProgress {
			continue
		}
		if !att.ExpireIfOverdue() {
			continue
		}
		if fields := att.ResultFields(); fields != nil {
			out = append(out, Expired{SessionID: id, Fields: fields})
		}
		m.Remove(id)
	}
	return out
}

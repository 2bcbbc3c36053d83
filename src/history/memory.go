package history

import (
	"context"
	"sync"
)

// MemoryStore keeps history in process memory. Used by tests and as the
// default when no persistent backend is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Envelope // most recent first
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(ctx context.Context) ([]Envelope, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Envelope, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *MemoryStore) Save(ctx context.Context, env Envelope) error {
	if env.Record == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.Record != nil && e.Record.SourceURL == env.Record.SourceURL {
			continue
		}
		kept = append(kept, e)
	}
	m.entries = append([]Envelope{env}, kept...)
	if len(m.entries) > Capacity {
		m.entries = m.entries[:Capacity]
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries {
		if e.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	return nil
}

var _ Store = (*MemoryStore)(nil)

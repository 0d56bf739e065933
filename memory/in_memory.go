package memory

import (
	"context"
	"sync"
	"time"

	"github.com/planmesh/planmesh/core"
)

// InMemoryStore is a volatile core.MemoryStore backed by per-conversation,
// per-type slices kept in chronological order. Safe for concurrent access;
// best suited for tests and demo servers.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[core.MemoryType][]core.MemoryRecord
}

// NewInMemoryStore constructs an empty in-memory memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]map[core.MemoryType][]core.MemoryRecord)}
}

// Append implements core.MemoryStore.
func (m *InMemoryStore) Append(_ context.Context, record core.MemoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if record.ID == "" {
		record.ID = core.NewID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	byType, ok := m.records[record.ConversationID]
	if !ok {
		byType = make(map[core.MemoryType][]core.MemoryRecord)
		m.records[record.ConversationID] = byType
	}
	byType[record.Type] = append(byType[record.Type], record)
	return nil
}

// Recent implements core.MemoryStore, returning newest records first.
func (m *InMemoryStore) Recent(_ context.Context, conversationID string, t core.MemoryType, limit int) ([]core.MemoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chronological := m.records[conversationID][t]
	return newestFirst(chronological, limit), nil
}

// RecentAll implements core.MemoryStore.
func (m *InMemoryStore) RecentAll(_ context.Context, conversationID string) (map[core.MemoryType][]core.MemoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[core.MemoryType][]core.MemoryRecord)
	for t, recs := range m.records[conversationID] {
		out[t] = newestFirst(recs, 0)
	}
	return out, nil
}

// PruneOldest implements core.MemoryStore, dropping the oldest records of one
// type beyond keep.
func (m *InMemoryStore) PruneOldest(_ context.Context, conversationID string, t core.MemoryType, keep int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byType, ok := m.records[conversationID]
	if !ok {
		return nil
	}
	recs := byType[t]
	if keep < 0 {
		keep = 0
	}
	if len(recs) <= keep {
		return nil
	}
	byType[t] = append([]core.MemoryRecord(nil), recs[len(recs)-keep:]...)
	return nil
}

// DeleteConversation implements core.MemoryStore.
func (m *InMemoryStore) DeleteConversation(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, conversationID)
	return nil
}

func newestFirst(chronological []core.MemoryRecord, limit int) []core.MemoryRecord {
	n := len(chronological)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]core.MemoryRecord, 0, n)
	for i := len(chronological) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, chronological[i])
	}
	return out
}

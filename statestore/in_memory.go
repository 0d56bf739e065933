// Package statestore provides StateStore implementations: a process-local
// in-memory store for tests and demos, and a PostgreSQL store for durable
// deployments. A factory selects between them from configuration.
package statestore

import (
	"context"
	"sync"
	"time"

	"github.com/planmesh/planmesh/core"
)

// InMemoryStore is a volatile StateStore backed by a process-local map.
// It is safe for concurrent access; every record crossing the boundary is
// copied so callers can never mutate internal state.
type InMemoryStore struct {
	mu     sync.RWMutex
	states map[string]*core.StoredState
}

// NewInMemoryStore constructs an empty in-memory state store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{states: make(map[string]*core.StoredState)}
}

// Load returns a copy of the stored state or ErrConversationNotFound.
func (s *InMemoryStore) Load(_ context.Context, conversationID string) (*core.StoredState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[conversationID]
	if !ok {
		return nil, core.ErrConversationNotFound
	}
	return copyState(st), nil
}

// Create stores the initial record at version 1. A second Create for the
// same conversation fails with ErrConversationExists and changes nothing.
func (s *InMemoryStore) Create(_ context.Context, state *core.StoredState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[state.ConversationID]; ok {
		return core.ErrConversationExists
	}
	stored := copyState(state)
	stored.Version = 1
	stored.UpdatedAt = time.Now().UTC()
	s.states[state.ConversationID] = stored
	state.Version = stored.Version
	state.UpdatedAt = stored.UpdatedAt
	return nil
}

// Update commits the record only when the presented version matches the
// stored one, then bumps the version. A stale version fails with
// ErrVersionConflict.
func (s *InMemoryStore) Update(_ context.Context, state *core.StoredState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.states[state.ConversationID]
	if !ok {
		return core.ErrConversationNotFound
	}
	if current.Version != state.Version {
		return core.ErrVersionConflict
	}
	stored := copyState(state)
	stored.Version = current.Version + 1
	stored.UpdatedAt = time.Now().UTC()
	s.states[state.ConversationID] = stored
	state.Version = stored.Version
	state.UpdatedAt = stored.UpdatedAt
	return nil
}

// Delete removes the record; deleting an unknown conversation is a no-op.
func (s *InMemoryStore) Delete(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, conversationID)
	return nil
}

func copyState(st *core.StoredState) *core.StoredState {
	cp := *st
	cp.State = append([]byte(nil), st.State...)
	return &cp
}

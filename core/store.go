package core

import (
	"context"
	"encoding/json"
	"time"
)

// StoredState is the persisted form of a conversation's workflow state.
// One record exists per conversation; it is created on first access and
// updated after every successful turn.
//
// Version implements optimistic concurrency: Update only succeeds when the
// caller presents the version it loaded, so two concurrent turns for the
// same conversation cannot both commit.
type StoredState struct {
	ConversationID string          `json:"conversation_id"`
	OrganizationID int64           `json:"organization_id"`
	AgentType      string          `json:"agent_type"`
	State          json.RawMessage `json:"state"`
	Version        int64           `json:"version"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// StateStore persists conversation state blobs keyed by conversation id.
//
// Contract:
//   - Create is at-most-once per conversation: a second Create for the same
//     id fails with ErrConversationExists, never overwrites
//   - Update requires the loaded Version and bumps it on success; a stale
//     version fails with ErrVersionConflict and commits nothing
//   - Load returns ErrConversationNotFound for unknown ids
type StateStore interface {
	Load(ctx context.Context, conversationID string) (*StoredState, error)
	Create(ctx context.Context, state *StoredState) error
	Update(ctx context.Context, state *StoredState) error
	Delete(ctx context.Context, conversationID string) error
}

package core

import (
	"context"
	"time"
)

// MemoryType partitions memory records by the kind of derived fact they hold.
type MemoryType string

const (
	// MemoryUserPreferences holds stated or inferred user preferences.
	MemoryUserPreferences MemoryType = "user_preferences"
	// MemoryDecisionHistory holds decisions made during planning.
	MemoryDecisionHistory MemoryType = "decision_history"
	// MemoryClarifications holds question/answer pairs that resolved ambiguity.
	MemoryClarifications MemoryType = "clarifications"
	// MemoryRecommendations holds recommendations already surfaced to the user.
	MemoryRecommendations MemoryType = "recommendations_given"
)

// MemoryTypes lists every known memory partition, in summary composition order.
func MemoryTypes() []MemoryType {
	return []MemoryType{
		MemoryUserPreferences,
		MemoryDecisionHistory,
		MemoryClarifications,
		MemoryRecommendations,
	}
}

// MemoryRecord is one derived fact about a conversation. Records are
// append-only; they are never updated in place, only superseded or pruned.
type MemoryRecord struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	OrganizationID int64          `json:"organization_id"`
	Type           MemoryType     `json:"memory_type"`
	Content        map[string]any `json:"content"`
	Context        string         `json:"context,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// MemoryStore persists conversation memory records. Implementations must
// order reads most-recent-first.
type MemoryStore interface {
	Append(ctx context.Context, record MemoryRecord) error
	// Recent returns up to limit records of one type, newest first.
	// limit <= 0 means no limit.
	Recent(ctx context.Context, conversationID string, t MemoryType, limit int) ([]MemoryRecord, error)
	// RecentAll returns all records for a conversation partitioned by type,
	// each partition newest first, in a single pass.
	RecentAll(ctx context.Context, conversationID string) (map[MemoryType][]MemoryRecord, error)
	// PruneOldest deletes the oldest records of one type beyond keep.
	PruneOldest(ctx context.Context, conversationID string, t MemoryType, keep int) error
	// DeleteConversation removes every record for a conversation.
	DeleteConversation(ctx context.Context, conversationID string) error
}

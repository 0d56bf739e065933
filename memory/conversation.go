package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/planmesh/planmesh/core"
	"github.com/planmesh/planmesh/logging"
)

const (
	// DefaultMaxItems caps how many records of one memory type a
	// conversation retains; older records are pruned after each write.
	DefaultMaxItems = 50

	// DefaultCacheTTL bounds how long reads are served from the local cache
	// before refreshing from the store.
	DefaultCacheTTL = 5 * time.Minute

	// NoContextSummary is returned when a conversation has no memory yet.
	NoContextSummary = "No prior context for this conversation."
)

// Options configures a Conversation memory view.
type Options struct {
	MaxItems int
	CacheTTL time.Duration
	Logger   logging.Logger
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Conversation is the memory view scoped to one conversation and tenant.
// It layers synchronous retention pruning and a time-boxed read cache over a
// core.MemoryStore.
//
// Add* methods are best effort: store failures are logged and swallowed so a
// lost fact never fails the user-facing turn. Read methods do propagate
// errors, since callers can fall back to an empty view.
type Conversation struct {
	store          core.MemoryStore
	conversationID string
	organizationID int64
	maxItems       int
	cacheTTL       time.Duration
	logger         logging.Logger
	now            func() time.Time

	mu        sync.Mutex
	cache     map[core.MemoryType][]core.MemoryRecord
	cachedAt  time.Time
	cacheWarm bool
}

// NewConversation binds a memory view to a conversation and organization.
func NewConversation(store core.MemoryStore, conversationID string, organizationID int64, optFns ...func(o *Options)) *Conversation {
	opts := Options{
		MaxItems: DefaultMaxItems,
		CacheTTL: DefaultCacheTTL,
		Logger:   logging.NoOpLogger{},
		Now:      time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultMaxItems
	}
	return &Conversation{
		store:          store,
		conversationID: conversationID,
		organizationID: organizationID,
		maxItems:       opts.MaxItems,
		cacheTTL:       opts.CacheTTL,
		logger:         opts.Logger,
		now:            opts.Now,
	}
}

// AddMemory appends a derived fact, invalidates the read cache, and prunes
// the written type back to the retention cap. Failures are logged, never
// returned.
func (c *Conversation) AddMemory(ctx context.Context, t core.MemoryType, content map[string]any, contextNote string) {
	record := core.MemoryRecord{
		ConversationID: c.conversationID,
		OrganizationID: c.organizationID,
		Type:           t,
		Content:        content,
		Context:        contextNote,
	}
	if err := c.store.Append(ctx, record); err != nil {
		c.logger.Warn("memory write failed", "conversation_id", c.conversationID, "memory_type", string(t), "error", err)
		return
	}

	c.mu.Lock()
	c.cacheWarm = false
	c.mu.Unlock()

	if err := c.store.PruneOldest(ctx, c.conversationID, t, c.maxItems); err != nil {
		c.logger.Warn("memory prune failed", "conversation_id", c.conversationID, "memory_type", string(t), "error", err)
	}
}

// TrackPreference records a stated user preference.
func (c *Conversation) TrackPreference(ctx context.Context, key string, value any) {
	c.AddMemory(ctx, core.MemoryUserPreferences, map[string]any{"key": key, "value": value}, "")
}

// TrackDecision records a decision and its rationale.
func (c *Conversation) TrackDecision(ctx context.Context, decision, rationale string) {
	c.AddMemory(ctx, core.MemoryDecisionHistory, map[string]any{"decision": decision, "rationale": rationale}, "")
}

// TrackClarification records a resolved question/answer pair.
func (c *Conversation) TrackClarification(ctx context.Context, question, answer string) {
	c.AddMemory(ctx, core.MemoryClarifications, map[string]any{"question": question, "answer": answer}, "")
}

// TrackRecommendation records a recommendation already surfaced to the user.
func (c *Conversation) TrackRecommendation(ctx context.Context, topic, summary string) {
	c.AddMemory(ctx, core.MemoryRecommendations, map[string]any{"topic": topic, "summary": summary}, "")
}

// GetMemory returns up to limit records of one type, newest first. Reads are
// served from the cache while it is fresher than the TTL; otherwise the
// whole conversation is refreshed from the store in one pass.
func (c *Conversation) GetMemory(ctx context.Context, t core.MemoryType, limit int) ([]core.MemoryRecord, error) {
	byType, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	records := byType[t]
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	out := make([]core.MemoryRecord, len(records))
	copy(out, records)
	return out, nil
}

// ContextSummary composes a short natural-language digest from the most
// recent preferences, decisions and clarifications. It is a formatting
// convenience, not a source of truth, and tolerates empty memory.
func (c *Conversation) ContextSummary(ctx context.Context) (string, error) {
	byType, err := c.snapshot(ctx)
	if err != nil {
		return "", err
	}

	var parts []string
	if prefs := summarizeRecords(byType[core.MemoryUserPreferences], 3, func(content map[string]any) string {
		return fmt.Sprintf("%v: %v", content["key"], content["value"])
	}); prefs != "" {
		parts = append(parts, "Preferences: "+prefs)
	}
	if decisions := summarizeRecords(byType[core.MemoryDecisionHistory], 3, func(content map[string]any) string {
		return fmt.Sprintf("%v", content["decision"])
	}); decisions != "" {
		parts = append(parts, "Decisions: "+decisions)
	}
	if clarifications := summarizeRecords(byType[core.MemoryClarifications], 2, func(content map[string]any) string {
		return fmt.Sprintf("%v -> %v", content["question"], content["answer"])
	}); clarifications != "" {
		parts = append(parts, "Clarified: "+clarifications)
	}

	if len(parts) == 0 {
		return NoContextSummary, nil
	}
	return strings.Join(parts, ". ") + ".", nil
}

func summarizeRecords(records []core.MemoryRecord, max int, format func(map[string]any) string) string {
	if max > len(records) {
		max = len(records)
	}
	items := make([]string, 0, max)
	for _, r := range records[:max] {
		if s := format(r.Content); s != "" {
			items = append(items, s)
		}
	}
	return strings.Join(items, "; ")
}

// snapshot returns the cached partition map, refreshing it when stale.
func (c *Conversation) snapshot(ctx context.Context) (map[core.MemoryType][]core.MemoryRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cacheWarm && c.now().Sub(c.cachedAt) < c.cacheTTL {
		return c.cache, nil
	}
	byType, err := c.store.RecentAll(ctx, c.conversationID)
	if err != nil {
		return nil, fmt.Errorf("refresh memory cache: %w", err)
	}
	c.cache = byType
	c.cachedAt = c.now()
	c.cacheWarm = true
	return c.cache, nil
}

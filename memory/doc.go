// Package memory implements the bounded conversational memory subsystem:
// an append-only, tenant-scoped log of derived facts (preferences, decisions,
// clarifications, recommendations) with type-partitioned retention and a
// time-boxed read cache.
//
// Two core.MemoryStore implementations are provided — in-memory and
// PostgreSQL — selected through NewStore. The Conversation type layers the
// retention policy, the read-through cache and the context-summary view on
// top of whichever store backs it.
//
// Memory writes are best effort: failures are logged and swallowed, because
// losing an auxiliary fact must never abort a user-facing turn.
package memory

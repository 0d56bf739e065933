package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/planmesh/planmesh/core"
)

// PostgresStore persists conversational memory records in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to PostgreSQL and ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS memory_records (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			organization_id BIGINT NOT NULL,
			memory_type TEXT NOT NULL,
			content JSONB NOT NULL,
			context TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_memory_records_conv_type_created
			ON memory_records (conversation_id, memory_type, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

// Append implements core.MemoryStore.
func (s *PostgresStore) Append(ctx context.Context, record core.MemoryRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO memory_records (id, conversation_id, organization_id, memory_type, content, context, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		record.ID,
		record.ConversationID,
		record.OrganizationID,
		record.Type,
		record.Content,
		record.Context,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append memory record: %w", err)
	}
	return nil
}

// Recent implements core.MemoryStore, returning newest records first.
func (s *PostgresStore) Recent(ctx context.Context, conversationID string, t core.MemoryType, limit int) ([]core.MemoryRecord, error) {
	query := `SELECT id, conversation_id, organization_id, memory_type, content, context, created_at
		 FROM memory_records WHERE conversation_id=$1 AND memory_type=$2
		 ORDER BY created_at DESC`
	args := []any{conversationID, t}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query memory records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// RecentAll implements core.MemoryStore in a single pass over the conversation.
func (s *PostgresStore) RecentAll(ctx context.Context, conversationID string) (map[core.MemoryType][]core.MemoryRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, conversation_id, organization_id, memory_type, content, context, created_at
		 FROM memory_records WHERE conversation_id=$1 ORDER BY created_at DESC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query memory records: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}

	out := make(map[core.MemoryType][]core.MemoryRecord)
	for _, r := range records {
		out[r.Type] = append(out[r.Type], r)
	}
	return out, nil
}

// PruneOldest implements core.MemoryStore.
func (s *PostgresStore) PruneOldest(ctx context.Context, conversationID string, t core.MemoryType, keep int) error {
	if keep < 0 {
		keep = 0
	}
	_, err := s.pool.Exec(ctx,
		`DELETE FROM memory_records WHERE id IN (
			SELECT id FROM memory_records
			WHERE conversation_id=$1 AND memory_type=$2
			ORDER BY created_at DESC OFFSET $3
		)`,
		conversationID, t, keep,
	)
	if err != nil {
		return fmt.Errorf("prune memory records: %w", err)
	}
	return nil
}

// DeleteConversation implements core.MemoryStore.
func (s *PostgresStore) DeleteConversation(ctx context.Context, conversationID string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM memory_records WHERE conversation_id=$1`, conversationID,
	); err != nil {
		return fmt.Errorf("delete memory records: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRecords(rows pgxRows) ([]core.MemoryRecord, error) {
	var records []core.MemoryRecord
	for rows.Next() {
		var r core.MemoryRecord
		if err := rows.Scan(&r.ID, &r.ConversationID, &r.OrganizationID, &r.Type, &r.Content, &r.Context, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan memory record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memory records: %w", err)
	}
	return records, nil
}

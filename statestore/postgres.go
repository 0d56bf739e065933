package statestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/planmesh/planmesh/core"
)

// PostgresStore persists conversation state in PostgreSQL. The conditional
// insert gives at-most-once creation and the version-guarded update gives
// optimistic concurrency without any advisory locking.
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
		`CREATE TABLE IF NOT EXISTS conversation_states (
			conversation_id TEXT PRIMARY KEY,
			organization_id BIGINT NOT NULL,
			agent_type TEXT NOT NULL,
			state JSONB NOT NULL,
			version BIGINT NOT NULL DEFAULT 1,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversation_states_org ON conversation_states (organization_id);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

// Load implements core.StateStore.
func (s *PostgresStore) Load(ctx context.Context, conversationID string) (*core.StoredState, error) {
	var st core.StoredState
	err := s.pool.QueryRow(ctx,
		`SELECT conversation_id, organization_id, agent_type, state, version, updated_at
		 FROM conversation_states WHERE conversation_id=$1`,
		conversationID,
	).Scan(&st.ConversationID, &st.OrganizationID, &st.AgentType, &st.State, &st.Version, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation state: %w", err)
	}
	return &st, nil
}

// Create implements core.StateStore. ON CONFLICT DO NOTHING makes concurrent
// first accesses race safely: exactly one insert wins, the rest observe
// ErrConversationExists and reload.
func (s *PostgresStore) Create(ctx context.Context, state *core.StoredState) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO conversation_states (conversation_id, organization_id, agent_type, state, version, updated_at)
		 VALUES ($1, $2, $3, $4, 1, now())
		 ON CONFLICT (conversation_id) DO NOTHING`,
		state.ConversationID,
		state.OrganizationID,
		state.AgentType,
		state.State,
	)
	if err != nil {
		return fmt.Errorf("create conversation state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrConversationExists
	}
	state.Version = 1
	return nil
}

// Update implements core.StateStore with an optimistic version guard.
func (s *PostgresStore) Update(ctx context.Context, state *core.StoredState) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE conversation_states
		 SET state=$1, version=version+1, updated_at=now()
		 WHERE conversation_id=$2 AND version=$3`,
		state.State,
		state.ConversationID,
		state.Version,
	)
	if err != nil {
		return fmt.Errorf("update conversation state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM conversation_states WHERE conversation_id=$1)`,
			state.ConversationID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("update conversation state: %w", err)
		}
		if !exists {
			return core.ErrConversationNotFound
		}
		return core.ErrVersionConflict
	}
	state.Version++
	return nil
}

// Delete implements core.StateStore.
func (s *PostgresStore) Delete(ctx context.Context, conversationID string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM conversation_states WHERE conversation_id=$1`, conversationID,
	); err != nil {
		return fmt.Errorf("delete conversation state: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

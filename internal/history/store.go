package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// MaxLimit caps the number of entries Recent returns.
const MaxLimit = 100

// Store defines the interface for browse history operations.
type Store interface {
	Record(ctx context.Context, entry *Entry) error
	Recent(ctx context.Context, sessionID string, limit int) ([]*Entry, error)
}

// PostgresStore implements the Store interface for PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(dataSourceName string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Create browse_history table if not exists
	schema := `
	CREATE TABLE IF NOT EXISTS browse_history (
		id BIGSERIAL PRIMARY KEY,
		session_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		term TEXT NOT NULL,
		result_count INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to create browse_history table: %w", err)
	}

	schema = `CREATE INDEX IF NOT EXISTS browse_history_session_created_at_idx ON browse_history (session_id, created_at DESC);`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to create browse_history index: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Record saves a browse action to the database.
func (s *PostgresStore) Record(ctx context.Context, entry *Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	err := s.db.QueryRowxContext(ctx,
		"INSERT INTO browse_history (session_id, kind, term, result_count, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		entry.SessionID,
		entry.Kind,
		entry.Term,
		entry.ResultCount,
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to record browse history: %w", err)
	}
	return nil
}

// Recent retrieves the newest entries of one session first.
func (s *PostgresStore) Recent(ctx context.Context, sessionID string, limit int) ([]*Entry, error) {
	limit = clampLimit(limit)

	var entries []*Entry
	err := s.db.SelectContext(ctx, &entries,
		"SELECT id, session_id, kind, term, result_count, created_at FROM browse_history WHERE session_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2",
		sessionID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get browse history: %w", err)
	}
	if entries == nil {
		entries = []*Entry{}
	}
	return entries, nil
}

// Ping verifies the connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

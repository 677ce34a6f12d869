package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	log "github.com/sirupsen/logrus"

	"github.com/mediahunt/huntboard/internal/config"
)

const defaultStateTable = "huntboard_state"

// PostgresStore persists state rows in PostgreSQL so several daemon instances
// can share linked credentials and cache state. Same best-effort contract as
// the file store: read failures degrade to a miss.
type PostgresStore struct {
	db    *sql.DB
	table string
	mu    sync.Mutex
}

// NewPostgresStore connects to PostgreSQL and ensures the state table exists.
func NewPostgresStore(ctx context.Context, cfg config.PostgresConfig) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("postgres store: DSN is required")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: open database connection: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres store: ping database: %w", err)
	}

	table := strings.TrimSpace(cfg.Table)
	if table == "" {
		table = defaultStateTable
	}
	if schema := strings.TrimSpace(cfg.Schema); schema != "" {
		if _, err = db.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %q`, schema)); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("postgres store: create schema: %w", err)
		}
		table = fmt.Sprintf("%q.%q", schema, table)
	} else {
		table = fmt.Sprintf("%q", table)
	}

	store := &PostgresStore{db: db, table: table}
	if err = store.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database connection.
func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
        key TEXT PRIMARY KEY,
        value BYTEA NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`, s.table)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("postgres store: ensure table: %w", err)
	}
	return nil
}

// Get reads the value for key. Query failures are logged and degrade to a miss.
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool) {
	var value []byte
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, s.table)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Debugf("postgres store: read %s failed: %v", key, err)
		}
		return nil, false
	}
	return value, true
}

// Set upserts the value for key.
func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt := fmt.Sprintf(`INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, now())
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, s.table)
	if _, err := s.db.ExecContext(ctx, stmt, key, value); err != nil {
		return fmt.Errorf("postgres store: write %s: %w", key, err)
	}
	return nil
}

// Delete removes the row for key. Deleting an absent key is not an error.
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.table)
	if _, err := s.db.ExecContext(ctx, stmt, key); err != nil {
		return fmt.Errorf("postgres store: delete %s: %w", key, err)
	}
	return nil
}

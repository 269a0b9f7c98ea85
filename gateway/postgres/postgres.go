// Package postgres implements the gateway Store on PostgreSQL via pgx. A
// Save call replaces the session's conversation rows and upserts its summary
// inside one transaction, so re-invoking it under retry never duplicates
// rows. The connection pool is constructed and owned explicitly; size it to
// the expected concurrent-activity ceiling, not one connection per session.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hupe1980/chatmesh/core"
	"github.com/hupe1980/chatmesh/gateway"
	"github.com/hupe1980/chatmesh/logging"
)

// Schema contains the DDL for the two tables the store writes. Kept here so
// deployments can apply it with EnsureSchema or through their own migrations.
const Schema = `
CREATE TABLE IF NOT EXISTS conversations (
	session_key   TEXT   NOT NULL,
	role          TEXT   NOT NULL,
	message       TEXT   NOT NULL,
	message_order INT    NOT NULL,
	owner_id      BIGINT,
	PRIMARY KEY (session_key, message_order)
);

CREATE TABLE IF NOT EXISTS conversation_summaries (
	session_key TEXT PRIMARY KEY,
	summary     TEXT NOT NULL,
	owner_id    BIGINT,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Options configure the Postgres store.
type Options struct {
	MaxConns int32
	Logger   logging.Logger
}

// Store persists transcripts and summaries through an injected pgx pool.
type Store struct {
	pool *pgxpool.Pool
	opts Options
}

var _ gateway.Store = (*Store)(nil)

// New parses the DSN, builds a pool bounded by MaxConns and verifies
// connectivity with a ping.
func New(ctx context.Context, dsn string, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{MaxConns: 20, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = opts.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	opts.Logger.Info("database connection pool created", "max_conns", opts.MaxConns)
	return &Store{pool: pool, opts: opts}, nil
}

// NewFromPool wraps an existing pool (pool lifecycle stays with the caller).
func NewFromPool(pool *pgxpool.Pool, optFns ...func(o *Options)) *Store {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{pool: pool, opts: opts}
}

// EnsureSchema applies the store DDL. Idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return &core.PersistenceError{Err: fmt.Errorf("apply schema: %w", err)}
	}
	return nil
}

// Save atomically replaces the conversation rows for sessionKey with the
// given transcript and, when summary is non-empty, upserts the summary row.
// Either the whole transcript plus summary lands or none of it does.
func (s *Store) Save(ctx context.Context, sessionKey string, ownerID *int64, transcript core.Transcript, summary string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &core.PersistenceError{Err: fmt.Errorf("begin: %w", err)}
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.Exec(ctx, `DELETE FROM conversations WHERE session_key = $1`, sessionKey); err != nil {
		return &core.PersistenceError{Err: fmt.Errorf("clear conversation: %w", err)}
	}

	if len(transcript) > 0 {
		batch := &pgx.Batch{}
		for i, entry := range transcript {
			batch.Queue(
				`INSERT INTO conversations (session_key, role, message, message_order, owner_id) VALUES ($1, $2, $3, $4, $5)`,
				sessionKey, entry.Role, entry.Text, i, ownerID,
			)
		}
		results := tx.SendBatch(ctx, batch)
		for range transcript {
			if _, err := results.Exec(); err != nil {
				results.Close() //nolint:errcheck
				return &core.PersistenceError{Err: fmt.Errorf("insert conversation rows: %w", err)}
			}
		}
		if err := results.Close(); err != nil {
			return &core.PersistenceError{Err: fmt.Errorf("close batch: %w", err)}
		}
	}

	if summary != "" {
		_, err := tx.Exec(ctx, `
			INSERT INTO conversation_summaries (session_key, summary, owner_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (session_key) DO UPDATE SET
				summary = EXCLUDED.summary,
				owner_id = EXCLUDED.owner_id,
				updated_at = now()`,
			sessionKey, summary, ownerID,
		)
		if err != nil {
			return &core.PersistenceError{Err: fmt.Errorf("upsert summary: %w", err)}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &core.PersistenceError{Err: fmt.Errorf("commit: %w", err)}
	}

	s.opts.Logger.Debug("saved conversation", "session_key", sessionKey, "entries", len(transcript), "has_summary", summary != "")
	return nil
}

// Load returns the persisted transcript and summary for sessionKey. A session
// with no rows yields an empty transcript and no error.
func (s *Store) Load(ctx context.Context, sessionKey string) (core.Transcript, string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT role, message FROM conversations WHERE session_key = $1 ORDER BY message_order`,
		sessionKey,
	)
	if err != nil {
		return nil, "", &core.PersistenceError{Err: fmt.Errorf("query conversation: %w", err)}
	}
	defer rows.Close()

	var transcript core.Transcript
	for rows.Next() {
		var entry core.Entry
		if err := rows.Scan(&entry.Role, &entry.Text); err != nil {
			return nil, "", &core.PersistenceError{Err: fmt.Errorf("scan conversation row: %w", err)}
		}
		transcript = append(transcript, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, "", &core.PersistenceError{Err: fmt.Errorf("iterate conversation rows: %w", err)}
	}

	var summary string
	err = s.pool.QueryRow(ctx,
		`SELECT summary FROM conversation_summaries WHERE session_key = $1`,
		sessionKey,
	).Scan(&summary)
	if err != nil && err != pgx.ErrNoRows {
		return nil, "", &core.PersistenceError{Err: fmt.Errorf("query summary: %w", err)}
	}

	return transcript, summary, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() { s.pool.Close() }

// internal/database/documents.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/stakes/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL,
	version    BIGINT NOT NULL DEFAULT 1,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_status_idx ON documents (collection, (data->>'status'));
`

// SQLSTATEs postgres raises when a serializable transaction loses.
const (
	sqlSerializationFailure = "40001"
	sqlDeadlockDetected     = "40P01"
)

// DocumentStore implements store.Store on a single jsonb table. Every Transact runs at
// SERIALIZABLE isolation, so postgres detects the read/write conflicts and we re-run the loser.
type DocumentStore struct {
	pool        *pgxpool.Pool
	MaxAttempts int
}

func NewDocumentStore(pool *pgxpool.Pool) *DocumentStore {
	return &DocumentStore{pool: pool, MaxAttempts: store.DefaultMaxAttempts}
}

// EnsureSchema creates the documents table if it is missing.
func (s *DocumentStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure documents schema: %w", err)
	}
	return nil
}

func (s *DocumentStore) Get(ctx context.Context, key store.Key, dst any) error {
	return getDoc(ctx, s.pool, key, dst)
}

func (s *DocumentStore) Transact(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = store.DefaultMaxAttempts
	}
	for i := 0; i < attempts; i++ {
		err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
			return fn(ctx, &pgTx{tx: tx})
		})
		if !retryable(err) {
			return err
		}
	}
	return store.ErrConflict
}

func (s *DocumentStore) List(ctx context.Context, collection string, q store.Query) ([]string, error) {
	sql := `SELECT id FROM documents WHERE collection = $1`
	args := []any{collection}
	if q.Field != "" {
		args = append(args, q.Field, q.In)
		sql += fmt.Sprintf(` AND data->>$%d = ANY($%d)`, len(args)-1, len(args))
	}
	if !q.UpdatedBefore.IsZero() {
		args = append(args, q.UpdatedBefore)
		sql += fmt.Sprintf(` AND updated_at < $%d`, len(args))
	}
	sql += ` ORDER BY id`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return ids, nil
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlSerializationFailure || pgErr.Code == sqlDeadlockDetected
	}
	return false
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getDoc(ctx context.Context, q querier, key store.Key, dst any) error {
	var data []byte
	err := q.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		key.Collection, key.ID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return json.Unmarshal(data, dst)
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Get(ctx context.Context, key store.Key, dst any) error {
	return getDoc(ctx, t.tx, key, dst)
}

func (t *pgTx) Set(ctx context.Context, key store.Key, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	_, err = t.tx.Exec(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id)
		DO UPDATE SET data = EXCLUDED.data, version = documents.version + 1, updated_at = NOW()
	`, key.Collection, key.ID, data)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (t *pgTx) Create(ctx context.Context, key store.Key, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	ct, err := t.tx.Exec(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO NOTHING
	`, key.Collection, key.ID, data)
	if err != nil {
		return fmt.Errorf("create %s: %w", key, err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrAlreadyExists
	}
	return nil
}

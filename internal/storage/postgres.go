package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentsTable = "escolinha_documents"

// PostgresBackend stores one jsonb row per document. Swap takes a
// transaction-scoped advisory lock per key (in key order, so concurrent swaps
// cannot deadlock) before reading, which also covers keys with no row yet.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend wraps a pgx pool. Call Migrate once at startup.
func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

// Migrate creates the documents table when missing.
func (b *PostgresBackend) Migrate(ctx context.Context) error {
	_, err := b.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+documentsTable+` (
		doc_key    text PRIMARY KEY,
		value      jsonb NOT NULL,
		updated_at timestamptz NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return fmt.Errorf("migrate %s: %w", documentsTable, err)
	}
	return nil
}

func (b *PostgresBackend) Name() string { return "postgres" }

func (b *PostgresBackend) Load(ctx context.Context, key string) ([]byte, error) {
	var raw []byte
	err := b.pool.QueryRow(ctx, `SELECT value FROM `+documentsTable+` WHERE doc_key = $1`, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (b *PostgresBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := b.pool.Query(ctx,
		`SELECT doc_key FROM `+documentsTable+` WHERE doc_key LIKE $1 ESCAPE '\' ORDER BY doc_key`,
		escapeLike(prefix)+"%")
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (b *PostgresBackend) Swap(ctx context.Context, keys []string, fn func(map[string][]byte) (map[string][]byte, error)) error {
	tx, err := b.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, k := range keys {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, k); err != nil {
			return fmt.Errorf("lock %s: %w", k, err)
		}
	}

	rows, err := tx.Query(ctx, `SELECT doc_key, value FROM `+documentsTable+` WHERE doc_key = ANY($1)`, keys)
	if err != nil {
		return err
	}
	current := make(map[string][]byte, len(keys))
	for rows.Next() {
		var k string
		var raw []byte
		if err := rows.Scan(&k, &raw); err != nil {
			rows.Close()
			return err
		}
		current[k] = raw
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for k, raw := range next {
		if raw == nil {
			batch.Queue(`DELETE FROM `+documentsTable+` WHERE doc_key = $1`, k)
			continue
		}
		batch.Queue(`INSERT INTO `+documentsTable+` (doc_key, value, updated_at) VALUES ($1, $2::jsonb, now())
			ON CONFLICT (doc_key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, k, string(raw))
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

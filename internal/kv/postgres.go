package kv

import (
	"context"
	"database/sql"
	"fmt"
)

// Postgres persists entries in the kv_entries table. Every Put writes the
// full value and bumps the row's revision in one upsert, so the last writer
// wins and the returned revision is monotonic per key.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Get(ctx context.Context, key string) (string, error) {
	const query = `SELECT value FROM kv_entries WHERE key = $1`

	var value string
	err := p.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

func (p *Postgres) Put(ctx context.Context, key, value string) (int64, error) {
	const query = `
INSERT INTO kv_entries (key, value, revision, updated_at)
VALUES ($1, $2, 1, NOW())
ON CONFLICT (key) DO UPDATE
SET value = EXCLUDED.value,
    revision = kv_entries.revision + 1,
    updated_at = NOW()
RETURNING revision
`

	var revision int64
	if err := p.db.QueryRowContext(ctx, query, key, value).Scan(&revision); err != nil {
		return 0, fmt.Errorf("put %q: %w", key, err)
	}
	return revision, nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

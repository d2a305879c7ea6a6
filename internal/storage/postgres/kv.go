package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/waffle-kart/internal/kv"
)

var _ kv.Store = (*KVStore)(nil)

// KVStore implements kv.Store on the kv_entries table.
type KVStore struct {
	pool *pgxpool.Pool
}

// NewKVStore returns a KVStore that uses the given pool.
func NewKVStore(pool *pgxpool.Pool) *KVStore {
	return &KVStore{pool: pool}
}

// Get returns kv.ErrNotFound when the row does not exist.
func (s *KVStore) Get(ctx context.Context, scope, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM kv_entries WHERE scope = $1 AND key = $2`,
		scope, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, kv.ErrNotFound
		}
		return nil, fmt.Errorf("getting %s/%s: %w", scope, key, err)
	}
	return value, nil
}

// Put upserts the row.
func (s *KVStore) Put(ctx context.Context, scope, key string, value []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO kv_entries (scope, key, value, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (scope, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		scope, key, value,
	)
	if err != nil {
		return fmt.Errorf("putting %s/%s: %w", scope, key, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *KVStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the records table used by PostgresStore.
const Schema = `
	CREATE TABLE IF NOT EXISTS records (
		collection VARCHAR(64) NOT NULL,
		key VARCHAR(255) NOT NULL,
		doc JSONB NOT NULL,
		version BIGINT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (collection, key)
	);
`

// PostgresStore keeps records in a single PostgreSQL table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Load retrieves a record by collection and key.
func (s *PostgresStore) Load(ctx context.Context, collection, key string) (*Record, error) {
	const query = `
		SELECT key, doc, version
		FROM records
		WHERE collection = $1 AND key = $2
	`

	var rec Record
	err := s.pool.QueryRow(ctx, query, collection, key).Scan(&rec.Key, &rec.Data, &rec.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load record: %w", err)
	}

	return &rec, nil
}

// LoadAll retrieves every record in a collection.
func (s *PostgresStore) LoadAll(ctx context.Context, collection string) ([]Record, error) {
	const query = `
		SELECT key, doc, version
		FROM records
		WHERE collection = $1
		ORDER BY key
	`

	rows, err := s.pool.Query(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Key, &rec.Data, &rec.Version); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return recs, nil
}

// Save inserts (version 0) or updates (version > 0) a record with a version check.
func (s *PostgresStore) Save(ctx context.Context, collection string, rec Record) (int64, error) {
	if rec.Version == 0 {
		const insert = `
			INSERT INTO records (collection, key, doc, version, updated_at)
			VALUES ($1, $2, $3, 1, NOW())
			ON CONFLICT (collection, key) DO NOTHING
		`
		result, err := s.pool.Exec(ctx, insert, collection, rec.Key, rec.Data)
		if err != nil {
			return 0, fmt.Errorf("failed to insert record: %w", err)
		}
		if result.RowsAffected() == 0 {
			return 0, ErrVersionConflict
		}
		return 1, nil
	}

	const update = `
		UPDATE records
		SET doc = $3, version = version + 1, updated_at = NOW()
		WHERE collection = $1 AND key = $2 AND version = $4
		RETURNING version
	`

	var version int64
	err := s.pool.QueryRow(ctx, update, collection, rec.Key, rec.Data, rec.Version).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrVersionConflict
		}
		return 0, fmt.Errorf("failed to update record: %w", err)
	}

	return version, nil
}

// Close is a no-op; the pool is owned by the caller.
func (s *PostgresStore) Close() error {
	return nil
}

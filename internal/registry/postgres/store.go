package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/s3sig/internal/registry"
)

// Store implements registry.Store over a *DB.
type Store struct {
	db *DB
}

// NewStore wraps db as a registry.Store.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

func (s *Store) Register(ctx context.Context, rec registry.Record) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO multipart_registry (upload_id, bucket, key, part_count, state, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.UploadID, rec.Bucket, rec.Key, rec.PartCount, string(rec.State), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("registry/postgres: register: %w", err)
	}
	return nil
}

func (s *Store) UpdatePartCount(ctx context.Context, uploadID string, partCount int) error {
	_, err := s.db.Pool.Exec(ctx,
		`UPDATE multipart_registry SET part_count = $1 WHERE upload_id = $2`, partCount, uploadID)
	if err != nil {
		return fmt.Errorf("registry/postgres: update part count: %w", err)
	}
	return nil
}

func (s *Store) MarkState(ctx context.Context, uploadID string, state registry.State) error {
	_, err := s.db.Pool.Exec(ctx,
		`UPDATE multipart_registry SET state = $1 WHERE upload_id = $2`, string(state), uploadID)
	if err != nil {
		return fmt.Errorf("registry/postgres: mark state: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, uploadID string) (registry.Record, error) {
	row := s.db.Pool.QueryRow(ctx,
		`SELECT upload_id, bucket, key, part_count, state, created_at FROM multipart_registry WHERE upload_id = $1`,
		uploadID)

	var (
		rec   registry.Record
		state string
	)
	if err := row.Scan(&rec.UploadID, &rec.Bucket, &rec.Key, &rec.PartCount, &state, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return registry.Record{}, registry.ErrNotFound
		}
		return registry.Record{}, fmt.Errorf("registry/postgres: get: %w", err)
	}
	rec.State = registry.State(state)
	return rec, nil
}

func (s *Store) ListByState(ctx context.Context, state registry.State) ([]registry.Record, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT upload_id, bucket, key, part_count, state, created_at FROM multipart_registry WHERE state = $1`,
		string(state))
	if err != nil {
		return nil, fmt.Errorf("registry/postgres: list: %w", err)
	}
	defer rows.Close()

	var out []registry.Record
	for rows.Next() {
		var rec registry.Record
		var st string
		if err := rows.Scan(&rec.UploadID, &rec.Bucket, &rec.Key, &rec.PartCount, &st, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("registry/postgres: scan: %w", err)
		}
		rec.State = registry.State(st)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

var _ registry.Store = (*Store)(nil)

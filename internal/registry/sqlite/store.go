package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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
	_, err := s.db.db.ExecContext(ctx,
		`INSERT INTO multipart_registry (upload_id, bucket, key, part_count, state, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.UploadID, rec.Bucket, rec.Key, rec.PartCount, string(rec.State), rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("registry/sqlite: register: %w", err)
	}
	return nil
}

func (s *Store) UpdatePartCount(ctx context.Context, uploadID string, partCount int) error {
	_, err := s.db.db.ExecContext(ctx,
		`UPDATE multipart_registry SET part_count = ? WHERE upload_id = ?`, partCount, uploadID)
	if err != nil {
		return fmt.Errorf("registry/sqlite: update part count: %w", err)
	}
	return nil
}

func (s *Store) MarkState(ctx context.Context, uploadID string, state registry.State) error {
	_, err := s.db.db.ExecContext(ctx,
		`UPDATE multipart_registry SET state = ? WHERE upload_id = ?`, string(state), uploadID)
	if err != nil {
		return fmt.Errorf("registry/sqlite: mark state: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, uploadID string) (registry.Record, error) {
	row := s.db.db.QueryRowContext(ctx,
		`SELECT upload_id, bucket, key, part_count, state, created_at FROM multipart_registry WHERE upload_id = ?`,
		uploadID)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.Record{}, registry.ErrNotFound
	}
	if err != nil {
		return registry.Record{}, fmt.Errorf("registry/sqlite: get: %w", err)
	}
	return rec, nil
}

func (s *Store) ListByState(ctx context.Context, state registry.State) ([]registry.Record, error) {
	rows, err := s.db.db.QueryContext(ctx,
		`SELECT upload_id, bucket, key, part_count, state, created_at FROM multipart_registry WHERE state = ?`,
		string(state))
	if err != nil {
		return nil, fmt.Errorf("registry/sqlite: list: %w", err)
	}
	defer rows.Close()

	var out []registry.Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("registry/sqlite: scan: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func scanRecord(scan func(dest ...any) error) (registry.Record, error) {
	var (
		rec       registry.Record
		state     string
		createdAt string
	)
	if err := scan(&rec.UploadID, &rec.Bucket, &rec.Key, &rec.PartCount, &state, &createdAt); err != nil {
		return registry.Record{}, err
	}
	rec.State = registry.State(state)
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		rec.CreatedAt = t
	}
	return rec, nil
}

var _ registry.Store = (*Store)(nil)

package kv

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB interface for database operations (compatible with pgxpool.Pool and pgxmock)
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

// PGStore implements Store on the widget_kv table.
type PGStore struct {
	db DB
}

// NewPGStore creates a Postgres-backed store.
func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// NewPGStoreWithDB creates a store with a custom DB interface.
func NewPGStoreWithDB(db DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Get(ctx context.Context, key string) (string, error) {
	query := `
		SELECT value
		FROM widget_kv
		WHERE key = $1
	`

	var value string
	err := s.db.QueryRow(ctx, query, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *PGStore) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO widget_kv (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = NOW()
	`

	_, err := s.db.Exec(ctx, query, key, value)
	return err
}

func (s *PGStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM widget_kv WHERE key = $1`
	_, err := s.db.Exec(ctx, query, key)
	return err
}

func (s *PGStore) Close() error {
	return nil
}

// Package store persists user accounts, story records, and deconstructed
// profiles in Postgres.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrEmailTaken = errors.New("email already registered")
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id            uuid PRIMARY KEY,
			email         text NOT NULL UNIQUE,
			password_hash text NOT NULL,
			created_at    timestamptz NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS stories (
			id         text PRIMARY KEY,
			title      text NOT NULL,
			owner_id   uuid REFERENCES users(id),
			is_public  boolean NOT NULL DEFAULT false,
			created_at timestamptz NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS profiles (
			story_id   text PRIMARY KEY REFERENCES stories(id) ON DELETE CASCADE,
			data       jsonb NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

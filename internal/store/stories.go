package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Story struct {
	ID        string
	Title     string
	OwnerID   uuid.NullUUID // stories processed without auth have no owner
	IsPublic  bool
	CreatedAt time.Time
}

// CreateStory inserts a story record, or updates its title if the id already
// exists (re-processing the same upload).
func (s *Store) CreateStory(ctx context.Context, id, title string, ownerID uuid.NullUUID) (Story, error) {
	story := Story{ID: id, Title: title, OwnerID: ownerID}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO stories (id, title, owner_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title
		RETURNING is_public, created_at`,
		story.ID, story.Title, story.OwnerID,
	).Scan(&story.IsPublic, &story.CreatedAt)
	if err != nil {
		return Story{}, fmt.Errorf("insert story: %w", err)
	}

	return story, nil
}

// GetStory fetches one story by id.
func (s *Store) GetStory(ctx context.Context, id string) (Story, error) {
	var story Story
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, owner_id, is_public, created_at
		FROM stories WHERE id = $1`,
		id,
	).Scan(&story.ID, &story.Title, &story.OwnerID, &story.IsPublic, &story.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Story{}, ErrNotFound
	}
	if err != nil {
		return Story{}, fmt.Errorf("select story: %w", err)
	}
	return story, nil
}

// ListStoriesByOwner returns the owner's stories, newest first.
func (s *Store) ListStoriesByOwner(ctx context.Context, ownerID uuid.UUID) ([]Story, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, owner_id, is_public, created_at
		FROM stories WHERE owner_id = $1
		ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select stories: %w", err)
	}
	defer rows.Close()

	return scanStories(rows)
}

// ListPublicStories returns all public stories, newest first.
func (s *Store) ListPublicStories(ctx context.Context) ([]Story, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, owner_id, is_public, created_at
		FROM stories WHERE is_public
		ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select public stories: %w", err)
	}
	defer rows.Close()

	return scanStories(rows)
}

// ToggleStoryPublic flips a story's visibility and returns the updated record.
func (s *Store) ToggleStoryPublic(ctx context.Context, id string) (Story, error) {
	var story Story
	err := s.pool.QueryRow(ctx, `
		UPDATE stories SET is_public = NOT is_public
		WHERE id = $1
		RETURNING id, title, owner_id, is_public, created_at`,
		id,
	).Scan(&story.ID, &story.Title, &story.OwnerID, &story.IsPublic, &story.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Story{}, ErrNotFound
	}
	if err != nil {
		return Story{}, fmt.Errorf("toggle story visibility: %w", err)
	}
	return story, nil
}

func scanStories(rows pgx.Rows) ([]Story, error) {
	var stories []Story
	for rows.Next() {
		var story Story
		if err := rows.Scan(&story.ID, &story.Title, &story.OwnerID, &story.IsPublic, &story.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		stories = append(stories, story)
	}
	return stories, rows.Err()
}

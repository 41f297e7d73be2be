package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cfsage/memoria/internal/profile"
)

// SaveProfile stores the deconstructed profile for a story as jsonb.
// Re-processing a story replaces its profile.
func (s *Store) SaveProfile(ctx context.Context, storyID string, prof profile.Profile) error {
	data, err := json.Marshal(prof)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO profiles (story_id, data)
		VALUES ($1, $2)
		ON CONFLICT (story_id) DO UPDATE SET data = EXCLUDED.data`,
		storyID, data,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// GetProfile fetches the profile for a story.
func (s *Store) GetProfile(ctx context.Context, storyID string) (profile.Profile, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `
		SELECT data FROM profiles WHERE story_id = $1`,
		storyID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return profile.Profile{}, ErrNotFound
	}
	if err != nil {
		return profile.Profile{}, fmt.Errorf("select profile: %w", err)
	}

	var prof profile.Profile
	if err := json.Unmarshal(data, &prof); err != nil {
		return profile.Profile{}, fmt.Errorf("unmarshal profile: %w", err)
	}
	prof.Normalize()
	return prof, nil
}

// Package rag implements the narrative store: a per-story document index
// supporting insertion of transcript passages and similarity search scoped
// to a single story. Partition isolation is the one cross-request invariant
// that matters here; a query for one story must never surface passages
// indexed under another.
package rag

import (
	"context"
	"errors"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrConnectionFailed = errors.New("failed to connect to vector store")
	ErrInsertFailed     = errors.New("failed to insert passages")
	ErrSearchFailed     = errors.New("failed to search passages")
)

// Passage is one indexed unit of a story transcript.
type Passage struct {
	StoryID   string    `json:"story_id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
	Score     float32   `json:"score,omitempty"`
}

// VectorStore is the low-level storage interface for passage embeddings.
// Implementations must guarantee per-story write isolation.
type VectorStore interface {
	// Insert adds passages to the index.
	Insert(ctx context.Context, passages []Passage) error

	// Search performs top-K similarity search restricted to one story.
	Search(ctx context.Context, queryVector []float32, topK int, storyID string) ([]Passage, error)

	// DeleteStory removes every passage indexed under the given story.
	DeleteStory(ctx context.Context, storyID string) error

	// Flush ensures pending data is persisted.
	Flush(ctx context.Context) error

	// Close releases resources and closes connections.
	Close() error
}

// Embedder generates vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

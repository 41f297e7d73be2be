package rag

import (
	"context"
	"fmt"
	"strings"
)

// StoreOptions configures transcript chunking for indexing.
type StoreOptions struct {
	ChunkWords   int
	OverlapWords int
}

// DefaultStoreOptions returns chunking defaults.
func DefaultStoreOptions() StoreOptions {
	return StoreOptions{
		ChunkWords:   DefaultChunkWords,
		OverlapWords: DefaultOverlapWords,
	}
}

// Store is the narrative store: it embeds transcript passages and indexes
// them per story, and answers similarity queries scoped to one story.
type Store struct {
	embedder Embedder
	vectors  VectorStore
	opts     StoreOptions
}

// NewStore creates a narrative store over the given embedder and vector
// store.
func NewStore(embedder Embedder, vectors VectorStore, opts StoreOptions) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidInput)
	}
	if vectors == nil {
		return nil, fmt.Errorf("%w: vector store is required", ErrInvalidInput)
	}
	return &Store{embedder: embedder, vectors: vectors, opts: opts}, nil
}

// Index adds a story's transcript to the index. Re-indexing the same story
// overwrites its previous passages: existing records for the story are
// deleted before the new ones are inserted.
func (s *Store) Index(ctx context.Context, storyID, transcript string) error {
	if storyID == "" {
		return fmt.Errorf("%w: story id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(transcript) == "" {
		return fmt.Errorf("%w: transcript is empty", ErrInvalidInput)
	}

	chunks := SplitTranscript(transcript, s.opts.ChunkWords, s.opts.OverlapWords)

	vectors, err := s.embedder.Embed(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embed transcript: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: got %d embeddings for %d chunks", ErrEmbeddingFailed, len(vectors), len(chunks))
	}

	if err := s.vectors.DeleteStory(ctx, storyID); err != nil {
		return fmt.Errorf("clear previous passages: %w", err)
	}

	passages := make([]Passage, len(chunks))
	for i, chunk := range chunks {
		passages[i] = Passage{
			StoryID:   storyID,
			Text:      chunk,
			Embedding: vectors[i],
		}
	}

	if err := s.vectors.Insert(ctx, passages); err != nil {
		return fmt.Errorf("insert passages: %w", err)
	}
	if err := s.vectors.Flush(ctx); err != nil {
		return fmt.Errorf("flush passages: %w", err)
	}

	return nil
}

// Query returns the topK passage texts most similar to the question,
// restricted to the given story's partition. A story that has never been
// indexed yields an empty slice, not an error; absence of content is an
// expected terminal state.
func (s *Store) Query(ctx context.Context, storyID, question string, topK int) ([]string, error) {
	if storyID == "" {
		return nil, fmt.Errorf("%w: story id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is empty", ErrInvalidInput)
	}
	if topK <= 0 {
		topK = 1
	}

	vectors, err := s.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: no embedding generated for question", ErrEmbeddingFailed)
	}

	passages, err := s.vectors.Search(ctx, vectors[0], topK, storyID)
	if err != nil {
		return nil, fmt.Errorf("search passages: %w", err)
	}

	texts := make([]string, 0, len(passages))
	for _, p := range passages {
		texts = append(texts, p.Text)
	}
	return texts, nil
}

// Close releases the underlying vector store.
func (s *Store) Close() error {
	return s.vectors.Close()
}

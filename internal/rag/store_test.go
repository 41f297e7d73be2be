package rag

import (
	"context"
	"errors"
	"sort"
	"testing"
)

// mockEmbedder returns a small deterministic vector per text so similarity
// ordering is stable across runs.
type mockEmbedder struct {
	embedFunc func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if m.embedFunc != nil {
		return m.embedFunc(ctx, texts)
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)), float32(i), 1.0}
	}
	return vectors, nil
}

func (m *mockEmbedder) Dimension() int { return 3 }

// memVectorStore is an in-memory VectorStore honoring story partition
// filtering the same way the Milvus implementation does.
type memVectorStore struct {
	byStory map[string][]Passage
}

func newMemVectorStore() *memVectorStore {
	return &memVectorStore{byStory: make(map[string][]Passage)}
}

func (m *memVectorStore) Insert(_ context.Context, passages []Passage) error {
	for _, p := range passages {
		m.byStory[p.StoryID] = append(m.byStory[p.StoryID], p)
	}
	return nil
}

func (m *memVectorStore) Search(_ context.Context, queryVector []float32, topK int, storyID string) ([]Passage, error) {
	candidates := append([]Passage(nil), m.byStory[storyID]...)

	score := func(p Passage) float32 {
		var dot float32
		for i := range queryVector {
			if i < len(p.Embedding) {
				dot += queryVector[i] * p.Embedding[i]
			}
		}
		return dot
	}
	sort.SliceStable(candidates, func(i, j int) bool { return score(candidates[i]) > score(candidates[j]) })

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

func (m *memVectorStore) DeleteStory(_ context.Context, storyID string) error {
	delete(m.byStory, storyID)
	return nil
}

func (m *memVectorStore) Flush(context.Context) error { return nil }
func (m *memVectorStore) Close() error                { return nil }

func newTestStore(t *testing.T) (*Store, *memVectorStore) {
	t.Helper()
	vectors := newMemVectorStore()
	store, err := NewStore(&mockEmbedder{}, vectors, DefaultStoreOptions())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, vectors
}

func TestIndexAndQuery(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	transcript := "Grandpa told us about the blizzard of 1978 and how the family huddled by the fire."
	if err := store.Index(ctx, "s1", transcript); err != nil {
		t.Fatalf("Index: %v", err)
	}

	texts, err := store.Query(ctx, "s1", "What happened in 1978?", 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(texts) != 1 || texts[0] != transcript {
		t.Errorf("got %v, want the indexed transcript", texts)
	}
}

func TestPartitionIsolation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Index(ctx, "story-a", "The lighthouse keeper's daughter rowed out into the storm."); err != nil {
		t.Fatalf("Index a: %v", err)
	}
	if err := store.Index(ctx, "story-b", "We planted the orchard the summer the well ran dry."); err != nil {
		t.Fatalf("Index b: %v", err)
	}

	questions := []string{
		"What happened to the lighthouse keeper's daughter?",
		"Tell me about the storm",
		"orchard",
		"",
	}
	for _, q := range questions {
		if q == "" {
			continue
		}
		texts, err := store.Query(ctx, "story-b", q, 5)
		if err != nil {
			t.Fatalf("Query(%q): %v", q, err)
		}
		for _, text := range texts {
			if text == "The lighthouse keeper's daughter rowed out into the storm." {
				t.Fatalf("query %q under story-b leaked content from story-a", q)
			}
		}
	}
}

func TestQueryUnknownStoryReturnsEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	texts, err := store.Query(context.Background(), "never-indexed", "anything?", 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(texts) != 0 {
		t.Errorf("expected empty result, got %v", texts)
	}
}

func TestIndexEmptyTranscript(t *testing.T) {
	store, _ := newTestStore(t)

	for _, transcript := range []string{"", "   \n\t "} {
		err := store.Index(context.Background(), "s1", transcript)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("transcript %q: expected ErrInvalidInput, got %v", transcript, err)
		}
	}
}

func TestIndexOverwritesPreviousPassages(t *testing.T) {
	store, vectors := newTestStore(t)
	ctx := context.Background()

	if err := store.Index(ctx, "s1", "first version of the story"); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if err := store.Index(ctx, "s1", "second version of the story"); err != nil {
		t.Fatalf("re-Index: %v", err)
	}

	if n := len(vectors.byStory["s1"]); n != 1 {
		t.Fatalf("expected 1 passage after re-index, got %d", n)
	}
	if vectors.byStory["s1"][0].Text != "second version of the story" {
		t.Errorf("re-index did not overwrite: %q", vectors.byStory["s1"][0].Text)
	}
}

func TestIndexEmbedFailure(t *testing.T) {
	vectors := newMemVectorStore()
	embedErr := errors.New("embedding backend down")
	embedder := &mockEmbedder{
		embedFunc: func(context.Context, []string) ([][]float32, error) {
			return nil, embedErr
		},
	}
	store, err := NewStore(embedder, vectors, DefaultStoreOptions())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if err := store.Index(context.Background(), "s1", "some transcript"); !errors.Is(err, embedErr) {
		t.Errorf("expected embed error, got %v", err)
	}
	if len(vectors.byStory) != 0 {
		t.Error("nothing should be indexed when embedding fails")
	}
}

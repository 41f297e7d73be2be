package rag

import (
	"context"
	"fmt"
	"os"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// MilvusConfig holds configuration for the Milvus connection and collection.
type MilvusConfig struct {
	Address        string // Milvus server address (e.g., "localhost:19530")
	CollectionName string
	Dimension      int // Vector dimension (e.g., 1536 for text-embedding-3-small)
	M              int // HNSW M parameter
	EfConstruction int // HNSW efConstruction
}

// DefaultMilvusConfig returns configuration from environment variables with
// sensible defaults.
func DefaultMilvusConfig() MilvusConfig {
	address := os.Getenv("MILVUS_ADDRESS")
	if address == "" {
		address = "localhost:19530"
	}

	collection := os.Getenv("MILVUS_COLLECTION")
	if collection == "" {
		collection = "memoria_stories"
	}

	return MilvusConfig{
		Address:        address,
		CollectionName: collection,
		Dimension:      1536,
		M:              16,
		EfConstruction: 256,
	}
}

// MilvusStore implements VectorStore using Milvus. Story isolation is
// enforced by a filter expression on the story_id field for every search
// and delete.
type MilvusStore struct {
	client client.Client
	config MilvusConfig
}

// NewMilvusStore connects to Milvus and ensures the collection exists with
// the passage schema.
func NewMilvusStore(ctx context.Context, config MilvusConfig) (*MilvusStore, error) {
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive", ErrInvalidInput)
	}

	c, err := client.NewGrpcClient(ctx, config.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := &MilvusStore{client: c, config: config}
	if err := store.ensureCollection(ctx); err != nil {
		c.Close()
		return nil, err
	}

	return store, nil
}

func (m *MilvusStore) ensureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.config.CollectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if has {
		return nil
	}

	schema := &entity.Schema{
		CollectionName: m.config.CollectionName,
		AutoID:         true,
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeInt64,
				PrimaryKey: true,
				AutoID:     true,
			},
			{
				Name:     "story_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "text",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.config.Dimension),
				},
			},
		},
	}

	if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexHNSW(entity.COSINE, m.config.M, m.config.EfConstruction)
	if err != nil {
		return fmt.Errorf("failed to create index config: %w", err)
	}
	if err := m.client.CreateIndex(ctx, m.config.CollectionName, "embedding", idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := m.client.LoadCollection(ctx, m.config.CollectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	return nil
}

// Insert adds passage records to the collection.
func (m *MilvusStore) Insert(ctx context.Context, passages []Passage) error {
	if len(passages) == 0 {
		return fmt.Errorf("%w: no passages provided", ErrInvalidInput)
	}

	storyIDs := make([]string, len(passages))
	texts := make([]string, len(passages))
	embeddings := make([][]float32, len(passages))
	for i, p := range passages {
		storyIDs[i] = p.StoryID
		texts[i] = p.Text
		embeddings[i] = p.Embedding
	}

	columns := []entity.Column{
		entity.NewColumnVarChar("story_id", storyIDs),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnFloatVector("embedding", m.config.Dimension, embeddings),
	}

	if _, err := m.client.Insert(ctx, m.config.CollectionName, "", columns...); err != nil {
		return fmt.Errorf("%w: %v", ErrInsertFailed, err)
	}

	return nil
}

// Search performs top-K similarity search restricted to one story's passages.
func (m *MilvusStore) Search(ctx context.Context, queryVector []float32, topK int, storyID string) ([]Passage, error) {
	if len(queryVector) != m.config.Dimension {
		return nil, fmt.Errorf("%w: expected dimension %d, got %d", ErrInvalidInput, m.config.Dimension, len(queryVector))
	}
	if storyID == "" {
		return nil, fmt.Errorf("%w: story id required for scoped search", ErrInvalidInput)
	}

	expr := fmt.Sprintf(`story_id == "%s"`, storyID)

	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, fmt.Errorf("failed to create search params: %w", err)
	}

	results, err := m.client.Search(
		ctx,
		m.config.CollectionName,
		nil,
		expr,
		[]string{"story_id", "text"},
		[]entity.Vector{entity.FloatVector(queryVector)},
		"embedding",
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	if len(results) == 0 {
		return []Passage{}, nil
	}

	passages := make([]Passage, 0, results[0].ResultCount)
	for i := 0; i < results[0].ResultCount; i++ {
		p := Passage{Score: results[0].Scores[i]}
		for _, field := range results[0].Fields {
			switch field.Name() {
			case "story_id":
				p.StoryID = field.(*entity.ColumnVarChar).Data()[i]
			case "text":
				p.Text = field.(*entity.ColumnVarChar).Data()[i]
			}
		}
		passages = append(passages, p)
	}

	return passages, nil
}

// DeleteStory removes every passage indexed under the given story.
func (m *MilvusStore) DeleteStory(ctx context.Context, storyID string) error {
	if storyID == "" {
		return fmt.Errorf("%w: story id required", ErrInvalidInput)
	}

	expr := fmt.Sprintf(`story_id == "%s"`, storyID)
	if err := m.client.Delete(ctx, m.config.CollectionName, "", expr); err != nil {
		return fmt.Errorf("failed to delete story passages: %w", err)
	}
	return nil
}

// Flush ensures pending inserts are persisted.
func (m *MilvusStore) Flush(ctx context.Context) error {
	if err := m.client.Flush(ctx, m.config.CollectionName, false); err != nil {
		return fmt.Errorf("failed to flush collection: %w", err)
	}
	return nil
}

// Close releases the Milvus connection.
func (m *MilvusStore) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

package rag

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var (
	ErrEmptyTexts      = errors.New("no texts provided for embedding")
	ErrMissingAPIKey   = errors.New("OPENAI_API_KEY environment variable not set")
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// OpenAIEmbedder implements the Embedder interface using OpenAI's API.
type OpenAIEmbedder struct {
	client    openai.Client
	model     string
	dimension int
}

// NewOpenAIEmbedder creates an OpenAI embedder for the given model and
// vector dimension.
func NewOpenAIEmbedder(model string, dimension int) (*OpenAIEmbedder, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	return &OpenAIEmbedder{
		client:    openai.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		dimension: dimension,
	}, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

// Embed generates one embedding per input text, in input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyTexts
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model:          e.model,
		Dimensions:     openai.Int(int64(e.dimension)),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	vectors := make([][]float32, len(resp.Data))
	for _, data := range resp.Data {
		vec := make([]float32, len(data.Embedding))
		for j, val := range data.Embedding {
			vec[j] = float32(val)
		}
		vectors[int(data.Index)] = vec
	}

	return vectors, nil
}

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cfsage/memoria/internal/config"
	"github.com/cfsage/memoria/internal/deconstruct"
	"github.com/cfsage/memoria/internal/llm"
	"github.com/cfsage/memoria/internal/rag"
	"github.com/cfsage/memoria/internal/store"
)

var processCmd = &cobra.Command{
	Use:   "process [story-id] [transcript-file]",
	Short: "Process a transcript into a stored, chat-ready story",
	Long: `Run the full processing pipeline on a transcript file.

This command:
1. Deconstructs the transcript into a storyteller profile
2. Saves the story record and profile to the database
3. Indexes the transcript into the vector store for retrieval

Re-processing a story id replaces its profile and indexed passages.

Required environment variables:
  DATABASE_URL       - Postgres connection string
  AIML_API_KEY       - API key for the generative model endpoint
  OPENAI_API_KEY     - OpenAI API key for embeddings
  MILVUS_ADDRESS     - Milvus server address (default: localhost:19530)

Examples:
  memoria process 6b3f... transcript.txt
  memoria process $(uuidgen) grandpa_winter.txt`,
	Args: cobra.ExactArgs(2),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	storyID := args[0]
	ctx := context.Background()
	cfg := config.Load()

	if _, err := uuid.Parse(storyID); err != nil {
		return fmt.Errorf("story id must be a UUID: %w", err)
	}

	raw, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}
	transcript := string(raw)

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure database schema: %w", err)
	}

	completer, err := llm.NewClient(cfg.AIMLAPIKey, cfg.AIMLModel)
	if err != nil {
		return err
	}

	embedder, err := rag.NewOpenAIEmbedder(cfg.EmbeddingModel, cfg.EmbeddingDimension)
	if err != nil {
		return err
	}

	milvusCfg := rag.DefaultMilvusConfig()
	milvusCfg.Address = cfg.MilvusAddress
	milvusCfg.CollectionName = cfg.MilvusCollection
	milvusCfg.Dimension = cfg.EmbeddingDimension
	vectors, err := rag.NewMilvusStore(ctx, milvusCfg)
	if err != nil {
		return fmt.Errorf("connect to Milvus: %w", err)
	}
	defer vectors.Close()

	narrative, err := rag.NewStore(embedder, vectors, rag.StoreOptions{
		ChunkWords:   cfg.ChunkWords,
		OverlapWords: cfg.OverlapWords,
	})
	if err != nil {
		return err
	}

	pipeline := deconstruct.New(completer, nil, deconstruct.Options{
		StrictErrors: cfg.StrictExtraction,
	})

	prof, err := pipeline.Deconstruct(ctx, transcript)
	if err != nil {
		return fmt.Errorf("deconstruct transcript: %w", err)
	}

	if _, err := db.CreateStory(ctx, storyID, prof.Title, uuid.NullUUID{}); err != nil {
		return fmt.Errorf("save story: %w", err)
	}
	if err := db.SaveProfile(ctx, storyID, prof); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	if err := narrative.Index(ctx, storyID, transcript); err != nil {
		return fmt.Errorf("index transcript: %w", err)
	}

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#50FA7B"))

	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Processed %q as story %s", prof.Title, storyID)))
	return nil
}

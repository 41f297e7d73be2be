package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/cfsage/memoria/internal/config"
	"github.com/cfsage/memoria/internal/llm"
	"github.com/cfsage/memoria/internal/persona"
	"github.com/cfsage/memoria/internal/rag"
	"github.com/cfsage/memoria/internal/store"
)

var chatCmd = &cobra.Command{
	Use:   "chat [story-id] [question]",
	Short: "Ask a processed story a question in its storyteller's voice",
	Long: `Ask a question about a processed story using RAG (Retrieval-Augmented Generation).

This command:
1. Loads the story's profile from the database
2. Retrieves the most relevant transcript passage from the vector store
3. Generates an in-persona answer using the configured LLM

Required environment variables:
  DATABASE_URL       - Postgres connection string
  AIML_API_KEY       - API key for the generative model endpoint
  OPENAI_API_KEY     - OpenAI API key for embeddings
  MILVUS_ADDRESS     - Milvus server address (default: localhost:19530)

Examples:
  memoria chat 6b3f... "What happened during the blizzard?"
  memoria chat 6b3f... "go on"`,
	Args: cobra.ExactArgs(2),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	storyID := args[0]
	question := args[1]
	ctx := context.Background()
	cfg := config.Load()

	// Styling
	var (
		headerColor   = lipgloss.Color("#F780FF") // Bright pink
		questionColor = lipgloss.Color("#8BE9FD") // Cyan
		answerColor   = lipgloss.Color("#E9E9F4") // Light purple/white
		errorColor    = lipgloss.Color("#FF5555") // Red
	)

	headerStyle := lipgloss.NewStyle().
		Foreground(headerColor).
		Bold(true)

	questionStyle := lipgloss.NewStyle().
		Foreground(questionColor).
		Italic(true)

	answerStyle := lipgloss.NewStyle().
		Foreground(answerColor)

	errorStyle := lipgloss.NewStyle().
		Foreground(errorColor).
		Bold(true)

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}
	defer db.Close()

	prof, err := db.GetProfile(ctx, storyID)
	if err != nil {
		return fmt.Errorf("%s story %s has no profile: %w", errorStyle.Render("Error:"), storyID, err)
	}

	completer, err := llm.NewClient(cfg.AIMLAPIKey, cfg.AIMLModel)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	embedder, err := rag.NewOpenAIEmbedder(cfg.EmbeddingModel, cfg.EmbeddingDimension)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	milvusCfg := rag.DefaultMilvusConfig()
	milvusCfg.Address = cfg.MilvusAddress
	milvusCfg.CollectionName = cfg.MilvusCollection
	milvusCfg.Dimension = cfg.EmbeddingDimension
	vectors, err := rag.NewMilvusStore(ctx, milvusCfg)
	if err != nil {
		return fmt.Errorf("%s connect to Milvus: %w", errorStyle.Render("Error:"), err)
	}
	defer vectors.Close()

	narrative, err := rag.NewStore(embedder, vectors, rag.StoreOptions{
		ChunkWords:   cfg.ChunkWords,
		OverlapWords: cfg.OverlapWords,
	})
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	responder, err := persona.NewResponder(completer, narrative)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	fmt.Println()
	fmt.Println(headerStyle.Render(prof.Title))
	fmt.Println(questionStyle.Render(question))
	fmt.Println()

	answer, err := responder.Respond(ctx, storyID, question, prof)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	fmt.Println(headerStyle.Render("Answer:"))
	fmt.Println()
	fmt.Println(answerStyle.Render(strings.TrimSpace(answer)))
	fmt.Println()

	return nil
}

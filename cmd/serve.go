package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/cfsage/memoria/internal/api"
	"github.com/cfsage/memoria/internal/auth"
	"github.com/cfsage/memoria/internal/config"
	"github.com/cfsage/memoria/internal/deconstruct"
	"github.com/cfsage/memoria/internal/events"
	"github.com/cfsage/memoria/internal/llm"
	"github.com/cfsage/memoria/internal/persona"
	"github.com/cfsage/memoria/internal/rag"
	"github.com/cfsage/memoria/internal/store"
	"github.com/cfsage/memoria/internal/transcribe"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Memoria HTTP backend",
	Long: `Start the Memoria API server.

The server transcribes uploaded story recordings, deconstructs them into
storyteller profiles, indexes transcripts into Milvus for retrieval, and
serves persona chat over HTTP.

Required environment variables:
  DATABASE_URL       - Postgres connection string
  AIML_API_KEY       - API key for the generative model endpoint
  OPENAI_API_KEY     - OpenAI API key for embeddings
  MILVUS_ADDRESS     - Milvus server address (default: localhost:19530)

Optional:
  NATS_URL           - NATS server for processing events (disabled if unset)
  MEMORIA_PORT       - Listen port (default: 8000)

Examples:
  memoria serve
  MEMORIA_PORT=9000 memoria serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	logger := newLogger(cfg.LogLevel)

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
		return fmt.Errorf("create model client: %w", err)
	}

	embedder, err := rag.NewOpenAIEmbedder(cfg.EmbeddingModel, cfg.EmbeddingDimension)
	if err != nil {
		return fmt.Errorf("create embedder: %w", err)
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
		return fmt.Errorf("create narrative store: %w", err)
	}

	pipeline := deconstruct.New(completer, logger, deconstruct.Options{
		StrictErrors: cfg.StrictExtraction,
	})

	responder, err := persona.NewResponder(completer, narrative)
	if err != nil {
		return fmt.Errorf("create persona responder: %w", err)
	}

	var publisher *events.Publisher
	if cfg.NatsURL != "" {
		publisher, err = events.NewPublisher(cfg.NatsURL, logger)
		if err != nil {
			// Events are best-effort; the API works without them.
			logger.Warn("event publisher unavailable", "error", err)
		} else {
			defer publisher.Close()
		}
	}

	srv := api.NewServer(cfg.Port, api.Deps{
		DB:          db,
		Pipeline:    pipeline,
		Narrative:   narrative,
		Responder:   responder,
		Transcriber: transcribe.Placeholder{},
		Auth:        auth.NewManager(cfg.JWTSecret, auth.DefaultTokenTTL),
		Events:      publisher,
		Logger:      logger,
		UploadDir:   cfg.UploadDir,
	})

	return srv.Start()
}

func newLogger(level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "memoria",
	})
	if lvl, err := log.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}

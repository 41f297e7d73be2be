package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port        int
	DatabaseURL string
	NatsURL     string
	LogLevel    string

	UploadDir string
	JWTSecret string

	AIMLAPIKey string
	AIMLModel  string

	EmbeddingModel     string
	EmbeddingDimension int
	MilvusAddress      string
	MilvusCollection   string

	ChunkWords   int
	OverlapWords int

	// StrictExtraction surfaces extraction-model failures as errors
	// instead of substituting the fallback profile.
	StrictExtraction bool
}

func Load() Config {
	return Config{
		Port:        envInt("MEMORIA_PORT", 8000),
		DatabaseURL: envStr("DATABASE_URL", ""),
		NatsURL:     envStr("NATS_URL", ""),
		LogLevel:    envStr("LOG_LEVEL", "info"),

		UploadDir: envStr("MEMORIA_UPLOAD_DIR", "uploads"),
		JWTSecret: envStr("MEMORIA_JWT_SECRET", "a_very_secret_key_for_your_hackathon"),

		AIMLAPIKey: envStr("AIML_API_KEY", ""),
		AIMLModel:  envStr("MEMORIA_MODEL", "openai/gpt-5-2025-08-07"),

		EmbeddingModel:     envStr("MEMORIA_EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDimension: envInt("MEMORIA_EMBEDDING_DIMENSION", 1536),
		MilvusAddress:      envStr("MILVUS_ADDRESS", "localhost:19530"),
		MilvusCollection:   envStr("MILVUS_COLLECTION", "memoria_stories"),

		ChunkWords:   envInt("MEMORIA_CHUNK_WORDS", 400),
		OverlapWords: envInt("MEMORIA_OVERLAP_WORDS", 50),

		StrictExtraction: envBool("MEMORIA_STRICT_EXTRACTION", false),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

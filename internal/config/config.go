package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	EmbeddingBaseURL    string
	EmbeddingModel      string
	EmbeddingVectorSize int

	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	QdrantURL        string
	QdrantCollection string

	DBPath         string
	SessionBackend string // "sqlite" or "local"

	BucketURL    string // blob store base URL (gs://, s3://, or a local directory)
	HandbookPath string

	ChunkSize    int
	ChunkOverlap int
	TopK         int

	GroundingMode string // "strict" or "loose"

	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or a parent directory, it is
// loaded automatically; variables already set in the environment take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	// Walk up from the working directory looking for a project-root .env.
	if wd, err := os.Getwd(); err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		EmbeddingBaseURL: getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "all-MiniLM-L6-v2"),
		LLMBaseURL:       getEnv("LLM_BASE_URL", "https://openrouter.ai/api/v1"),
		LLMAPIKey:        getEnv("LLM_API_KEY", ""),
		LLMModel:         getEnv("LLM_MODEL", "meta-llama/llama-3.3-8b-instruct:free"),
		QdrantURL:        getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "handbook"),
		DBPath:           getEnv("DB_PATH", "./data/handbook-ai.db"),
		SessionBackend:   getEnv("SESSION_BACKEND", "sqlite"),
		BucketURL:        getEnv("BUCKET_URL", "./data"),
		HandbookPath:     getEnv("HANDBOOK_PATH", "data/MANE_GRADUATE_HANDBOOK.pdf"),
		GroundingMode:    getEnv("GROUNDING_MODE", "strict"),
		APIPort:          getEnv("API_PORT", "9000"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
	}

	// The embedding vector size must match the output dimension of the
	// embedding model. If it changes, the Qdrant collection must be rebuilt.
	vectorSizeStr := getEnv("EMBEDDING_VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE must be greater than 0")
	}
	cfg.EmbeddingVectorSize = vectorSize

	cfg.ChunkSize, err = getEnvInt("CHUNK_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	cfg.ChunkOverlap, err = getEnvInt("CHUNK_OVERLAP", 200)
	if err != nil {
		return nil, err
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("CHUNK_SIZE must be greater than 0")
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP must be non-negative and smaller than CHUNK_SIZE")
	}

	cfg.TopK, err = getEnvInt("RAG_TOP_K", 4)
	if err != nil {
		return nil, err
	}
	if cfg.TopK <= 0 {
		return nil, fmt.Errorf("RAG_TOP_K must be greater than 0")
	}

	switch cfg.SessionBackend {
	case "sqlite", "local":
	default:
		return nil, fmt.Errorf("SESSION_BACKEND must be \"sqlite\" or \"local\", got %q", cfg.SessionBackend)
	}

	switch cfg.GroundingMode {
	case "strict", "loose":
	default:
		return nil, fmt.Errorf("GROUNDING_MODE must be \"strict\" or \"loose\", got %q", cfg.GroundingMode)
	}

	cfg.LogLevel, err = parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	// Ensure the data directory exists for the SQLite session database.
	if cfg.SessionBackend == "sqlite" {
		dataDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return cfg, nil
}

// ValidateServing checks the fields that only the serving process needs.
// The ingest job does not talk to the chat model and can run without a key.
func (c *Config) ValidateServing() error {
	if c.LLMAPIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required: set it in the environment or .env file")
	}
	return nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return v, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid LOG_LEVEL %q (expected debug, info, warn, or error)", raw)
	}
}

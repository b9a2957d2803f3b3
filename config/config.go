package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"docqa/models"
)

// Config holds every tunable the service consumes. Values come from the
// environment (optionally seeded from a .env file) with working defaults
// for everything except credentials.
type Config struct {
	Port string

	ChromaURL      string
	CollectionName string

	EmbeddingBaseURL   string
	EmbeddingModel     string
	EmbeddingAPIKeyEnv string
	Dimension          int

	GeminiAPIKeyEnv string
	GeminiModel     string

	ChunkSize       int
	TopK            int
	UpsertBatchSize int

	MaxRetries     int
	RetryBaseDelay time.Duration

	ReadinessPollInterval time.Duration
	ReadinessMaxWait      time.Duration

	DocumentsDir          string
	WatchDocuments        bool
	DeleteStaleOnReingest bool
}

// Load reads the configuration from the environment. A .env file in the
// working directory is honored when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("CONFIG: no .env file found, relying on environment variables")
	}

	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		ChromaURL:             getEnv("CHROMA_URL", "http://localhost:8000"),
		CollectionName:        getEnv("COLLECTION_NAME", "docqa"),
		EmbeddingBaseURL:      getEnv("EMBEDDING_BASE_URL", "https://api.openai.com/v1"),
		EmbeddingModel:        getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingAPIKeyEnv:    getEnv("EMBEDDING_API_KEY_ENV", "OPENAI_API_KEY"),
		Dimension:             getEnvInt("EMBEDDING_DIMENSION", 1536),
		GeminiAPIKeyEnv:       getEnv("GEMINI_API_KEY_ENV", "GEMINI_API_KEY"),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		ChunkSize:             getEnvInt("CHUNK_SIZE", 1000),
		TopK:                  getEnvInt("TOP_K", 10),
		UpsertBatchSize:       getEnvInt("UPSERT_BATCH_SIZE", 100),
		MaxRetries:            getEnvInt("MAX_RETRIES", 3),
		RetryBaseDelay:        getEnvDuration("RETRY_BASE_DELAY", 500*time.Millisecond),
		ReadinessPollInterval: getEnvDuration("READINESS_POLL_INTERVAL", 2*time.Second),
		ReadinessMaxWait:      getEnvDuration("READINESS_MAX_WAIT", 90*time.Second),
		DocumentsDir:          os.Getenv("DOCUMENTS_DIR"),
		WatchDocuments:        getEnvBool("WATCH_DOCUMENTS", false),
		DeleteStaleOnReingest: getEnvBool("DELETE_STALE_ON_REINGEST", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.ChunkSize <= 0:
		return &models.ConfigError{Field: "CHUNK_SIZE", Reason: "must be positive"}
	case c.Dimension <= 0:
		return &models.ConfigError{Field: "EMBEDDING_DIMENSION", Reason: "must be positive"}
	case c.TopK <= 0:
		return &models.ConfigError{Field: "TOP_K", Reason: "must be positive"}
	case c.UpsertBatchSize <= 0:
		return &models.ConfigError{Field: "UPSERT_BATCH_SIZE", Reason: "must be positive"}
	case c.MaxRetries < 0:
		return &models.ConfigError{Field: "MAX_RETRIES", Reason: "must not be negative"}
	case c.ReadinessMaxWait < c.ReadinessPollInterval:
		return &models.ConfigError{Field: "READINESS_MAX_WAIT", Reason: "must be at least READINESS_POLL_INTERVAL"}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("CONFIG: ignoring %s=%q: %v", key, v, err)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("CONFIG: ignoring %s=%q: %v", key, v, err)
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("CONFIG: ignoring %s=%q: %v", key, v, err)
		return fallback
	}
	return d
}

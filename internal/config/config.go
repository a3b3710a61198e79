package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/vault-quizbot/internal/infrastructure/resilience"
)

// Config is built from defaults, then the optional YAML file named by
// QUIZBOT_CONFIG, then environment variables.
type Config struct {
	APIPort   string `yaml:"api_port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	APIRateLimitRPS       float64 `yaml:"api_rate_limit_rps"`
	APIRateLimitBurst     int     `yaml:"api_rate_limit_burst"`
	APIMaxInFlight        int     `yaml:"api_max_in_flight"`
	APIBackpressureWaitMS int     `yaml:"api_backpressure_wait_ms"`
	APIMaxConnections     int     `yaml:"api_max_connections"`

	PostgresDSN string `yaml:"postgres_dsn"`

	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`

	OllamaURL              string   `yaml:"ollama_url"`
	OllamaGenModel         string   `yaml:"ollama_gen_model"`
	OllamaEmbedModel       string   `yaml:"ollama_embed_model"`
	OllamaEmbedDimension   int      `yaml:"ollama_embed_dimension"`
	OllamaStructuredOutput bool     `yaml:"ollama_structured_output"`
	OllamaNoSchemaModels   []string `yaml:"ollama_no_schema_models"`
	OllamaTimeoutSeconds   int      `yaml:"ollama_timeout_seconds"`

	GenerationMaxAttempts    int `yaml:"generation_max_attempts"`
	GenerationTimeoutSeconds int `yaml:"generation_timeout_seconds"`

	VectorBackend  string `yaml:"vector_backend"`
	ChromaURL      string `yaml:"chroma_url"`
	ChromaTenant   string `yaml:"chroma_tenant"`
	ChromaDatabase string `yaml:"chroma_database"`
	QdrantURL      string `yaml:"qdrant_url"`
	Collection     string `yaml:"collection"`

	VaultRoot       string   `yaml:"vault_root"`
	VaultExtensions []string `yaml:"vault_extensions"`

	ChunkSize       int  `yaml:"chunk_size"`
	ChunkOverlap    int  `yaml:"chunk_overlap"`
	IndexBatchSize  int  `yaml:"index_batch_size"`
	IngestWorkers   int  `yaml:"ingest_workers"`
	SkipUnreadable  bool `yaml:"ingest_skip_unreadable"`
	WatchDebounceMS int  `yaml:"watch_debounce_ms"`

	DiversifyCount  int `yaml:"diversify_count"`
	RAGTopK         int `yaml:"rag_top_k"`
	RAGFusionRRFK   int `yaml:"rag_fusion_rrf_k"`
	RAGContextLimit int `yaml:"rag_context_limit"`

	QuizQuestionCount int `yaml:"quiz_question_count"`
	QuizChoiceCount   int `yaml:"quiz_choice_count"`

	RetryMaxAttempts          int     `yaml:"retry_max_attempts"`
	RetryInitialBackoffMS     int     `yaml:"retry_initial_backoff_ms"`
	RetryMaxBackoffMS         int     `yaml:"retry_max_backoff_ms"`
	BreakerEnabled            bool    `yaml:"breaker_enabled"`
	BreakerMinRequests        int     `yaml:"breaker_min_requests"`
	BreakerFailureRatio       float64 `yaml:"breaker_failure_ratio"`
	BreakerOpenTimeoutSeconds int     `yaml:"breaker_open_timeout_seconds"`

	WorkerMetricsPort string `yaml:"worker_metrics_port"`
}

func Defaults() Config {
	return Config{
		APIPort:   "8080",
		LogLevel:  "info",
		LogFormat: "json",

		APIRateLimitRPS:       10,
		APIRateLimitBurst:     20,
		APIMaxInFlight:        16,
		APIBackpressureWaitMS: 250,
		APIMaxConnections:     256,

		NATSSubject: "vault.index",

		OllamaURL:              "http://localhost:11434",
		OllamaGenModel:         "gpt-oss:latest",
		OllamaEmbedModel:       "nomic-embed-text",
		OllamaEmbedDimension:   768,
		OllamaStructuredOutput: true,
		OllamaTimeoutSeconds:   120,

		GenerationMaxAttempts:    3,
		GenerationTimeoutSeconds: 180,

		VectorBackend: "chroma",
		ChromaURL:     "http://localhost:8000",
		QdrantURL:     "http://localhost:6333",
		Collection:    "alpine-vault",

		VaultRoot:       "./vault",
		VaultExtensions: []string{".md"},

		ChunkSize:       800,
		ChunkOverlap:    100,
		IndexBatchSize:  2000,
		IngestWorkers:   8,
		SkipUnreadable:  true,
		WatchDebounceMS: 1500,

		DiversifyCount: 5,
		RAGTopK:        5,
		RAGFusionRRFK:  60,

		QuizQuestionCount: 10,
		QuizChoiceCount:   4,

		RetryMaxAttempts:          3,
		RetryInitialBackoffMS:     200,
		RetryMaxBackoffMS:         2000,
		BreakerEnabled:            true,
		BreakerMinRequests:        10,
		BreakerFailureRatio:       0.5,
		BreakerOpenTimeoutSeconds: 30,

		WorkerMetricsPort: "9090",
	}
}

func Load() (Config, error) {
	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("QUIZBOT_CONFIG")); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.overlayEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// overlayFile only replaces keys present in the file.
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) overlayEnv() {
	c.APIPort = mustEnv("API_PORT", c.APIPort)
	c.LogLevel = mustEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = mustEnv("LOG_FORMAT", c.LogFormat)

	c.APIRateLimitRPS = mustEnvFloat("API_RATE_LIMIT_RPS", c.APIRateLimitRPS)
	c.APIRateLimitBurst = mustEnvInt("API_RATE_LIMIT_BURST", c.APIRateLimitBurst)
	c.APIMaxInFlight = mustEnvInt("API_MAX_IN_FLIGHT", c.APIMaxInFlight)
	c.APIBackpressureWaitMS = mustEnvInt("API_BACKPRESSURE_WAIT_MS", c.APIBackpressureWaitMS)
	c.APIMaxConnections = mustEnvInt("API_MAX_CONNECTIONS", c.APIMaxConnections)

	c.PostgresDSN = mustEnv("POSTGRES_DSN", c.PostgresDSN)

	c.NATSURL = mustEnv("NATS_URL", c.NATSURL)
	c.NATSSubject = mustEnv("NATS_SUBJECT", c.NATSSubject)

	c.OllamaURL = mustEnv("OLLAMA_URL", c.OllamaURL)
	c.OllamaGenModel = mustEnv("OLLAMA_GEN_MODEL", c.OllamaGenModel)
	c.OllamaEmbedModel = mustEnv("OLLAMA_EMBED_MODEL", c.OllamaEmbedModel)
	c.OllamaEmbedDimension = mustEnvInt("OLLAMA_EMBED_DIMENSION", c.OllamaEmbedDimension)
	c.OllamaStructuredOutput = mustEnvBool("OLLAMA_STRUCTURED_OUTPUT", c.OllamaStructuredOutput)
	c.OllamaNoSchemaModels = mustEnvList("OLLAMA_NO_SCHEMA_MODELS", c.OllamaNoSchemaModels)
	c.OllamaTimeoutSeconds = mustEnvInt("OLLAMA_TIMEOUT_SECONDS", c.OllamaTimeoutSeconds)

	c.GenerationMaxAttempts = mustEnvInt("GENERATION_MAX_ATTEMPTS", c.GenerationMaxAttempts)
	c.GenerationTimeoutSeconds = mustEnvInt("GENERATION_TIMEOUT_SECONDS", c.GenerationTimeoutSeconds)

	c.VectorBackend = strings.ToLower(mustEnv("VECTOR_BACKEND", c.VectorBackend))
	c.ChromaURL = mustEnv("CHROMA_URL", c.ChromaURL)
	c.ChromaTenant = mustEnv("CHROMA_TENANT", c.ChromaTenant)
	c.ChromaDatabase = mustEnv("CHROMA_DATABASE", c.ChromaDatabase)
	c.QdrantURL = mustEnv("QDRANT_URL", c.QdrantURL)
	c.Collection = mustEnv("COLLECTION", c.Collection)

	c.VaultRoot = mustEnv("VAULT_ROOT", c.VaultRoot)
	c.VaultExtensions = mustEnvList("VAULT_EXTENSIONS", c.VaultExtensions)

	c.ChunkSize = mustEnvInt("CHUNK_SIZE", c.ChunkSize)
	c.ChunkOverlap = mustEnvInt("CHUNK_OVERLAP", c.ChunkOverlap)
	c.IndexBatchSize = mustEnvInt("INDEX_BATCH_SIZE", c.IndexBatchSize)
	c.IngestWorkers = mustEnvInt("INGEST_WORKERS", c.IngestWorkers)
	c.SkipUnreadable = mustEnvBool("INGEST_SKIP_UNREADABLE", c.SkipUnreadable)
	c.WatchDebounceMS = mustEnvInt("WATCH_DEBOUNCE_MS", c.WatchDebounceMS)

	c.DiversifyCount = mustEnvInt("DIVERSIFY_COUNT", c.DiversifyCount)
	c.RAGTopK = mustEnvInt("RAG_TOP_K", c.RAGTopK)
	c.RAGFusionRRFK = mustEnvInt("RAG_FUSION_RRF_K", c.RAGFusionRRFK)
	c.RAGContextLimit = mustEnvInt("RAG_CONTEXT_LIMIT", c.RAGContextLimit)

	c.QuizQuestionCount = mustEnvInt("QUIZ_QUESTION_COUNT", c.QuizQuestionCount)
	c.QuizChoiceCount = mustEnvInt("QUIZ_CHOICE_COUNT", c.QuizChoiceCount)

	c.RetryMaxAttempts = mustEnvInt("RESILIENCE_RETRY_MAX_ATTEMPTS", c.RetryMaxAttempts)
	c.RetryInitialBackoffMS = mustEnvInt("RESILIENCE_RETRY_INITIAL_BACKOFF_MS", c.RetryInitialBackoffMS)
	c.RetryMaxBackoffMS = mustEnvInt("RESILIENCE_RETRY_MAX_BACKOFF_MS", c.RetryMaxBackoffMS)
	c.BreakerEnabled = mustEnvBool("RESILIENCE_BREAKER_ENABLED", c.BreakerEnabled)
	c.BreakerMinRequests = mustEnvInt("RESILIENCE_BREAKER_MIN_REQUESTS", c.BreakerMinRequests)
	c.BreakerFailureRatio = mustEnvFloat("RESILIENCE_BREAKER_FAILURE_RATIO", c.BreakerFailureRatio)
	c.BreakerOpenTimeoutSeconds = mustEnvInt("RESILIENCE_BREAKER_OPEN_TIMEOUT_SECONDS", c.BreakerOpenTimeoutSeconds)

	c.WorkerMetricsPort = mustEnv("WORKER_METRICS_PORT", c.WorkerMetricsPort)
}

func (c Config) Validate() error {
	var errs []error
	switch c.VectorBackend {
	case "chroma", "qdrant", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown vector backend %q", c.VectorBackend))
	}
	if strings.TrimSpace(c.Collection) == "" {
		errs = append(errs, errors.New("collection name is empty"))
	}
	if c.QuizChoiceCount < 2 || c.QuizChoiceCount > 26 {
		errs = append(errs, fmt.Errorf("quiz choice count %d out of range 2..26", c.QuizChoiceCount))
	}
	if c.QuizQuestionCount < 1 {
		errs = append(errs, fmt.Errorf("quiz question count %d must be positive", c.QuizQuestionCount))
	}
	if c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk overlap %d must be below chunk size %d", c.ChunkOverlap, c.ChunkSize))
	}
	if err := c.Resilience().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("resilience: %w", err))
	}
	return errors.Join(errs...)
}

func (c Config) Resilience() resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:        c.RetryMaxAttempts,
		RetryInitialBackoff:     time.Duration(c.RetryInitialBackoffMS) * time.Millisecond,
		RetryMaxBackoff:         time.Duration(c.RetryMaxBackoffMS) * time.Millisecond,
		RetryMultiplier:         2.0,
		BreakerEnabled:          c.BreakerEnabled,
		BreakerMinRequests:      uint32(max(c.BreakerMinRequests, 0)),
		BreakerFailureRatio:     c.BreakerFailureRatio,
		BreakerOpenTimeout:      time.Duration(c.BreakerOpenTimeoutSeconds) * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

func (c Config) GenerationTimeout() time.Duration {
	return time.Duration(c.GenerationTimeoutSeconds) * time.Second
}

func (c Config) OllamaTimeout() time.Duration {
	return time.Duration(c.OllamaTimeoutSeconds) * time.Second
}

func (c Config) WatchDebounce() time.Duration {
	return time.Duration(c.WatchDebounceMS) * time.Millisecond
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// mustEnvList reads a comma-separated value.
func mustEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	out := make([]string, 0)
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

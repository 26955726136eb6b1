// Package config loads process configuration from the environment, an
// optional .env file and an optional config file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Backend names accepted by QUEUE_BACKEND and STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds all configuration for the process
type Config struct {
	LogLevel  string
	LogFormat string

	Server    ServerConfig
	Database  DatabaseConfig
	RedisURL  string
	Queue     string // memory, postgres or redis
	Store     string // memory or postgres
	Worker    WorkerConfig
	Scheduler SchedulerConfig
	Pipeline  PipelineConfig
	Chunker   ChunkerConfig
	AI        AIConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
	MaxUploadBytes int64
}

// DatabaseConfig holds PostgreSQL pool configuration
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// WorkerConfig holds worker pool configuration
type WorkerConfig struct {
	Concurrency    int
	DequeueTimeout int // seconds
}

// SchedulerConfig holds maintenance loop configuration
type SchedulerConfig struct {
	Enabled      bool
	LockRequired bool
	Interval     time.Duration
	StaleAfter   time.Duration
}

// PipelineConfig holds pipeline configuration
type PipelineConfig struct {
	TargetLanguage       string
	SummaryMaxLength     int
	EmbedBatchSize       int
	ExtractionTimeout    time.Duration
	TranslationTimeout   time.Duration
	SummarizationTimeout time.Duration
	EmbeddingTimeout     time.Duration
}

// ChunkerConfig holds chunking configuration
type ChunkerConfig struct {
	Size    int
	Overlap int
}

// AIConfig selects and configures the capability providers
type AIConfig struct {
	ExtractionProvider string
	ExtractionURL      string
	ExtractionAPIKey   string
	DefaultLanguage    string

	TextProvider string
	TextAPIKey   string
	TextModel    string
	TextBaseURL  string

	EmbeddingProvider   string
	EmbeddingAPIKey     string
	EmbeddingModel      string
	EmbeddingBaseURL    string
	EmbeddingDimensions int

	RateLimit float64 // requests per second per provider operation, 0 = unlimited
	Burst     int
	Timeout   time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 8080)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("MAX_UPLOAD_BYTES", 32<<20)

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME_SEC", 300)
	v.SetDefault("DB_CONN_MAX_IDLE_SEC", 60)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("QUEUE_BACKEND", "")
	v.SetDefault("STORE_BACKEND", "")

	v.SetDefault("WORKER_CONCURRENCY", 2)
	v.SetDefault("WORKER_DEQUEUE_TIMEOUT", 5)

	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("SCHEDULER_LOCK_REQUIRED", true)
	v.SetDefault("SCHEDULER_INTERVAL", "1m")
	v.SetDefault("JOB_STALE_AFTER", "30m")

	v.SetDefault("TARGET_LANGUAGE", "en")
	v.SetDefault("SUMMARY_MAX_LENGTH", 500)
	v.SetDefault("EMBED_BATCH_SIZE", 32)
	v.SetDefault("EXTRACTION_TIMEOUT", "5m")
	v.SetDefault("TRANSLATION_TIMEOUT", "2m")
	v.SetDefault("SUMMARIZATION_TIMEOUT", "2m")
	v.SetDefault("EMBEDDING_TIMEOUT", "2m")

	v.SetDefault("CHUNK_SIZE", 1000)
	v.SetDefault("CHUNK_OVERLAP", 200)

	v.SetDefault("EXTRACTION_PROVIDER", "")
	v.SetDefault("EXTRACTION_URL", "")
	v.SetDefault("EXTRACTION_API_KEY", "")
	v.SetDefault("DEFAULT_LANGUAGE", "")
	v.SetDefault("LLM_PROVIDER", "")
	v.SetDefault("LLM_API_KEY", "")
	v.SetDefault("LLM_MODEL", "")
	v.SetDefault("LLM_BASE_URL", "")
	v.SetDefault("EMBEDDING_PROVIDER", "")
	v.SetDefault("EMBEDDING_API_KEY", "")
	v.SetDefault("EMBEDDING_MODEL", "")
	v.SetDefault("EMBEDDING_BASE_URL", "")
	v.SetDefault("EMBEDDING_DIMENSIONS", 0)
	v.SetDefault("AI_RATE_LIMIT", 0)
	v.SetDefault("AI_RATE_BURST", 1)
	v.SetDefault("AI_TIMEOUT", "60s")
}

// Load reads .env (if present), then the config file at path (if not
// empty), then the environment. Environment variables win.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		Server: ServerConfig{
			Host:           v.GetString("HOST"),
			Port:           v.GetInt("PORT"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),
		},

		Database: DatabaseConfig{
			URL:             v.GetString("DATABASE_URL"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_SEC")) * time.Second,
			ConnMaxIdleTime: time.Duration(v.GetInt("DB_CONN_MAX_IDLE_SEC")) * time.Second,
		},
		RedisURL: v.GetString("REDIS_URL"),
		Queue:    strings.ToLower(v.GetString("QUEUE_BACKEND")),
		Store:    strings.ToLower(v.GetString("STORE_BACKEND")),

		Worker: WorkerConfig{
			Concurrency:    v.GetInt("WORKER_CONCURRENCY"),
			DequeueTimeout: v.GetInt("WORKER_DEQUEUE_TIMEOUT"),
		},

		Scheduler: SchedulerConfig{
			Enabled:      v.GetBool("SCHEDULER_ENABLED"),
			LockRequired: v.GetBool("SCHEDULER_LOCK_REQUIRED"),
			Interval:     v.GetDuration("SCHEDULER_INTERVAL"),
			StaleAfter:   v.GetDuration("JOB_STALE_AFTER"),
		},

		Pipeline: PipelineConfig{
			TargetLanguage:       v.GetString("TARGET_LANGUAGE"),
			SummaryMaxLength:     v.GetInt("SUMMARY_MAX_LENGTH"),
			EmbedBatchSize:       v.GetInt("EMBED_BATCH_SIZE"),
			ExtractionTimeout:    v.GetDuration("EXTRACTION_TIMEOUT"),
			TranslationTimeout:   v.GetDuration("TRANSLATION_TIMEOUT"),
			SummarizationTimeout: v.GetDuration("SUMMARIZATION_TIMEOUT"),
			EmbeddingTimeout:     v.GetDuration("EMBEDDING_TIMEOUT"),
		},

		Chunker: ChunkerConfig{
			Size:    v.GetInt("CHUNK_SIZE"),
			Overlap: v.GetInt("CHUNK_OVERLAP"),
		},

		AI: AIConfig{
			ExtractionProvider:  v.GetString("EXTRACTION_PROVIDER"),
			ExtractionURL:       v.GetString("EXTRACTION_URL"),
			ExtractionAPIKey:    v.GetString("EXTRACTION_API_KEY"),
			DefaultLanguage:     v.GetString("DEFAULT_LANGUAGE"),
			TextProvider:        v.GetString("LLM_PROVIDER"),
			TextAPIKey:          v.GetString("LLM_API_KEY"),
			TextModel:           v.GetString("LLM_MODEL"),
			TextBaseURL:         v.GetString("LLM_BASE_URL"),
			EmbeddingProvider:   v.GetString("EMBEDDING_PROVIDER"),
			EmbeddingAPIKey:     v.GetString("EMBEDDING_API_KEY"),
			EmbeddingModel:      v.GetString("EMBEDDING_MODEL"),
			EmbeddingBaseURL:    v.GetString("EMBEDDING_BASE_URL"),
			EmbeddingDimensions: v.GetInt("EMBEDDING_DIMENSIONS"),
			RateLimit:           v.GetFloat64("AI_RATE_LIMIT"),
			Burst:               v.GetInt("AI_RATE_BURST"),
			Timeout:             v.GetDuration("AI_TIMEOUT"),
		},
	}

	cfg.resolveBackends()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveBackends picks the queue and store backends when they are not set:
// redis when REDIS_URL is set, then postgres when DATABASE_URL is set,
// otherwise memory.
func (c *Config) resolveBackends() {
	if c.Store == "" {
		c.Store = BackendMemory
		if c.Database.URL != "" {
			c.Store = BackendPostgres
		}
	}
	if c.Queue == "" {
		switch {
		case c.RedisURL != "":
			c.Queue = BackendRedis
		case c.Database.URL != "":
			c.Queue = BackendPostgres
		default:
			c.Queue = BackendMemory
		}
	}
}

// Validate checks backend choices and numeric bounds.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store {
	case BackendMemory:
	case BackendPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("STORE_BACKEND=postgres requires DATABASE_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.Store))
	}

	switch c.Queue {
	case BackendMemory:
		if c.Store != BackendMemory {
			errs = append(errs, errors.New("QUEUE_BACKEND=memory requires STORE_BACKEND=memory"))
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("QUEUE_BACKEND=postgres requires DATABASE_URL"))
		}
	case BackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("QUEUE_BACKEND=redis requires REDIS_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown QUEUE_BACKEND %q", c.Queue))
	}

	if c.Chunker.Size < 1 || c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.Size {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got size=%d overlap=%d", c.Chunker.Size, c.Chunker.Overlap))
	}
	if c.Worker.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("WORKER_CONCURRENCY must be positive, got %d", c.Worker.Concurrency))
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

// SlogLevel maps LOG_LEVEL to a slog level. Unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

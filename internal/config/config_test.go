package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets the variables that select backends so the host
// environment cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DATABASE_URL", "REDIS_URL", "QUEUE_BACKEND", "STORE_BACKEND"} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Store)
	assert.Equal(t, BackendMemory, cfg.Queue)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Worker.Concurrency)
	assert.Equal(t, 5, cfg.Worker.DequeueTimeout)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.StaleAfter)
	assert.Equal(t, "en", cfg.Pipeline.TargetLanguage)
	assert.Equal(t, 5*time.Minute, cfg.Pipeline.ExtractionTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Pipeline.EmbeddingTimeout)
	assert.Equal(t, 1000, cfg.Chunker.Size)
	assert.Equal(t, 200, cfg.Chunker.Overlap)
	assert.Empty(t, cfg.AI.EmbeddingProvider)
	assert.Equal(t, time.Minute, cfg.AI.Timeout)
}

func TestLoad_BackendResolution(t *testing.T) {
	tests := []struct {
		name      string
		database  string
		redis     string
		wantStore string
		wantQueue string
	}{
		{"postgres only", "postgres://localhost/sercha", "", BackendPostgres, BackendPostgres},
		{"postgres and redis", "postgres://localhost/sercha", "redis://localhost:6379", BackendPostgres, BackendRedis},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("DATABASE_URL", tt.database)
			t.Setenv("REDIS_URL", tt.redis)

			cfg, err := Load("")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStore, cfg.Store)
			assert.Equal(t, tt.wantQueue, cfg.Queue)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("WORKER_CONCURRENCY", "8")
	t.Setenv("EXTRACTION_TIMEOUT", "20ms")
	t.Setenv("EMBEDDING_PROVIDER", "ollama")
	t.Setenv("EMBEDDING_MODEL", "mxbai-embed-large")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SCHEDULER_ENABLED", "false")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Worker.Concurrency)
	assert.Equal(t, 20*time.Millisecond, cfg.Pipeline.ExtractionTimeout)
	assert.Equal(t, "ollama", cfg.AI.EmbeddingProvider)
	assert.Equal(t, "mxbai-embed-large", cfg.AI.EmbeddingModel)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Scheduler.Enabled)
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sercha-ingest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunk_size: 400\nchunk_overlap: 50\ntarget_language: de\n"), 0o600))
	t.Setenv("TARGET_LANGUAGE", "fr")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 400, cfg.Chunker.Size)
	assert.Equal(t, 50, cfg.Chunker.Overlap)
	assert.Equal(t, "fr", cfg.Pipeline.TargetLanguage, "environment wins over the file")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"overlap not below size", map[string]string{"CHUNK_SIZE": "100", "CHUNK_OVERLAP": "100"}},
		{"unknown queue", map[string]string{"QUEUE_BACKEND": "kafka"}},
		{"redis queue without url", map[string]string{"QUEUE_BACKEND": "redis"}},
		{"postgres store without url", map[string]string{"STORE_BACKEND": "postgres"}},
		{"memory queue with postgres store", map[string]string{"DATABASE_URL": "postgres://localhost/x", "QUEUE_BACKEND": "memory"}},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}},
		{"no workers", map[string]string{"WORKER_CONCURRENCY": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, (&Config{LogLevel: "debug"}).SlogLevel())
	assert.Equal(t, slog.LevelWarn, (&Config{LogLevel: "WARN"}).SlogLevel())
	assert.Equal(t, slog.LevelInfo, (&Config{LogLevel: "loud"}).SlogLevel())
}

package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultConfig verifies that DefaultConfig returns valid defaults
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, 5*time.Minute, cfg.RunTimeout)
	assert.Len(t, cfg.Workers, 4)

	for _, name := range WorkerNames {
		wc := cfg.Worker(name)
		assert.Equal(t, 3, wc.Retry.MaxAttempts)
		assert.Equal(t, 1*time.Second, wc.Retry.BaseDelay)
		assert.Equal(t, 10*time.Second, wc.Retry.MaxDelay)
		assert.Equal(t, 2.0, wc.Retry.GrowthFactor)
		assert.Equal(t, 60*time.Second, wc.Timeout)
	}

	assert.Equal(t, "https://api.openai.com/v1", cfg.AI.BaseURL)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)

	require.NoError(t, cfg.Validate())
}

// TestConfigWorkerFallback verifies unknown workers get defaults
func TestConfigWorkerFallback(t *testing.T) {
	cfg := &Config{RunTimeout: time.Minute}

	wc := cfg.Worker(WorkerWeather)
	assert.Equal(t, 3, wc.Retry.MaxAttempts)
	assert.Equal(t, 60*time.Second, wc.Timeout)
}

// TestLoadFromFileYAML verifies YAML config loading
func TestLoadFromFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
run_timeout: 2m
workers:
  weather:
    timeout: 5s
    retry:
      max_attempts: 5
      base_delay: 200ms
      max_delay: 3s
      growth_factor: 1.5
      jitter: 0.2
ai:
  model: gpt-4o
cache:
  enabled: true
  redis_url: redis://localhost:6379
  ttl: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, 2*time.Minute, cfg.RunTimeout)
	assert.Equal(t, "gpt-4o", cfg.AI.Model)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)

	weather := cfg.Worker(WorkerWeather)
	assert.Equal(t, 5, weather.Retry.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, weather.Retry.BaseDelay)
	assert.Equal(t, 1.5, weather.Retry.GrowthFactor)
	assert.Equal(t, 5*time.Second, weather.Timeout)
}

// TestLoadFromFileRejectsUnknownExtension verifies extension gating
func TestLoadFromFileRejectsUnknownExtension(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile("/tmp/config.toml")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

// TestLoadFromEnv verifies environment overrides take precedence
func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TRIPWEAVER_RUN_TIMEOUT", "90s")
	t.Setenv("TRIPWEAVER_AI_API_KEY", "test-key")
	t.Setenv("TRIPWEAVER_WORKER_WEATHER_MAX_ATTEMPTS", "7")
	t.Setenv("TRIPWEAVER_WORKER_WEATHER_TIMEOUT", "3s")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, 90*time.Second, cfg.RunTimeout)
	assert.Equal(t, "test-key", cfg.AI.APIKey)
	assert.Equal(t, 7, cfg.Worker(WorkerWeather).Retry.MaxAttempts)
	assert.Equal(t, 3*time.Second, cfg.Worker(WorkerWeather).Timeout)

	// Untouched workers keep their defaults
	assert.Equal(t, 3, cfg.Worker(WorkerLodging).Retry.MaxAttempts)
}

// TestConfigValidate verifies validation rules
func TestConfigValidate(t *testing.T) {
	t.Run("zero run timeout", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.RunTimeout = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("zero max attempts", func(t *testing.T) {
		cfg := DefaultConfig()
		wc := cfg.Worker(WorkerWeather)
		wc.Retry.MaxAttempts = 0
		cfg.Workers[WorkerWeather] = wc
		assert.Error(t, cfg.Validate())
	})

	t.Run("growth factor below one", func(t *testing.T) {
		cfg := DefaultConfig()
		wc := cfg.Worker(WorkerItinerary)
		wc.Retry.GrowthFactor = 0.5
		cfg.Workers[WorkerItinerary] = wc
		assert.Error(t, cfg.Validate())
	})

	t.Run("jitter out of range", func(t *testing.T) {
		cfg := DefaultConfig()
		wc := cfg.Worker(WorkerAttractions)
		wc.Retry.Jitter = 1.5
		cfg.Workers[WorkerAttractions] = wc
		assert.Error(t, cfg.Validate())
	})

	t.Run("cache without redis URL", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Cache.Enabled = true
		cfg.Cache.RedisURL = ""
		assert.Error(t, cfg.Validate())
	})
}

package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// WorkerName identifies one of the configured planner workers
type WorkerName string

const (
	WorkerAttractions WorkerName = "attractions"
	WorkerWeather     WorkerName = "weather"
	WorkerLodging     WorkerName = "lodging"
	WorkerItinerary   WorkerName = "itinerary"
)

// WorkerNames lists the workers in slot order
var WorkerNames = []WorkerName{WorkerAttractions, WorkerWeather, WorkerLodging, WorkerItinerary}

// RetryConfig holds the per-worker retry policy surface
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay    time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	GrowthFactor float64       `yaml:"growth_factor" json:"growth_factor"`
	Jitter       float64       `yaml:"jitter" json:"jitter"`
}

// WorkerConfig configures one worker adapter. Fallback is the statically
// configured value substituted when the worker fails terminally; the
// itinerary worker ignores it and builds a synthetic plan instead.
type WorkerConfig struct {
	Retry    RetryConfig   `yaml:"retry" json:"retry"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
	Fallback string        `yaml:"fallback" json:"fallback"`
}

// AIConfig configures the outbound language-model client
type AIConfig struct {
	APIKey  string        `yaml:"api_key" json:"api_key"`
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Model   string        `yaml:"model" json:"model"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// MapsConfig configures the outbound geo service client
type MapsConfig struct {
	APIKey  string        `yaml:"api_key" json:"api_key"`
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// CacheConfig configures plan caching
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled" json:"enabled"`
	RedisURL string        `yaml:"redis_url" json:"redis_url"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
}

// TelemetryConfig configures tracing export
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	ServiceName string `yaml:"service_name" json:"service_name"`
	Endpoint    string `yaml:"endpoint" json:"endpoint"`
}

// Config is the full configuration surface consumed by the planner core.
// It is held, not owned: values are supplied by the embedding application.
type Config struct {
	RunTimeout time.Duration               `yaml:"run_timeout" json:"run_timeout"`
	Workers    map[WorkerName]WorkerConfig `yaml:"workers" json:"workers"`
	AI         AIConfig                    `yaml:"ai" json:"ai"`
	Maps       MapsConfig                  `yaml:"maps" json:"maps"`
	Cache      CacheConfig                 `yaml:"cache" json:"cache"`
	Telemetry  TelemetryConfig             `yaml:"telemetry" json:"telemetry"`
	LogLevel   string                      `yaml:"log_level" json:"log_level"`
}

// DefaultRetryConfig provides sensible defaults matching the planner's
// production tuning.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		BaseDelay:    1 * time.Second,
		MaxDelay:     10 * time.Second,
		GrowthFactor: 2.0,
		Jitter:       0.5,
	}
}

// DefaultConfig creates a configuration with sensible defaults
func DefaultConfig() *Config {
	fallbacks := map[WorkerName]string{
		WorkerAttractions: "attraction search unavailable",
		WorkerWeather:     "weather data unavailable",
		WorkerLodging:     "lodging recommendations unavailable",
	}
	workers := make(map[WorkerName]WorkerConfig, len(WorkerNames))
	for _, name := range WorkerNames {
		workers[name] = WorkerConfig{
			Retry:    DefaultRetryConfig(),
			Timeout:  60 * time.Second,
			Fallback: fallbacks[name],
		}
	}
	return &Config{
		RunTimeout: 5 * time.Minute,
		Workers:    workers,
		AI: AIConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
			Timeout: 120 * time.Second,
		},
		Maps: MapsConfig{
			BaseURL: "https://restapi.amap.com/v3",
			Timeout: 15 * time.Second,
		},
		Cache: CacheConfig{
			TTL: 10 * time.Minute,
		},
		LogLevel: "INFO",
	}
}

// Worker returns the configuration for a worker, falling back to defaults
// for workers absent from the map.
func (c *Config) Worker(name WorkerName) WorkerConfig {
	if wc, ok := c.Workers[name]; ok {
		return wc
	}
	return WorkerConfig{Retry: DefaultRetryConfig(), Timeout: 60 * time.Second}
}

// LoadFromFile loads configuration from a JSON or YAML file
func (c *Config) LoadFromFile(path string) error {
	cleanPath := filepath.Clean(path)

	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config file extension %s: %w", ext, ErrInvalidRequest)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", cleanPath, err)
	}

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse JSON config file: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse YAML config file: %w", err)
		}
	}

	return nil
}

// LoadFromEnv overlays configuration from environment variables.
// Environment always wins over file values.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("TRIPWEAVER_RUN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RunTimeout = d
		}
	}
	if v := os.Getenv("TRIPWEAVER_AI_API_KEY"); v != "" {
		c.AI.APIKey = v
	} else if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("TRIPWEAVER_AI_BASE_URL"); v != "" {
		c.AI.BaseURL = v
	}
	if v := os.Getenv("TRIPWEAVER_AI_MODEL"); v != "" {
		c.AI.Model = v
	}
	if v := os.Getenv("TRIPWEAVER_MAPS_API_KEY"); v != "" {
		c.Maps.APIKey = v
	} else if v := os.Getenv("AMAP_MAPS_API_KEY"); v != "" {
		c.Maps.APIKey = v
	}
	if v := os.Getenv("TRIPWEAVER_MAPS_BASE_URL"); v != "" {
		c.Maps.BaseURL = v
	}
	if v := os.Getenv("TRIPWEAVER_CACHE_ENABLED"); v != "" {
		c.Cache.Enabled = v == "true"
	}
	if v := os.Getenv("TRIPWEAVER_REDIS_URL"); v != "" {
		c.Cache.RedisURL = v
	} else if v := os.Getenv("REDIS_URL"); v != "" {
		c.Cache.RedisURL = v
	}
	if v := os.Getenv("TRIPWEAVER_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Cache.TTL = d
		}
	}
	if v := os.Getenv("TRIPWEAVER_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true"
	}
	if v := os.Getenv("TRIPWEAVER_TELEMETRY_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
	} else if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
	}
	if v := os.Getenv("TRIPWEAVER_TELEMETRY_SERVICE_NAME"); v != "" {
		c.Telemetry.ServiceName = v
	} else if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		c.Telemetry.ServiceName = v
	}
	if v := os.Getenv("TRIPWEAVER_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	for _, name := range WorkerNames {
		prefix := "TRIPWEAVER_WORKER_" + envKey(name)
		wc := c.Worker(name)
		changed := false
		if v := os.Getenv(prefix + "_MAX_ATTEMPTS"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				wc.Retry.MaxAttempts = n
				changed = true
			}
		}
		if v := os.Getenv(prefix + "_TIMEOUT"); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				wc.Timeout = d
				changed = true
			}
		}
		if changed {
			if c.Workers == nil {
				c.Workers = make(map[WorkerName]WorkerConfig)
			}
			c.Workers[name] = wc
		}
	}
	return nil
}

// Validate checks if the configuration is valid and returns an error if not
func (c *Config) Validate() error {
	if c.RunTimeout <= 0 {
		return &PlannerError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: "run timeout must be positive",
			Err:     ErrInvalidRequest,
		}
	}
	for _, name := range WorkerNames {
		wc := c.Worker(name)
		if wc.Retry.MaxAttempts < 1 {
			return &PlannerError{
				Op:      "Config.Validate",
				Kind:    "config",
				Message: fmt.Sprintf("worker %s: max_attempts must be at least 1", name),
				Err:     ErrInvalidRequest,
			}
		}
		if wc.Retry.GrowthFactor < 1 {
			return &PlannerError{
				Op:      "Config.Validate",
				Kind:    "config",
				Message: fmt.Sprintf("worker %s: growth_factor must be >= 1", name),
				Err:     ErrInvalidRequest,
			}
		}
		if wc.Retry.Jitter < 0 || wc.Retry.Jitter > 1 {
			return &PlannerError{
				Op:      "Config.Validate",
				Kind:    "config",
				Message: fmt.Sprintf("worker %s: jitter must be within [0, 1]", name),
				Err:     ErrInvalidRequest,
			}
		}
	}
	if c.Cache.Enabled && c.Cache.RedisURL == "" {
		return &PlannerError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: "redis URL is required when the plan cache is enabled",
			Err:     ErrInvalidRequest,
		}
	}
	return nil
}

func envKey(name WorkerName) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		ch := name[i]
		if ch >= 'a' && ch <= 'z' {
			ch -= 'a' - 'A'
		}
		out = append(out, ch)
	}
	return string(out)
}

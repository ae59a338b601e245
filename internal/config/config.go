// Package config loads runtime settings from .env, an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StorageBigQuery = "bigquery"
	StoragePostgres = "postgres"
	StorageNone     = "none"
)

// Config holds every setting the services read. It is built once at startup
// and passed to constructors explicitly.
type Config struct {
	Port      string `yaml:"port"`
	Env       string `yaml:"env"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	GeminiAPIKey     string        `yaml:"gemini_api_key"`
	ModelName        string        `yaml:"model"`
	StructuringModel string        `yaml:"structuring_model"`
	LLMTimeout       time.Duration `yaml:"llm_timeout"`

	TempDir        string `yaml:"temp_dir"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`

	StorageBackend  string `yaml:"storage_backend"`
	BigQueryProject string `yaml:"bigquery_project"`
	BigQueryDataset string `yaml:"bigquery_dataset"`
	DatabaseURL     string `yaml:"database_url"`
	GCSBucket       string `yaml:"gcs_bucket"`

	NotionToken      string `yaml:"notion_token"`
	NotionDatabaseID string `yaml:"notion_database_id"`

	JobWorkers    int `yaml:"job_workers"`
	JobQueueSize  int `yaml:"job_queue_size"`
	JobMaxRetries int `yaml:"job_max_retries"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Port:            "8000",
		Env:             "development",
		LogLevel:        "info",
		LogFormat:       "console",
		ModelName:       "gemini-2.5-flash",
		LLMTimeout:      120 * time.Second,
		TempDir:         "temp_uploads",
		MaxUploadBytes:  20 << 20,
		StorageBackend:  StorageMemory,
		BigQueryDataset: "statements",
		JobWorkers:      5,
		JobQueueSize:    100,
		JobMaxRetries:   2,
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.StructuringModel == "" {
		cfg.StructuringModel = cfg.ModelName
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a YAML config on top of the defaults, without consulting the environment.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	if cfg.StructuringModel == "" {
		cfg.StructuringModel = cfg.ModelName
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.Env = getEnv("ENV", c.Env)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.GeminiAPIKey)
	c.ModelName = getEnv("GEMINI_MODEL", c.ModelName)
	c.StructuringModel = getEnv("STRUCTURING_MODEL", c.StructuringModel)
	c.TempDir = getEnv("TEMP_DIR", c.TempDir)
	c.StorageBackend = strings.ToLower(getEnv("STORAGE_BACKEND", c.StorageBackend))
	c.BigQueryProject = getEnv("BIGQUERY_PROJECT", c.BigQueryProject)
	c.BigQueryDataset = getEnv("BIGQUERY_DATASET", c.BigQueryDataset)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.GCSBucket = getEnv("GCS_BUCKET", c.GCSBucket)
	c.NotionToken = getEnv("NOTION_TOKEN", c.NotionToken)
	c.NotionDatabaseID = getEnv("NOTION_DATABASE_ID", c.NotionDatabaseID)

	var err error
	if c.LLMTimeout, err = getDuration("LLM_TIMEOUT", c.LLMTimeout); err != nil {
		return err
	}
	if c.MaxUploadBytes, err = getInt64("MAX_UPLOAD_BYTES", c.MaxUploadBytes); err != nil {
		return err
	}
	if c.JobWorkers, err = getInt("JOB_WORKERS", c.JobWorkers); err != nil {
		return err
	}
	if c.JobQueueSize, err = getInt("JOB_QUEUE_SIZE", c.JobQueueSize); err != nil {
		return err
	}
	if c.JobMaxRetries, err = getInt("JOB_MAX_RETRIES", c.JobMaxRetries); err != nil {
		return err
	}
	return nil
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	var problems []string

	switch c.StorageBackend {
	case StorageMemory, StorageNone:
	case StorageBigQuery:
		if c.BigQueryProject == "" {
			problems = append(problems, "BIGQUERY_PROJECT is required for the bigquery storage backend")
		}
		if c.BigQueryDataset == "" {
			problems = append(problems, "BIGQUERY_DATASET is required for the bigquery storage backend")
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required for the postgres storage backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}

	if c.Port == "" {
		problems = append(problems, "PORT must not be empty")
	}
	if c.TempDir == "" {
		problems = append(problems, "TEMP_DIR must not be empty")
	}
	if c.LLMTimeout <= 0 {
		problems = append(problems, "LLM_TIMEOUT must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		problems = append(problems, "MAX_UPLOAD_BYTES must be positive")
	}
	if c.JobWorkers < 1 {
		problems = append(problems, "JOB_WORKERS must be at least 1")
	}
	if c.JobQueueSize < 1 {
		problems = append(problems, "JOB_QUEUE_SIZE must be at least 1")
	}
	if c.JobMaxRetries < 0 {
		problems = append(problems, "JOB_MAX_RETRIES must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Helper to get env with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getInt64(key string, fallback int64) (int64, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// Package config reads the ledger's runtime configuration from the
// environment, with an optional .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Relational backends.
const (
	RelationalNone     = "none"
	RelationalPostgres = "postgres"
	RelationalBigQuery = "bigquery"
)

// Remote file backends.
const (
	RemoteNone  = "none"
	RemoteDrive = "drive"
	RemoteGCS   = "gcs"
)

// Config holds application configuration.
type Config struct {
	DataDir  string // always absolute
	DBFile   string
	Port     int
	LogLevel string

	SyncDebounce time.Duration
	SyncSchedule string

	DatabaseURL     string
	BigQueryProject string
	BigQueryDataset string

	GoogleClientID  string
	RemoteGCSBucket string
	RemoteGCSPrefix string

	GeminiModel string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first if present; real env vars win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir, err := filepath.Abs(getEnv("LEDGER_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("resolve data directory: %w", err)
	}

	cfg := &Config{
		DataDir:         dataDir,
		DBFile:          getEnv("LEDGER_DB_FILE", "ledger.db"),
		Port:            getEnvAsInt("PORT", 8080),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		SyncDebounce:    getEnvAsDuration("SYNC_DEBOUNCE", 3*time.Second),
		SyncSchedule:    getEnv("SYNC_SCHEDULE", "@every 15m"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		BigQueryProject: getEnv("BIGQUERY_PROJECT", ""),
		BigQueryDataset: getEnv("BIGQUERY_DATASET", ""),
		GoogleClientID:  getEnv("GOOGLE_CLIENT_ID", ""),
		RemoteGCSBucket: getEnv("REMOTE_GCS_BUCKET", ""),
		RemoteGCSPrefix: getEnv("REMOTE_GCS_PREFIX", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that cannot work together.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.SyncDebounce <= 0 {
		return fmt.Errorf("SYNC_DEBOUNCE must be positive, got %s", c.SyncDebounce)
	}
	if (c.BigQueryProject == "") != (c.BigQueryDataset == "") && c.DatabaseURL == "" {
		return fmt.Errorf("BIGQUERY_PROJECT and BIGQUERY_DATASET must be set together")
	}
	return nil
}

// DBPath is the SQLite file backing the local store.
func (c *Config) DBPath() string {
	if filepath.IsAbs(c.DBFile) {
		return c.DBFile
	}
	return filepath.Join(c.DataDir, c.DBFile)
}

// EnsureDataDir creates DataDir if needed.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	return nil
}

// RelationalKind reports which relational backend is configured. Postgres
// takes precedence when both are set.
func (c *Config) RelationalKind() string {
	switch {
	case c.DatabaseURL != "":
		return RelationalPostgres
	case c.BigQueryProject != "" && c.BigQueryDataset != "":
		return RelationalBigQuery
	}
	return RelationalNone
}

// RemoteKind reports which remote file backend is configured. Drive takes
// precedence over GCS.
func (c *Config) RemoteKind() string {
	switch {
	case c.GoogleClientID != "":
		return RemoteDrive
	case c.RemoteGCSBucket != "":
		return RemoteGCS
	}
	return RemoteNone
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LEDGER_DATA_DIR", "LEDGER_DB_FILE", "PORT", "LOG_LEVEL", "SYNC_DEBOUNCE", "SYNC_SCHEDULE",
		"DATABASE_URL", "BIGQUERY_PROJECT", "BIGQUERY_DATASET",
		"GOOGLE_CLIENT_ID", "REMOTE_GCS_BUCKET", "REMOTE_GCS_PREFIX", "GEMINI_MODEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(cfg.DataDir))
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.SyncDebounce)
	assert.Equal(t, "@every 15m", cfg.SyncSchedule)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Equal(t, RelationalNone, cfg.RelationalKind())
	assert.Equal(t, RemoteNone, cfg.RemoteKind())
	assert.Equal(t, filepath.Join(cfg.DataDir, "ledger.db"), cfg.DBPath())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("SYNC_DEBOUNCE", "250ms")
	t.Setenv("DATABASE_URL", "postgres://localhost/ledger")
	t.Setenv("REMOTE_GCS_BUCKET", "ledger-bucket")
	t.Setenv("LEDGER_DB_FILE", "/var/lib/ledger/store.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.SyncDebounce)
	assert.Equal(t, RelationalPostgres, cfg.RelationalKind())
	assert.Equal(t, RemoteGCS, cfg.RemoteKind())
	assert.Equal(t, "/var/lib/ledger/store.db", cfg.DBPath())
}

func TestConfig_Kinds(t *testing.T) {
	tests := []struct {
		name           string
		cfg            Config
		wantRelational string
		wantRemote     string
	}{
		{"bigquery", Config{BigQueryProject: "p", BigQueryDataset: "d"}, RelationalBigQuery, RemoteNone},
		{"postgres wins", Config{DatabaseURL: "postgres://x", BigQueryProject: "p", BigQueryDataset: "d"}, RelationalPostgres, RemoteNone},
		{"drive wins", Config{GoogleClientID: "cid", RemoteGCSBucket: "b"}, RelationalNone, RemoteDrive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantRelational, tt.cfg.RelationalKind())
			assert.Equal(t, tt.wantRemote, tt.cfg.RemoteKind())
		})
	}
}

func TestValidate(t *testing.T) {
	assert.Error(t, (&Config{Port: 0, SyncDebounce: time.Second}).Validate())
	assert.Error(t, (&Config{Port: 80, SyncDebounce: 0}).Validate())
	assert.Error(t, (&Config{Port: 80, SyncDebounce: time.Second, BigQueryProject: "p"}).Validate())
	assert.NoError(t, (&Config{Port: 80, SyncDebounce: time.Second}).Validate())
}

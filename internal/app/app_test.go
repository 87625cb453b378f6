package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/relational"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_LocalOnly(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		DataDir:      filepath.Join(dir, "data"),
		DBFile:       "ledger.db",
		Port:         8080,
		SyncDebounce: time.Second,
	}

	a, err := Build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, ledger.BackendLocal, a.Service.Mode())
	assert.Nil(t, a.Fetcher)
	assert.FileExists(t, cfg.DBPath())

	accounts, err := a.Service.GetAccounts(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, accounts)
}

type closeRecorder struct {
	relational.Gateway
	closed int
}

func (c *closeRecorder) Close() error {
	c.closed++
	return nil
}

func TestClose_ReleasesRelationalWithoutService(t *testing.T) {
	rel := &closeRecorder{}
	var order []string
	a := &App{
		rel:     rel,
		closers: []func() error{func() error { order = append(order, "blobs"); return nil }},
		log:     zerolog.Nop(),
	}

	// Build failed after the relational backend connected.
	a.Close()
	assert.Equal(t, 1, rel.closed)
	assert.Equal(t, []string{"blobs"}, order)
}

func TestClose_ServiceOwnsRelational(t *testing.T) {
	rel := &closeRecorder{}
	a := &App{rel: rel, log: zerolog.Nop()}
	a.Service = ledger.New(nil, zerolog.Nop(), ledger.WithRelational(rel))

	a.Close()
	assert.Equal(t, 1, rel.closed, "closed once, through the service")
}

// Package app builds the ledger and its collaborators from configuration.
// Every binary starts here.
package app

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/importer"
	"github.com/dvloznov/finance-ledger/internal/infra/bigquery"
	"github.com/dvloznov/finance-ledger/internal/infra/drive"
	"github.com/dvloznov/finance-ledger/internal/infra/gcs"
	"github.com/dvloznov/finance-ledger/internal/infra/postgres"
	"github.com/dvloznov/finance-ledger/internal/infra/sqlite"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/ledgerstore"
	"github.com/dvloznov/finance-ledger/internal/relational"
	"github.com/dvloznov/finance-ledger/internal/remotefile"
	"github.com/dvloznov/finance-ledger/internal/syncer"
	"github.com/rs/zerolog"
)

// App holds the wired components.
type App struct {
	Config   *config.Config
	Store    *ledgerstore.Store
	Service  *ledger.Service
	Importer *importer.Importer
	// Fetcher reads gs:// statements; nil unless a GCS bucket is configured.
	Fetcher importer.Fetcher
	// Uploader stores local statements in the same bucket.
	Uploader Uploader

	rel     relational.Gateway // owned by Service once it exists
	closers []func() error
	log     zerolog.Logger
}

// Uploader puts a statement file into object storage and returns its URI.
type Uploader interface {
	Upload(ctx context.Context, fileName, contentType string, data []byte) (string, error)
}

// Build opens the local store and connects the configured backends.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, log: log}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, err
	}
	blobs, err := sqlite.Open(ctx, cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}
	a.closers = append(a.closers, blobs.Close)
	a.Store = ledgerstore.New(blobs, log)

	var opts []ledger.Option

	rel, err := a.relational(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	if rel != nil {
		a.rel = rel
		opts = append(opts, ledger.WithRelational(rel))
	}

	coord, err := a.syncer(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	if coord != nil {
		opts = append(opts, ledger.WithSync(coord))
	}

	a.Service = ledger.New(a.Store, log, opts...)
	a.Importer = importer.New(a.Service, a.extractor(ctx), log)

	log.Info().
		Str("db", cfg.DBPath()).
		Str("relational", cfg.RelationalKind()).
		Str("remote", cfg.RemoteKind()).
		Msg("ledger initialised")
	return a, nil
}

func (a *App) relational(ctx context.Context) (relational.Gateway, error) {
	switch a.Config.RelationalKind() {
	case config.RelationalPostgres:
		gw, err := postgres.Connect(ctx, a.Config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("Build: postgres: %w", err)
		}
		return gw, nil
	case config.RelationalBigQuery:
		gw, err := bigquery.NewGateway(ctx, a.Config.BigQueryProject, a.Config.BigQueryDataset)
		if err != nil {
			return nil, fmt.Errorf("Build: bigquery: %w", err)
		}
		return gw, nil
	}
	return nil, nil
}

func (a *App) syncer(ctx context.Context) (*syncer.Coordinator, error) {
	var gw remotefile.Gateway
	switch a.Config.RemoteKind() {
	case config.RemoteDrive:
		gw = drive.NewGateway()
	case config.RemoteGCS:
		g, err := gcs.NewGateway(ctx, a.Config.RemoteGCSBucket, a.Config.RemoteGCSPrefix)
		if err != nil {
			return nil, fmt.Errorf("Build: gcs: %w", err)
		}
		a.closers = append(a.closers, g.Close)
		a.Fetcher = g
		a.Uploader = g
		gw = g
	default:
		return nil, nil
	}

	session, err := syncer.NewSession(ctx, a.Store, a.log)
	if err != nil {
		return nil, fmt.Errorf("Build: session: %w", err)
	}
	if id := a.Config.GoogleClientID; id != "" && session.ClientID() != id {
		if err := session.SetClientID(ctx, id); err != nil {
			return nil, fmt.Errorf("Build: client id: %w", err)
		}
	}
	return syncer.NewCoordinator(a.Store, gw, session, a.Config.SyncDebounce, a.log), nil
}

// extractor returns nil when no model credentials are available; scans then
// fail while every other operation keeps working.
func (a *App) extractor(ctx context.Context) importer.Extractor {
	ex, err := importer.NewGeminiExtractor(ctx, a.Config.GeminiModel)
	if err != nil {
		a.log.Warn().Err(err).Msg("statement extraction disabled")
		return nil
	}
	return ex
}

// Close stops pending pushes and releases every connection.
func (a *App) Close() {
	if a.Service != nil {
		if err := a.Service.Close(); err != nil {
			a.log.Error().Err(err).Msg("failed to close ledger service")
		}
	} else if a.rel != nil {
		if err := a.rel.Close(); err != nil {
			a.log.Error().Err(err).Msg("failed to close relational backend")
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Error().Err(err).Msg("failed to close resource")
		}
	}
}

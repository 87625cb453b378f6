package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/infra/bigquery"
	"github.com/dvloznov/finance-ledger/internal/infra/postgres"
	"github.com/dvloznov/finance-ledger/internal/logger"
)

var (
	appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	migrationsDir = flag.String("migrations", "", "Path to migrations directory (default migrations/<backend>)")
	dryRun        = flag.Bool("dry-run", false, "List pending migrations without applying them")
)

func main() {
	flag.Parse()
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	var (
		r            runner
		replacements map[string]string
	)
	switch cfg.RelationalKind() {
	case config.RelationalPostgres:
		gw, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Postgres")
		}
		defer gw.Close()
		r = &postgresRunner{pool: gw.Pool()}
	case config.RelationalBigQuery:
		gw, err := bigquery.NewGateway(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery client")
		}
		defer gw.Close()
		r = &bigqueryRunner{gw: gw}
		replacements = map[string]string{
			"{{PROJECT_ID}}": cfg.BigQueryProject,
			"{{DATASET_ID}}": cfg.BigQueryDataset,
		}
	default:
		log.Fatal().Msg("No relational backend configured: set DATABASE_URL or BIGQUERY_PROJECT and BIGQUERY_DATASET")
	}

	dir := *migrationsDir
	if dir == "" {
		dir = "migrations/" + r.name()
	}
	log.Info().Str("backend", r.name()).Str("dir", dir).Msg("Running migrations")

	applied, err := migrate(ctx, r, dir, replacements, *appliedBy, *dryRun, log)
	if err != nil {
		log.Error().Err(err).Msg("Migration failed")
		os.Exit(1)
	}

	if applied == 0 {
		fmt.Println("No new migrations to apply. Database is up to date.")
	} else if *dryRun {
		fmt.Printf("%d migration(s) pending\n", applied)
	} else {
		fmt.Printf("Successfully applied %d migration(s)\n", applied)
	}
}

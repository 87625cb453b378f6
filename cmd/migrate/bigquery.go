package main

import (
	"context"
	"fmt"

	bq "cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-ledger/internal/infra/bigquery"
	"google.golang.org/api/iterator"
)

type bigqueryRunner struct {
	gw *bigquery.Gateway
}

func (r *bigqueryRunner) name() string { return "bigquery" }

func (r *bigqueryRunner) run(ctx context.Context, q *bq.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

func (r *bigqueryRunner) ensureTable(ctx context.Context) error {
	return r.run(ctx, r.gw.Client().Query(`
		CREATE TABLE IF NOT EXISTS ` + r.gw.Table("schema_migrations") + ` (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`))
}

func (r *bigqueryRunner) appliedVersions(ctx context.Context) (map[int]string, error) {
	q := r.gw.Client().Query(`SELECT version, checksum FROM ` + r.gw.Table("schema_migrations") + ` ORDER BY version`)
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	applied := make(map[int]string)
	for {
		var row struct {
			Version  int64          `bigquery:"version"`
			Checksum bq.NullString `bigquery:"checksum"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}
		applied[int(row.Version)] = row.Checksum.StringVal
	}
	return applied, nil
}

func (r *bigqueryRunner) execute(ctx context.Context, m Migration) error {
	return r.run(ctx, r.gw.Client().Query(m.SQL))
}

func (r *bigqueryRunner) record(ctx context.Context, m Migration, appliedBy string) error {
	q := r.gw.Client().Query(`
		INSERT INTO ` + r.gw.Table("schema_migrations") + `
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`)
	q.Parameters = []bq.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: appliedBy},
	}
	return r.run(ctx, q)
}

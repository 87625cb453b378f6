package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRunner struct {
	pool *pgxpool.Pool
}

func (r *postgresRunner) name() string { return "postgres" }

func (r *postgresRunner) ensureTable(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			checksum   TEXT,
			applied_by TEXT
		)
	`)
	return err
}

func (r *postgresRunner) appliedVersions(ctx context.Context) (map[int]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT version, COALESCE(checksum, '') FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]string)
	for rows.Next() {
		var version int
		var sum string
		if err := rows.Scan(&version, &sum); err != nil {
			return nil, err
		}
		applied[version] = sum
	}
	return applied, rows.Err()
}

// execute and record share one transaction so a failed statement leaves no
// partial schema behind.
func (r *postgresRunner) execute(ctx context.Context, m Migration) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, m.SQL); err != nil {
			return fmt.Errorf("running migration: %w", err)
		}
		return nil
	})
}

func (r *postgresRunner) record(ctx context.Context, m Migration, appliedBy string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO schema_migrations (version, name, checksum, applied_by) VALUES ($1, $2, $3, $4)`,
		m.Version, m.Name, m.Checksum, appliedBy)
	return err
}

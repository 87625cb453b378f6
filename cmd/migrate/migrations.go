package main

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Migration is one numbered SQL file.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// runner applies migrations to one backend.
type runner interface {
	name() string
	ensureTable(ctx context.Context) error
	appliedVersions(ctx context.Context) (map[int]string, error)
	execute(ctx context.Context, m Migration) error
	record(ctx context.Context, m Migration, appliedBy string) error
}

// filenamePattern matches 0001_name.sql.
var filenamePattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// parseFilename returns the version and name encoded in a migration file name.
func parseFilename(filename string) (int, string, bool) {
	m := filenamePattern.FindStringSubmatch(filename)
	if m == nil {
		return 0, "", false
	}
	version, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return version, m[2], true
}

// readMigrations loads every migration in dir, sorted by version. The
// checksum covers the file as written, before placeholders are replaced.
func readMigrations(dir string, replacements map[string]string, log zerolog.Logger) ([]Migration, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		// Also try from cmd/migrate.
		alt := filepath.Join("..", "..", dir)
		if _, err := os.Stat(alt); err != nil {
			return nil, fmt.Errorf("migrations directory not found: %s", dir)
		}
		dir = alt
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration
	seen := make(map[int]string)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		version, name, ok := parseFilename(file.Name())
		if !ok {
			log.Warn().Str("file", file.Name()).Msg("Skipping file with invalid format")
			continue
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("duplicate migration version %04d: %s and %s", version, prev, file.Name())
		}
		seen[version] = file.Name()

		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", file.Name(), err)
		}

		sql := string(content)
		for placeholder, value := range replacements {
			sql = strings.ReplaceAll(sql, placeholder, value)
		}

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     name,
			Filename: file.Name(),
			SQL:      sql,
			Checksum: checksum(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func checksum(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// migrate applies every pending migration in order and returns how many ran
// (or would run, in a dry run). A changed checksum on an applied migration
// is logged but not fatal.
func migrate(ctx context.Context, r runner, dir string, replacements map[string]string, appliedBy string, dryRun bool, log zerolog.Logger) (int, error) {
	if err := r.ensureTable(ctx); err != nil {
		return 0, fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	migrations, err := readMigrations(dir, replacements, log)
	if err != nil {
		return 0, err
	}
	applied, err := r.appliedVersions(ctx)
	if err != nil {
		return 0, fmt.Errorf("get applied migrations: %w", err)
	}
	log.Info().Int("files", len(migrations)).Int("applied", len(applied)).Msg("Loaded migrations")

	count := 0
	for _, m := range migrations {
		if sum, ok := applied[m.Version]; ok {
			if sum != "" && sum != m.Checksum {
				log.Warn().Str("migration", m.Filename).Msg("Applied migration changed on disk")
			}
			log.Debug().Str("migration", m.Filename).Msg("Already applied")
			continue
		}

		count++
		if dryRun {
			log.Info().Str("migration", m.Filename).Msg("Pending")
			continue
		}

		log.Info().Str("migration", m.Filename).Msg("Applying")
		if err := r.execute(ctx, m); err != nil {
			return count - 1, fmt.Errorf("execute %s: %w", m.Filename, err)
		}
		if err := r.record(ctx, m, appliedBy); err != nil {
			return count - 1, fmt.Errorf("record %s: %w", m.Filename, err)
		}
	}
	return count, nil
}

// Package migrate applies, inspects and authors the goose SQL migrations.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/migrate/migrations"
)

const DefaultDir = "pkg/migrate/migrations"

// Source returns the migration files to run: the compiled-in set when
// embedded is true, otherwise the files under dir.
func Source(dir string, embedded bool) (fs.FS, error) {
	if embedded {
		return migrations.FS, nil
	}
	if dir == "" {
		return nil, errors.New("migrations dir is required")
	}
	return os.DirFS(dir), nil
}

// Runner drives a goose provider bound to one database and one source.
// The database stays owned by the caller.
type Runner struct {
	provider *goose.Provider
}

func NewRunner(db *sql.DB, source fs.FS) (*Runner, error) {
	return newRunner(goose.DialectPostgres, db, source)
}

func newRunner(dialect goose.Dialect, db *sql.DB, source fs.FS) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	provider, err := goose.NewProvider(dialect, db, source)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider}, nil
}

// Up applies every pending migration and returns the versions applied.
func (r *Runner) Up(ctx context.Context) ([]int64, error) {
	results, err := r.provider.Up(ctx)
	if err != nil {
		return versionsOf(results), fmt.Errorf("goose up: %w", err)
	}
	return versionsOf(results), nil
}

// Down rolls back the most recent migration.
func (r *Runner) Down(ctx context.Context) (int64, error) {
	result, err := r.provider.Down(ctx)
	if err != nil {
		return 0, fmt.Errorf("goose down: %w", err)
	}
	return result.Source.Version, nil
}

// To moves the schema up or down until target is the current version.
func (r *Runner) To(ctx context.Context, target int64) ([]int64, error) {
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		return nil, nil
	case current < target:
		results, err = r.provider.UpTo(ctx, target)
	default:
		results, err = r.provider.DownTo(ctx, target)
	}
	if err != nil {
		return versionsOf(results), fmt.Errorf("goose to %d: %w", target, err)
	}
	return versionsOf(results), nil
}

func (r *Runner) Version(ctx context.Context) (int64, error) {
	return r.provider.GetDBVersion(ctx)
}

// Status writes one line per known migration to out.
func (r *Runner) Status(ctx context.Context, out io.Writer) error {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return fmt.Errorf("goose status: %w", err)
	}
	for _, s := range statuses {
		applied := "-"
		if !s.AppliedAt.IsZero() {
			applied = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(out, "%-8s %-19s %s\n", s.State, applied, s.Source.Path)
	}
	return nil
}

// ParseVersion accepts the YYYYMMDDHHMMSS prefix of a migration file.
func ParseVersion(raw string) (int64, error) {
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || version < 0 {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", raw)
	}
	return version, nil
}

func versionsOf(results []*goose.MigrationResult) []int64 {
	out := make([]int64, 0, len(results))
	for _, res := range results {
		if res != nil && res.Source != nil {
			out = append(out, res.Source.Version)
		}
	}
	return out
}

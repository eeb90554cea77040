package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/storefront-catalog/pkg/logger"
)

const DefaultDir = "pkg/migrate/migrations"

var dialect = goose.DialectPostgres

// UseDriver picks the goose dialect for the configured database driver.
// Services call it at boot so a bad DB_DRIVER fails before any connection.
func UseDriver(driver string) error {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "postgres":
		dialect = goose.DialectPostgres
	case "sqlite":
		dialect = goose.DialectSQLite3
	default:
		return fmt.Errorf("unsupported migration driver %q", driver)
	}
	return nil
}

// Runner applies the SQL files in one directory through a goose provider.
type Runner struct {
	provider *goose.Provider
	logg     *logger.Logger
}

// NewRunner binds db to the migrations in dir. The caller keeps ownership of
// db; the runner never closes it.
func NewRunner(db *sql.DB, dir string, logg *logger.Logger) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("dir is required")
	}
	provider, err := goose.NewProvider(dialect, db, os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("goose provider for %s: %w", dir, err)
	}
	return &Runner{provider: provider, logg: logg}, nil
}

// Up applies every pending migration.
func (r *Runner) Up(ctx context.Context) error {
	results, err := r.provider.Up(ctx)
	r.report(ctx, results...)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration.
func (r *Runner) Down(ctx context.Context) error {
	result, err := r.provider.Down(ctx)
	if result != nil {
		r.report(ctx, result)
	}
	if err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	return nil
}

// Status lists every known migration with its applied state.
func (r *Runner) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	return statuses, nil
}

// To moves the schema up or down until target (YYYYMMDDHHMMSS) is the current
// version. "0" rolls everything back.
func (r *Runner) To(ctx context.Context, target string) error {
	version, err := strconv.ParseInt(strings.TrimSpace(target), 10, 64)
	if err != nil || version < 0 {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", target)
	}
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("current db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case version == current:
		return nil
	case version > current:
		results, err = r.provider.UpTo(ctx, version)
	default:
		results, err = r.provider.DownTo(ctx, version)
	}
	r.report(ctx, results...)
	if err != nil {
		return fmt.Errorf("goose to %d: %w", version, err)
	}
	return nil
}

func (r *Runner) report(ctx context.Context, results ...*goose.MigrationResult) {
	if r.logg == nil {
		return
	}
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		fields := r.logg.WithFields(ctx, map[string]any{
			"version":     res.Source.Version,
			"direction":   res.Direction,
			"duration_ms": res.Duration.Milliseconds(),
		})
		if res.Error != nil {
			r.logg.Error(fields, "migration failed", res.Error)
			continue
		}
		r.logg.Info(fields, "migration applied")
	}
}

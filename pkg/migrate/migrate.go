package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/tablebite-backend/pkg/logger"
)

const (
	DefaultDir = "pkg/migrate/migrations"
	// EmbeddedDir is where the bundled files sit inside Embedded.
	EmbeddedDir = "migrations"
)

//go:embed migrations/*.sql
var Embedded embed.FS

// Source is a directory of goose SQL files.
type Source struct {
	Name string
	fsys fs.FS
}

func Disk(dir string) Source {
	return Source{Name: dir, fsys: os.DirFS(dir)}
}

// Bundled is the set compiled into the binary, so deployed services never
// need the source tree.
func Bundled() Source {
	sub, err := fs.Sub(Embedded, EmbeddedDir)
	if err != nil {
		panic(fmt.Sprintf("embedded migrations: %v", err))
	}
	return Source{Name: "embedded", fsys: sub}
}

func (s Source) Validate() error {
	return ValidateFS(s.fsys, ".")
}

// Status is one migration as the database sees it.
type Status struct {
	Version   int64
	Path      string
	Applied   bool
	AppliedAt time.Time
}

// Runner applies a Source to a Postgres database. The files are Postgres
// SQL; SQLite schemas come from AutoMigrateModels instead.
type Runner struct {
	provider *goose.Provider
	source   Source
	logg     *logger.Logger
}

func NewRunner(db *sql.DB, src Source, logg *logger.Logger) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, src.fsys)
	if err != nil {
		return nil, fmt.Errorf("load migrations from %s: %w", src.Name, err)
	}
	return &Runner{provider: provider, source: src, logg: logg}, nil
}

func (r *Runner) Up(ctx context.Context) error {
	results, err := r.provider.Up(ctx)
	r.report(ctx, results...)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Down rolls back the newest applied migration only.
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

// To moves up or down until version is the newest applied migration.
func (r *Runner) To(ctx context.Context, version string) error {
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil || target < 0 {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", version)
	}
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		return nil
	case current < target:
		results, err = r.provider.UpTo(ctx, target)
	default:
		results, err = r.provider.DownTo(ctx, target)
	}
	r.report(ctx, results...)
	if err != nil {
		return fmt.Errorf("goose to %d: %w", target, err)
	}
	return nil
}

func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	rows, err := r.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	out := make([]Status, 0, len(rows))
	for _, row := range rows {
		out = append(out, Status{
			Version:   row.Source.Version,
			Path:      row.Source.Path,
			Applied:   row.State == goose.StateApplied,
			AppliedAt: row.AppliedAt,
		})
	}
	return out, nil
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
			"source":      r.source.Name,
			"version":     res.Source.Version,
			"direction":   res.Direction,
			"duration_ms": res.Duration.Milliseconds(),
		})
		if res.Error != nil {
			r.logg.Error(fields, "migration.failed", res.Error)
			continue
		}
		r.logg.Info(fields, "migration.applied")
	}
}

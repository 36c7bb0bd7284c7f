package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/tablebite-backend/pkg/config"
	"github.com/angelmondragon/tablebite-backend/pkg/db"
	"github.com/angelmondragon/tablebite-backend/pkg/logger"
	"github.com/angelmondragon/tablebite-backend/pkg/migrate"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	embedded := flag.Bool("embedded", false, "use the migrations compiled into the binary instead of -dir")

	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")

	flag.Parse()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx = logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"cmd":      *cmd,
		"dir":      *dir,
		"embedded": *embedded,
	})

	switch *cmd {
	case "create":
		if *name == "" {
			fail("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			fail("failed to create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return

	case "validate":
		validate := func() error { return migrate.ValidateDir(*dir) }
		if *embedded {
			validate = migrate.ValidateEmbedded
		}
		if err := validate(); err != nil {
			fail("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	// The goose files are Postgres SQL; a SQLite database is built from the models.
	if cfg.DB.Driver == config.DriverSQLite {
		if *cmd != "up" {
			fail("-cmd=%s is not supported on sqlite", *cmd)
		}
		if err := migrate.AutoMigrateModels(ctx, dbClient.DB()); err != nil {
			fail("sqlite automigrate failed: %v", err)
		}
		logg.Info(ctx, "sqlite schema migrated")
		return
	}

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	source := migrate.Disk(*dir)
	if *embedded {
		source = migrate.Bundled()
	}
	runner, err := migrate.NewRunner(sqlDB, source, logg)
	requireResource(ctx, logg, "migrations", err)

	switch *cmd {
	case "up":
		err = runner.Up(ctx)
	case "down":
		err = runner.Down(ctx)
	case "status":
		err = printStatus(ctx, runner)
	case "version":
		if *version == "" {
			fail("missing -version for version command")
		}
		err = runner.To(ctx, *version)
	default:
		fail("unknown -cmd value: %s", *cmd)
	}
	if err != nil {
		fail("%s failed: %v", *cmd, err)
	}
}

func printStatus(ctx context.Context, runner *migrate.Runner) error {
	rows, err := runner.Status(ctx)
	if err != nil {
		return err
	}
	for _, row := range rows {
		applied := "pending"
		if row.Applied {
			applied = row.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Printf("%-14d  %-25s  %s\n", row.Version, applied, row.Path)
	}
	return nil
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

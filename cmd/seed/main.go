package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/tablebite-backend/pkg/config"
	"github.com/angelmondragon/tablebite-backend/pkg/db"
	"github.com/angelmondragon/tablebite-backend/pkg/logger"
	"github.com/angelmondragon/tablebite-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "seed"})
	_ = godotenv.Load()

	staffUser := flag.String("staff-username", "staff", "username of the seeded staff account")
	staffEmail := flag.String("staff-email", "staff@tablebite.local", "email of the seeded staff account")
	skipStaff := flag.Bool("skip-staff", false, "do not create the staff account")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithField(context.Background(), "env", cfg.App.Env)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	if err := migrate.EnsureSchema(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	var staff *staffAccount
	if !*skipStaff {
		password := os.Getenv("TABLEBITE_SEED_STAFF_PASSWORD")
		if password == "" {
			logg.Warn(ctx, "TABLEBITE_SEED_STAFF_PASSWORD not set, skipping staff account")
		} else {
			staff = &staffAccount{Username: *staffUser, Email: *staffEmail, Password: password}
		}
	}

	out, err := seed(ctx, dbClient.DB(), staff, cfg.Password)
	ctx = logg.WithFields(ctx, map[string]any{
		"categories": out.Categories,
		"menu_items": out.MenuItems,
		"news":       out.News,
		"rewards":    out.Rewards,
		"staff":      out.Staff,
	})
	if err != nil {
		logg.Error(ctx, "seed finished with errors", err)
		os.Exit(1)
	}
	logg.Info(ctx, "seed complete")
}

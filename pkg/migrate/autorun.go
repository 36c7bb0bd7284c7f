package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/tablebite-backend/pkg/config"
	"github.com/angelmondragon/tablebite-backend/pkg/db"
	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	"github.com/angelmondragon/tablebite-backend/pkg/logger"
)

// AutoMigrateModels builds the schema from the gorm models. Only SQLite
// databases are created this way.
func AutoMigrateModels(ctx context.Context, conn *gorm.DB) error {
	if err := conn.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("automigrate models: %w", err)
	}
	return nil
}

// EnsureSchema runs at service start. SQLite is always brought up to date.
// Postgres runs the bundled migrations only in dev with AutoMigrate set;
// every other environment migrates through cmd/migrate.
func EnsureSchema(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": cfg.DB.Driver})

	if cfg.DB.Driver == config.DriverSQLite {
		logg.Info(ctx, "schema.automigrate")
		return AutoMigrateModels(ctx, client.DB())
	}
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	pool, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	runner, err := NewRunner(pool, Bundled(), logg)
	if err != nil {
		return err
	}
	logg.Info(ctx, "schema.migrate_up")
	return runner.Up(ctx)
}

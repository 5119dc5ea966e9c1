package migrate

import (
	"context"
	"fmt"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/config"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db/models"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/migrate/migrations"
)

// MaybeRunDev applies the embedded migrations when running in dev with the
// auto-migrate flag on. The goose files target postgres, so SQLite dev
// databases get a gorm AutoMigrate of the models instead.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	if cfg.FeatureFlags.UseSQLite {
		logg.Info(ctx, "auto-migrating sqlite dev database from models")
		if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("sqlite automigrate: %w", err)
		}
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	runner, err := NewRunner(sqlDB, migrations.FS)
	if err != nil {
		return err
	}

	applied, err := runner.Up(ctx)
	if err != nil {
		return err
	}
	logg.Info(logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "applied": len(applied)}), "migrate.dev_autorun")
	return nil
}

package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-catalog/pkg/config"
	"github.com/angelmondragon/storefront-catalog/pkg/db"
	"github.com/angelmondragon/storefront-catalog/pkg/db/models"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
)

// Models lists every table-backed model. SQLite runs build their schema from it
// since the SQL migrations target Postgres.
func Models() []any {
	return []any{
		&models.Item{},
		&models.ItemAttribute{},
		&models.ItemMedia{},
		&models.Order{},
		&models.OrderLine{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	}
}

// MaybeRunDev brings the dev schema up to date at boot when the auto-migrate
// flag is on.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if cfg.FeatureFlags.UseSQLite || strings.EqualFold(cfg.DB.Driver, "sqlite") {
		logg.Info(logg.WithField(ctx, "env", cfg.App.Env), "auto-migrating sqlite schema")
		if err := client.DB().WithContext(ctx).AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("sqlite automigrate: %w", err)
		}
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultDir})
	runner, err := NewRunner(sqlDB, DefaultDir, logg)
	if err != nil {
		return err
	}
	logg.Info(ctx, "applying pending migrations")
	return runner.Up(ctx)
}

// Command migrate creates or updates the database schema.
package main

import (
	"context"
	"log/slog"

	"fintrack/config"
	"fintrack/internal/errors"
	logs "fintrack/internal/infra/log"
	"fintrack/internal/infra/persistence/model"
	"fintrack/internal/infra/persistence/postgres"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

type migrateParams struct {
	fx.In
	fx.Lifecycle
	fx.Shutdowner

	DB     *gorm.DB
	Logger *slog.Logger
}

func main() {
	fx.New(
		fx.Provide(
			config.New,
			logs.New,
			postgres.New,
		),
		fx.Invoke(registerMigration),
		fx.NopLogger,
	).Run()
}

func registerMigration(params migrateParams) {
	params.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := params.DB.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
				return errors.Wrap(err, "failed to migrate schema")
			}

			params.Logger.Info("Schema migrated", slog.Int("models", len(model.All())))

			return params.Shutdown()
		},
	})
}

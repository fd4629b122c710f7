// Command sweeper runs one maintenance pass and exits. It is meant to be
// scheduled externally.
package main

import (
	"context"
	"log/slog"
	"time"

	"fintrack/config"
	"fintrack/internal/domain/lifecycle"
	"fintrack/internal/infra/auth"
	logs "fintrack/internal/infra/log"
	"fintrack/internal/infra/persistence/postgres"
	"fintrack/internal/usecase"
	"fintrack/internal/usecase/impl"

	"go.uber.org/fx"
)

type sweepParams struct {
	fx.In
	fx.Lifecycle
	fx.Shutdowner

	Sessions      usecase.SessionUsecase
	Subscriptions usecase.SubscriptionUsecase
	Logger        *slog.Logger
}

func main() {
	fx.New(
		fx.Provide(
			config.New,
			logs.New,
			postgres.New,
			postgres.NewUserRepository,
			postgres.NewSessionRepository,
			postgres.NewSubscriptionRepository,
			postgres.NewTransactionManager,
			auth.NewJWTService,
			impl.NewSessionService,
			impl.NewSubscriptionService,
		),
		fx.Invoke(registerSweep),
		fx.NopLogger,
	).Run()
}

func registerSweep(params sweepParams) {
	params.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				code := 0
				if err := sweep(context.Background(), params, time.Now()); err != nil {
					params.Logger.Error("Sweep failed", slog.Any("error", err))
					code = 1
				}

				if err := params.Shutdown(fx.ExitCode(code)); err != nil {
					params.Logger.Error("Failed to shutdown gracefully", slog.Any("error", err))
				}
			}()

			return nil
		},
	})
}

func sweep(ctx context.Context, params sweepParams, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 6*lifecycle.DefaultTimeout)
	defer cancel()

	expired, err := params.Subscriptions.ExpireDue(ctx, now)
	if err != nil {
		return err
	}

	purged, err := params.Sessions.CleanupDead(ctx, now)
	if err != nil {
		return err
	}

	params.Logger.Info("Sweep finished", slog.Int("expiredSubscriptions", expired), slog.Int("purgedSessions", purged))

	return nil
}

package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"fintrack/config"
	"fintrack/internal/domain/lifecycle"
	"fintrack/internal/errors"

	pgLib "github.com/slighter12/go-lib/database/postgres"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const (
	dbPoolMonitorInterval = 5 * time.Second
	// Without a store timeout, waits are judged against this floor instead.
	dbPoolWarnDurationFloor = 50 * time.Millisecond
)

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// New opens the primary (and replica) pool described by the postgres section.
func New(params Params) (*gorm.DB, error) {
	if params.Config.Postgres == nil {
		return nil, errors.New("postgres configuration is required")
	}

	db, err := pgLib.New(params.Config.Postgres)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create PostgreSQL client")
	}
	db = db.Session(&gorm.Session{
		// Disable GORM's per-statement implicit transaction.
		// We keep explicit transactions via txManager.Execute for multi-step atomic operations.
		SkipDefaultTransaction: true,
		Logger:                 newGormSlogLogger(params.Logger, params.Config),
	})

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get PostgreSQL sql.DB")
	}

	monitorCtx, cancelMonitor := context.WithCancel(context.Background())

	// Add lifecycle management
	params.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, lifecycle.DefaultTimeout)
			defer cancel()

			if err := sqlDB.PingContext(ctx); err != nil {
				return errors.Wrap(err, "failed to ping PostgreSQL")
			}

			monitor := newPoolMonitor(params.Logger, storeTimeout(params.Config), sqlDB.Stats())
			go monitor.run(monitorCtx, sqlDB, dbPoolMonitorInterval)

			return nil
		},
		OnStop: func(_ context.Context) error {
			cancelMonitor()

			return sqlDB.Close()
		},
	})

	return db, nil
}

func storeTimeout(cfg *config.Config) time.Duration {
	if cfg.Upstream == nil {
		return 0
	}

	return cfg.Upstream.StoreTimeout
}

// poolMonitor reports connection-pool waits against the store timeout. Time
// spent waiting for a connection is taken from the same deadline the
// statement runs under, so a wait near the budget precedes timeouts.
type poolMonitor struct {
	logger       *slog.Logger
	storeTimeout time.Duration
	prev         sql.DBStats
}

func newPoolMonitor(logger *slog.Logger, storeTimeout time.Duration, initial sql.DBStats) *poolMonitor {
	return &poolMonitor{logger: logger, storeTimeout: storeTimeout, prev: initial}
}

func (m *poolMonitor) run(ctx context.Context, sqlDB *sql.DB, interval time.Duration) {
	if m.logger == nil || sqlDB == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.observe(ctx, sqlDB.Stats())
		}
	}
}

// observe logs the waits since the previous sample. The level rises with the
// share of the store timeout an average wait consumes: Warn from 10%, Error from 50%.
func (m *poolMonitor) observe(ctx context.Context, cur sql.DBStats) {
	waitDelta := cur.WaitCount - m.prev.WaitCount
	waitDurationDelta := cur.WaitDuration - m.prev.WaitDuration
	m.prev = cur

	if waitDelta <= 0 {
		return
	}

	avgWait := waitDurationDelta / time.Duration(waitDelta)
	attrs := []slog.Attr{
		slog.Int64("wait_count_delta", waitDelta),
		slog.Duration("avg_wait", avgWait),
		slog.Int("max_open_conns", cur.MaxOpenConnections),
		slog.Int("in_use_conns", cur.InUse),
		slog.Int("idle_conns", cur.Idle),
	}

	level := slog.LevelDebug
	if m.storeTimeout > 0 {
		share := float64(avgWait) / float64(m.storeTimeout)
		attrs = append(attrs,
			slog.Duration("store_timeout", m.storeTimeout),
			slog.Int("budget_used_pct", int(share*100)),
		)
		switch {
		case share >= 0.5:
			level = slog.LevelError
		case share >= 0.1:
			level = slog.LevelWarn
		}
	} else if avgWait >= dbPoolWarnDurationFloor {
		level = slog.LevelWarn
	}

	m.logger.LogAttrs(ctx, level, "Postgres pool wait", attrs...)
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/callmylawyer/core/logger"
)

const connectTimeout = 5 * time.Second

// Connect opens and pings a sqlx pool sized by cfg.MaxConnections.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	where := []slog.Attr{
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
	}
	fail := func(step string, err error) error {
		logger.Error(ctx, "db", step, append(where,
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)...)
		return fmt.Errorf("db %s: %w", step, err)
	}

	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.KeywordDSN())
	if err != nil {
		return nil, fail("connect", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fail("ping", err)
	}
	if n := cfg.MaxConnections; n > 0 {
		db.SetMaxOpenConns(n)
		db.SetMaxIdleConns(n)
	}
	logger.Info(ctx, "db", "connect", append(where,
		slog.String("status", "ok"),
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Duration("duration", logger.Took(start)),
	)...)
	return db, nil
}

// WaitForPostgres pings dsn every interval until the server answers or ctx
// ends. It returns the last ping error on timeout.
func WaitForPostgres(ctx context.Context, dsn string, interval time.Duration) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	t := time.NewTicker(interval)
	defer t.Stop()
	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		logger.Debug(ctx, "db", "wait",
			slog.String("status", "retry"),
			slog.Int("attempts", attempt),
			slog.Duration("backoff", interval),
			slog.String("err", err.Error()),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("database unavailable after %d attempts: %w", attempt, err)
		case <-t.C:
		}
	}
}

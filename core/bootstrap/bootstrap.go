// Package bootstrap brings up the shared infrastructure a bot needs before
// its own components are assembled.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/callmylawyer/core/config"
	coredatabase "github.com/m3rciful/callmylawyer/core/database"
	"github.com/m3rciful/callmylawyer/core/logger"
)

// Options describe one bootstrap. A nil Database skips the connection and the
// migrations. The function fields default to the core implementations.
type Options struct {
	Config   *coreconfig.Config
	Database *coredatabase.Config
	// Migrations is the script source; nil reads Database.MigrationsDir.
	Migrations fs.FS

	LoggerInit func(*coreconfig.Config) error
	Connect    func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(context.Context, coredatabase.Config, fs.FS) error
}

// Result holds what Run brought up. DB is nil without a database.
type Result struct {
	DB *sqlx.DB
}

// Close releases the pool.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Run starts the logger, then connects and migrates when a database is
// configured. The pool is closed again if migrating fails.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config")
	}
	initLogger := opts.LoggerInit
	if initLogger == nil {
		initLogger = logger.InitLogger
	}
	if err := initLogger(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	if opts.Database == nil {
		logger.Debug(ctx, "db", "connect", slog.String("status", "skip"))
		return &Result{}, nil
	}
	connect, migrate := opts.Connect, opts.Migrate
	if connect == nil {
		connect = coredatabase.Connect
	}
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}

	db, err := connect(ctx, *opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database: %w", err)
	}
	if err := migrate(ctx, *opts.Database, opts.Migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations: %w", err)
	}
	return &Result{DB: db}, nil
}

package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/m3rciful/callmylawyer/core/logger"
)

const waitForDB = 30 * time.Second

// RunMigrations applies every pending up script from src. A nil src reads
// cfg.MigrationsDir from disk instead.
func RunMigrations(ctx context.Context, cfg Config, src fs.FS) error {
	waitCtx, cancel := context.WithTimeout(ctx, waitForDB)
	defer cancel()
	if err := WaitForPostgres(waitCtx, cfg.URLDSN(), 2*time.Second); err != nil {
		logger.Error(ctx, "db.migrate", "wait",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("database not ready: %w", err)
	}

	origin := "embedded"
	if src == nil {
		dir, err := resolveMigrationsDir(cfg.MigrationsDir)
		if err != nil {
			return fmt.Errorf("migrations dir: %w", err)
		}
		src, origin = os.DirFS(dir), dir
	}
	scripts := upScripts(src)
	preview, more := logger.SummarizeStrings(scripts, 6)
	logger.Debug(ctx, "db.migrate", "resolve",
		slog.String("status", "ok"),
		slog.String("path", origin),
		slog.Int("count", len(scripts)),
		slog.String("files_preview", preview),
		slog.Bool("files_truncated", more),
	)

	driver, err := iofs.New(src, ".")
	if err != nil {
		return fmt.Errorf("migrations source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", driver, cfg.URLDSN())
	if err != nil {
		logger.Error(ctx, "db.migrate", "init",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("migrations init: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn(ctx, "db.migrate", "close",
				slog.String("status", "fail"),
				slog.String("err", errors.Join(srcErr, dbErr).Error()),
			)
		}
	}()

	from, _, _ := m.Version()
	start := time.Now()
	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		err = nil
	case err != nil:
		logger.Error(ctx, "db.migrate", "apply",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
			slog.Duration("duration", logger.Took(start)),
		)
		return fmt.Errorf("migrations apply: %w", err)
	}
	to, _, _ := m.Version()

	applied := between(scripts, uint64(from), uint64(to))
	status := "ok"
	if len(applied) == 0 {
		status = "skip"
	}
	names, more := logger.SummarizeStrings(applied, 6)
	logger.Info(ctx, "db.migrate", "summary",
		slog.String("status", status),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("count", len(applied)),
		slog.String("files_preview", names),
		slog.Bool("files_truncated", more),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

func resolveMigrationsDir(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "migrations"
	}
	return filepath.Abs(dir)
}

// upScripts lists the up scripts at the root of src in version order.
func upScripts(src fs.FS) []string {
	names, err := fs.Glob(src, "*.up.sql")
	if err != nil {
		return nil
	}
	sort.Strings(names)
	return names
}

func scriptVersion(name string) uint64 {
	head, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(head, 10, 64)
	return v
}

// between returns the scripts with from < version <= to.
func between(scripts []string, from, to uint64) []string {
	var out []string
	for _, s := range scripts {
		if v := scriptVersion(s); v > from && v <= to {
			out = append(out, s)
		}
	}
	return out
}

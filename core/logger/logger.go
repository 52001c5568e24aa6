// Package logger is the structured slog setup shared by the bot, the store
// and the payment webhook. Records are flat key/value lines (JSON or
// logfmt-style) with a stable leading key order, request correlation taken
// from the context, and secrets or buyer contact data masked.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/m3rciful/callmylawyer/core/buildinfo"
	coreconfig "github.com/m3rciful/callmylawyer/core/config"
)

var (
	initOnce sync.Once
	stopOnce sync.Once

	base    atomic.Pointer[slog.Logger]
	level   slog.LevelVar
	sink    *asyncWriter
	closers []io.Closer

	debugSampler = newRatioSampler(1, 50)
	traceAll     atomic.Bool
)

// settings is the resolved logging section of the config.
type settings struct {
	format  logFormat
	level   slog.Level
	order   []string
	sample  [2]int
	profile string
	file    string
}

func settingsFrom(cfg *coreconfig.Config) settings {
	s := settings{
		format:  formatJSON,
		level:   slog.LevelInfo,
		order:   append([]string(nil), defaultKeyOrder...),
		sample:  [2]int{1, 50},
		profile: "prod",
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging

	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}

	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}

	if raw := strings.TrimSpace(lc.KeysOrder); raw != "" && raw != "default" {
		var order []string
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				order = append(order, k)
			}
		}
		if len(order) > 0 {
			s.order = order
		}
	}

	if spec := strings.TrimSpace(lc.DebugSample); spec != "" {
		num, den := parseRatioSpec(spec)
		s.sample = [2]int{num, den}
	}

	if dir, file := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile); dir != "" && file != "" {
		s.file = filepath.Join(dir, file)
	}
	return s
}

// InitLogger installs the global logger. Only the first call has an effect.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		s := settingsFrom(cfg)
		outputs := []io.Writer{os.Stdout}
		if s.file != "" {
			f, openErr := openLogFile(s.file)
			if openErr != nil {
				err = openErr
				return
			}
			outputs = append(outputs, f)
			closers = append(closers, f)
		}

		level.Set(s.level)
		debugSampler.Set(s.sample[0], s.sample[1])
		traceAll.Store(isTruthy(os.Getenv("TRACE")) || isTruthy(os.Getenv("LOG_TRACE")))

		sink = newAsyncWriter(outputs, 64*1024)
		l := slog.New(newStructuredHandler(handlerConfig{
			level:    &level,
			writer:   sink,
			format:   s.format,
			keyOrder: s.order,
		}))
		base.Store(l)
		slog.SetDefault(l)

		version, commit, built := buildinfo.Info()
		Info(context.Background(), "app", "startup",
			slog.String("status", "ok"),
			slog.String("go_version", runtime.Version()),
			slog.String("build_version", version),
			slog.String("build_commit", commit),
			slog.String("build_time", built),
			slog.String("cfg_profile", s.profile),
		)
	})
	return err
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logger: create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open log file: %w", err)
	}
	return f, nil
}

// Shutdown flushes queued records and closes file sinks. Later log calls are
// dropped.
func Shutdown() error {
	var err error
	stopOnce.Do(func() {
		base.Store(nil)
		var errs []error
		if sink != nil {
			errs = append(errs, sink.Close())
		}
		for _, c := range closers {
			errs = append(errs, c.Close())
		}
		err = errors.Join(errs...)
	})
	return err
}

// Event logs one record for component. Before InitLogger, and after
// Shutdown, records are discarded.
func Event(ctx context.Context, component string, lvl slog.Level, event string, attrs ...slog.Attr) {
	l := base.Load()
	if l == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.Enabled(ctx, lvl) {
		return
	}
	head := make([]slog.Attr, 0, len(attrs)+2)
	if c := strings.TrimSpace(component); c != "" {
		head = append(head, slog.String("component", c))
	}
	if event != "" {
		head = append(head, slog.String("event", event))
	}
	l.LogAttrs(ctx, lvl, "", append(head, attrs...)...)
}

// Debug logs at debug level.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

// Info logs at info level.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

// Warn logs at warn level.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

// Error logs at error level.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug record should be
// emitted. TRACE=1 in the environment lets all of them through.
func ShouldSampleDebug() bool {
	return traceAll.Load() || debugSampler.Allow()
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

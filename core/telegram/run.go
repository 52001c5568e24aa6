package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/callmylawyer/core/config"
	"github.com/m3rciful/callmylawyer/core/logger"
	tghelpers "github.com/m3rciful/callmylawyer/core/telegram/helpers"
	"github.com/m3rciful/callmylawyer/core/telegram/netutil"
	tgsender "github.com/m3rciful/callmylawyer/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

const stopGrace = 10 * time.Second

// Middleware is a named global middleware, installed in slice order.
type Middleware struct {
	Name string
	Use  tele.MiddlewareFunc
}

// Route binds a handler to a telebot endpoint (a command string or one of
// the tele.On* constants).
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions configure RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	Client            ClientOptions
	DispatcherOptions tgsender.Options
	// Dispatcher replaces the one built from DispatcherOptions.
	Dispatcher *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route

	// KeepWebhook leaves a registered webhook in place in longpoll mode.
	KeepWebhook bool
	// PrivateDispatcher keeps the dispatcher away from the helpers package.
	PrivateDispatcher bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime is what the lifecycle hooks get to see.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// RunTelegram builds the bot and serves updates until ctx ends. The poller
// gets one restart; a second failure stops the bot and is returned.
func RunTelegram(parent context.Context, opts RunOptions) error {
	if opts.Config == nil {
		return errors.New("telegram: nil config")
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	cfg := opts.Config
	inner := BuildPoller(PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook: WebhookOptions{
			Listen: cfg.Webhook.Listen,
			Port:   cfg.Webhook.Port,
			URL:    cfg.Webhook.URL,
		},
	})
	poller := newRestartPoller(inner, time.Duration(cfg.Telegram.RestartDelaySeconds)*time.Second, func(err error) {
		cancel(fmt.Errorf("telegram: poller stopped after restart: %w", err))
	})

	start := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Telegram.Token,
		Poller:  poller,
		Client:  BuildHTTPClient(opts.Client),
		OnError: reportError(ctx, poller),
	})
	if err != nil {
		return fmt.Errorf("telegram: bot init: %s", netutil.Redact(err))
	}
	announceMode(ctx, inner, logger.Took(start))
	if _, polling := inner.(*tele.LongPoller); polling && !opts.KeepWebhook {
		dropWebhook(ctx, bot)
	}

	rt := Runtime{Bot: bot, Dispatcher: opts.Dispatcher, Registry: opts.Registry}
	if rt.Registry == nil {
		rt.Registry = NewRegistry()
	}
	if rt.Dispatcher == nil {
		rt.Dispatcher = tgsender.NewDispatcher(opts.DispatcherOptions)
	}
	if !opts.PrivateDispatcher {
		tghelpers.SetDispatcher(rt.Dispatcher)
	}
	release := func() {
		rt.Dispatcher.Close()
		if !opts.PrivateDispatcher {
			tghelpers.SetDispatcher(nil)
		}
	}

	install(bot, opts.Middlewares, opts.Routes)
	rt.Registry.PublishCommands(ctx, bot)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			release()
			return err
		}
	}

	serve(ctx, bot)

	var stopErr error
	if opts.OnStop != nil {
		stopCtx, stop := context.WithTimeout(context.WithoutCancel(parent), stopGrace)
		stopErr = opts.OnStop(stopCtx, rt)
		stop()
	}
	release()

	if stopErr != nil {
		return stopErr
	}
	if cause := context.Cause(ctx); parent.Err() == nil && cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}

// reportError feeds poller errors to the restart policy. Handler errors are
// only logged.
func reportError(ctx context.Context, poller *restartPoller) func(error, tele.Context) {
	return func(err error, c tele.Context) {
		if c != nil {
			logger.Error(tghelpers.BuildContext(c), "tg", "handler.error",
				slog.String("status", "fail"),
				slog.String("err", netutil.Redact(err)),
				slog.String("err_code", netutil.Classify(err)),
			)
			return
		}
		logger.Warn(ctx, "tg", "poller.error",
			slog.String("status", "fail"),
			slog.String("err", netutil.Redact(err)),
			slog.String("err_code", netutil.Classify(err)),
		)
		poller.Report(err, time.Now())
	}
}

func announceMode(ctx context.Context, p tele.Poller, took time.Duration) {
	attrs := []slog.Attr{slog.String("status", "ok")}
	switch p := p.(type) {
	case *tele.Webhook:
		attrs = append(attrs,
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
		)
	case *tele.LongPoller:
		attrs = append(attrs,
			slog.String("mode", coreconfig.RunModeLongpoll),
			slog.Int("timeout_seconds", int(p.Timeout/time.Second)),
		)
	}
	logger.Info(ctx, "tg", "mode", append(attrs, slog.Duration("duration", took))...)
}

// dropWebhook clears a webhook left over from an earlier deployment; Telegram
// refuses getUpdates while one is set.
func dropWebhook(ctx context.Context, bot *tele.Bot) {
	if err := bot.RemoveWebhook(); err != nil {
		logger.Warn(ctx, "tg", "delete_webhook",
			slog.String("status", "fail"),
			slog.String("err", netutil.Redact(err)),
		)
		return
	}
	logger.Info(ctx, "tg", "delete_webhook", slog.String("status", "ok"))
}

func install(bot *tele.Bot, mws []Middleware, routes []Route) {
	for _, mw := range mws {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, r := range routes {
		if r.Endpoint != nil && r.Handler != nil {
			bot.Handle(r.Endpoint, r.Handler)
		}
	}
}

// serve blocks until ctx ends or the bot stops on its own.
func serve(ctx context.Context, bot *tele.Bot) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()
	select {
	case <-ctx.Done():
		bot.Stop()
		<-done
	case <-done:
	}
}

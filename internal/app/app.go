package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/callmylawyer/core/bootstrap"
	coreconfig "github.com/m3rciful/callmylawyer/core/config"
	"github.com/m3rciful/callmylawyer/core/logger"
	tg "github.com/m3rciful/callmylawyer/core/telegram"
	"github.com/m3rciful/callmylawyer/core/telegram/router"
	"github.com/m3rciful/callmylawyer/core/telegram/state"
	"github.com/m3rciful/callmylawyer/internal/bot"
	"github.com/m3rciful/callmylawyer/internal/catalog"
	"github.com/m3rciful/callmylawyer/internal/checkout"
	"github.com/m3rciful/callmylawyer/internal/delivery"
	"github.com/m3rciful/callmylawyer/internal/metrics"
	"github.com/m3rciful/callmylawyer/internal/orders"
	"github.com/m3rciful/callmylawyer/internal/payment"
	"github.com/m3rciful/callmylawyer/internal/webhook"
	"github.com/m3rciful/callmylawyer/migrations"
)

// App owns every long-lived component of the bot.
type App struct {
	cfg   *Config
	infra *bootstrap.Result

	Ledger   *orders.Store
	Machine  *checkout.Machine
	Payments *payment.Reconciler
	Notifier *delivery.Telegram
	Handlers *bot.Handlers
	Registry *tg.Registry
	Webhook  *webhook.Server
	Metrics  *metrics.Metrics
}

// Options override infrastructure steps, mainly for tests.
type Options struct {
	Bootstrap func(context.Context, bootstrap.Options) (*bootstrap.Result, error)
}

// Bootstrap opens the ledger and wires the components. Failing to open the
// ledger is fatal; nothing else here talks to the network.
func Bootstrap(ctx context.Context, cfg *Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	run := opts.Bootstrap
	if run == nil {
		run = bootstrap.Run
	}
	bopts := bootstrap.Options{Config: &cfg.Config}
	if cfg.Storage.Driver == StoragePostgres {
		bopts.Database = &cfg.Database
		bopts.Migrations = migrations.FS
	}
	infra, err := run(ctx, bopts)
	if err != nil {
		return nil, err
	}

	a, err := assemble(ctx, cfg, infra)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	return a, nil
}

func assemble(ctx context.Context, cfg *Config, infra *bootstrap.Result) (*App, error) {
	var backend orders.Backend
	switch {
	case cfg.Storage.Driver == StoragePostgres && infra.DB != nil:
		backend = orders.NewPostgresBackend(infra.DB)
	case cfg.Storage.Driver == StoragePostgres:
		return nil, errors.New("app: postgres storage without a database connection")
	default:
		backend = orders.NewFileBackend(cfg.Storage.Path)
	}
	ledger, err := orders.Open(ctx, backend, orders.Options{Retain: cfg.Storage.Retain})
	if err != nil {
		logger.Error(ctx, "orders", "open",
			slog.String("status", "fail"),
			slog.String("db", cfg.Storage.Driver),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("app: open order store: %w", err)
	}
	logger.Info(ctx, "orders", "open",
		slog.String("status", "ok"),
		slog.String("db", cfg.Storage.Driver),
		slog.Int("count", ledger.Len()),
	)

	services, err := catalog.New(cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	m := metrics.New()
	notifier := delivery.NewTelegram(delivery.Options{AdminID: cfg.Telegram.AdminID})

	machine, err := checkout.New(checkout.Deps{
		Catalog: services,
		Store:   ledger,
		Links: payment.Gateway{
			MerchantID: cfg.Payment.MerchantLogin,
			Secret1:    cfg.Payment.Password1,
			BaseURL:    cfg.Payment.BaseURL,
			Test:       cfg.Payment.Test,
		},
		Notifier: notifier,
		Metrics:  m,
	})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	rec := payment.NewReconciler(ledger, notifier, m, cfg.Payment.Password2)

	handlers, err := bot.New(bot.Deps{
		Checkout: machine,
		Catalog:  services,
		Orders:   ledger,
		Payments: rec,
	}, bot.Options{
		AdminID:      cfg.Telegram.AdminID,
		WelcomePhoto: cfg.Bot.WelcomePhoto,
		PolicyURL:    cfg.Bot.PolicyURL,
	})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	reg := tg.NewRegistry()
	if err := handlers.Register(reg, machine.Sessions()); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	sessions := machine.Sessions()
	m.Gauge("orders_stored", "Orders currently kept in the ledger.", func() float64 {
		return float64(ledger.Len())
	})
	m.Gauge("sessions_active", "Users with a conversation in progress.", func() float64 {
		return float64(sessions.Len())
	})

	hook := webhook.New(webhook.Options{
		Listen:     cfg.Payment.Listen,
		ResultPath: cfg.Payment.ResultPath,
		Metrics:    m,
	}, rec)

	return &App{
		cfg:      cfg,
		infra:    infra,
		Ledger:   ledger,
		Machine:  machine,
		Payments: rec,
		Notifier: notifier,
		Handlers: handlers,
		Registry: reg,
		Webhook:  hook,
		Metrics:  m,
	}, nil
}

// CoreConfig returns the transport configuration.
func (a *App) CoreConfig() *coreconfig.Config { return &a.cfg.Config }

// TelegramRunOptions routes updates to the handlers and ties the webhook
// server and notifier to the bot lifecycle.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	h := a.Handlers
	adminID := a.cfg.Telegram.AdminID
	sessions := a.Machine.Sessions()

	routes := router.CommandRoutes(a.Registry, router.CommandRouteOptions{
		AdminID:       adminID,
		OnAdminReject: h.AccessDenied,
	})
	routes = append(routes, router.CallbackRoute(a.Registry, router.CallbackOptions{
		NotFound: h.UnknownCallback(),
	}))
	routes = append(routes, router.TextRoutes(sessions, a.Registry, router.TextOptions{
		UnknownText:     h.UnknownText(),
		UnknownDocument: h.UnknownDocument(),
		AdminID:         adminID,
		OnAdminReject:   h.AccessDenied,
	})...)

	mws := tg.DefaultMiddlewares(&a.cfg.Config, h.RateLimited, a.Metrics)
	mws = append(mws, tg.Middleware{Name: "state", Use: state.WithState(sessions)})

	return tg.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    a.Registry,
		Middlewares: mws,
		Routes:      routes,
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			if rt.Dispatcher != nil {
				a.Notifier.Bind(rt.Bot, rt.Dispatcher)
			} else {
				a.Notifier.Bind(rt.Bot, nil)
			}
			return a.Webhook.Start(ctx)
		},
		OnStop: func(ctx context.Context, _ tg.Runtime) error {
			a.Notifier.Bind(nil, nil)
			return a.Close(ctx)
		},
	}, nil
}

// Close stops the webhook server and releases the database.
func (a *App) Close(ctx context.Context) error {
	return errors.Join(a.Webhook.Shutdown(ctx), a.infra.Close())
}

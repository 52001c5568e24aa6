package router

import (
	"context"
	"log/slog"

	"github.com/m3rciful/callmylawyer/core/logger"
	tg "github.com/m3rciful/callmylawyer/core/telegram"
	"github.com/m3rciful/callmylawyer/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures the admin gate of admin-only commands.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

func (o CommandRouteOptions) gate(cmd tg.Command) tele.HandlerFunc {
	if !cmd.AdminOnly {
		return cmd.Handler
	}
	return middleware.AdminOnly(o.AdminID, o.OnAdminReject)(cmd.Handler)
}

// CommandRoutes returns one route per registered slash command.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for name, cmd := range cmds {
		h := opts.gate(cmd)
		label := handlerName(name)
		routes = append(routes, tg.Route{
			Endpoint: name,
			Handler:  guarded(func(c tele.Context) error { return serve(c, label, h) }),
		})
	}
	logger.Info(context.Background(), "tg.wire", "routes",
		slog.String("status", "ok"),
		slog.Int("commands", len(cmds)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}

package router

import (
	"log/slog"

	tg "github.com/m3rciful/callmylawyer/core/telegram"
	"github.com/m3rciful/callmylawyer/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions sets the fallback used when the registry has none.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute dispatches every inline button press by its unique key.
// The press is acknowledged before the handler runs.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	h := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		key, _ := callbacks.ParseCallbackData(c.Callback())
		_ = c.Respond()

		name := "callback." + handlerName(key)
		if fn, ok := reg.GetCallback(key); ok {
			return serve(c, name, fn, slog.String("cb_key", key))
		}
		fallback := reg.UnknownCallback()
		if fallback == nil {
			fallback = opts.NotFound
		}
		return serve(c, name, fallback,
			slog.String("cb_key", key),
			slog.String("outcome", "not_found"),
		)
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: guarded(h)}
}

// Package router turns a Registry and a conversation manager into telebot
// routes, logging one handler.handled record per update.
package router

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/callmylawyer/core/logger"
	tghelpers "github.com/m3rciful/callmylawyer/core/telegram/helpers"
	"github.com/m3rciful/callmylawyer/core/telegram/middleware"
	"github.com/m3rciful/callmylawyer/core/telegram/netutil"
	"github.com/m3rciful/callmylawyer/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// Fallbacks answers updates that no command, callback or conversation step
// claimed.
type Fallbacks interface {
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}

// serve runs h under name and logs the result. A nil h is logged as skipped.
func serve(c tele.Context, name string, h tele.HandlerFunc, extra ...slog.Attr) error {
	start := time.Now()
	ctx := tghelpers.WithHandler(c, name)
	var err error
	status := "skip"
	if h != nil {
		err = h(c)
		status = "ok"
		if err != nil {
			status = "fail"
		}
	}

	msgs, kb := middleware.Replies(c)
	attrs := []slog.Attr{
		slog.String("status", status),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", logger.Took(start)),
	}
	if st, ok := state.FromContext(c); ok {
		attrs = append(attrs, slog.String("state", string(st)))
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(netutil.Redact(err), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.Info(ctx, "tg", "handler.handled", append(attrs, extra...)...)
	return err
}

// errorCode prefers a code the error reports about itself.
func errorCode(err error) string {
	var c interface{ Code() string }
	if errors.As(err, &c) {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return code
		}
	}
	return netutil.Classify(err)
}

func handlerName(s string) string {
	s = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "/"))
	if s == "" {
		return "unknown"
	}
	return strings.ReplaceAll(s, " ", "_")
}

func guarded(h tele.HandlerFunc) tele.HandlerFunc {
	return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
}

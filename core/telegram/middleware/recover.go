package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/callmylawyer/core/logger"
	tghelpers "github.com/m3rciful/callmylawyer/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// PanicError is returned in place of a handler that panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("handler panic: %v", e.Value) }

// Code tags the error in handler summaries.
func (e *PanicError) Code() string { return "panic" }

// RecoverMiddleware turns a handler panic into a *PanicError so one bad
// update cannot take the poller down.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			perr := &PanicError{Value: r, Stack: debug.Stack()}
			logger.Error(tghelpers.BuildContext(c), "tg", "panic",
				slog.String("status", "fail"),
				slog.String("err", perr.Error()),
				slog.String("err_code", perr.Code()),
				slog.String("stack", string(perr.Stack)),
			)
			err = perr
		}()
		return next(c)
	}
}

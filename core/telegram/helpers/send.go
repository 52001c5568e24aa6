package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/callmylawyer/core/logger"
	"github.com/m3rciful/callmylawyer/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var outbox atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes the Send helpers through d. Nil sends inline.
func SetDispatcher(d *sender.Dispatcher) {
	outbox.Store(d)
}

// enqueue hands send to the dispatcher. When there is none, or it refuses
// the job, send runs on the caller's goroutine.
func enqueue(c tele.Context, action, endpoint string, send func() error) error {
	d := outbox.Load()
	if d == nil {
		return send()
	}
	ctx := BuildContext(c)
	err := d.Enqueue(ctx, action, endpoint, send)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sender.ErrQueueFull), errors.Is(err, sender.ErrQueueClosed):
		logger.Warn(ctx, "tg.sender", "queue.bypass",
			slog.String("status", "retry"),
			slog.String("operation", action),
			slog.String("err", err.Error()),
		)
		return send()
	}
	return err
}

func optional[T any](v []T) T {
	var zero T
	if len(v) == 0 {
		return zero
	}
	return v[0]
}

func markdown(rm *tele.ReplyMarkup) *tele.SendOptions {
	return &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: rm}
}

// SendText sends text with the given options, or none.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	o := optional(opts)
	return enqueue(c, "send.text", "sendMessage", func() error {
		if o == nil {
			return c.Send(text)
		}
		return c.Send(text, o)
	})
}

// SendMD sends Markdown text with an optional keyboard.
func SendMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return SendText(c, text, markdown(optional(markup)))
}

// SendPhotoMD sends a photo whose caption is Markdown.
func SendPhotoMD(c tele.Context, photo *tele.Photo, markup ...*tele.ReplyMarkup) error {
	o := markdown(optional(markup))
	return enqueue(c, "send.photo", "sendPhoto", func() error {
		return c.Send(photo, o)
	})
}

// EditOrSendMD replaces the message the pressed button belongs to, or sends
// a new one. It runs inline so the edit targets the current callback.
func EditOrSendMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return c.EditOrSend(text, markdown(optional(markup)))
}

// Package delivery hands purchased assets to buyers and keeps the admin
// informed, using the running Telegram bot.
package delivery

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/callmylawyer/core/logger"
	"github.com/m3rciful/callmylawyer/core/telegram/keyboard"
	"github.com/m3rciful/callmylawyer/core/telegram/sender"
	"github.com/m3rciful/callmylawyer/internal/orders"

	tele "gopkg.in/telebot.v4"
)

// ErrNotBound is returned when a message is sent before the bot started.
var ErrNotBound = errors.New("delivery: telegram bot not bound")

// Sender is satisfied by *tele.Bot.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Queue is satisfied by *sender.Dispatcher.
type Queue interface {
	Enqueue(ctx context.Context, action, endpoint string, run func() error) error
}

// Options configures the notifier.
type Options struct {
	// AdminID receives order and payment notices; 0 disables them.
	AdminID int64
	// BackUnique is the callback unique of the "other services" button.
	BackUnique string
}

type binding struct {
	sender Sender
	queue  Queue
}

// Telegram implements the checkout and payment notifiers.
type Telegram struct {
	opts  Options
	bound atomic.Pointer[binding]
}

// NewTelegram returns an unbound notifier; call Bind once the bot is running.
func NewTelegram(opts Options) *Telegram {
	if opts.BackUnique == "" {
		opts.BackUnique = "back_services"
	}
	return &Telegram{opts: opts}
}

// Bind attaches the bot and an optional outbound queue.
func (t *Telegram) Bind(s Sender, q Queue) {
	if s == nil {
		t.bound.Store(nil)
		return
	}
	t.bound.Store(&binding{sender: s, queue: q})
}

// Deliver sends the asset link of a settled order to its buyer.
func (t *Telegram) Deliver(ctx context.Context, o orders.Order) error {
	if !o.Settled() {
		return errors.New("delivery: order is not settled")
	}
	markup := keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: assetButton(o), URL: o.AssetRef},
		{Text: backButton, Unique: t.opts.BackUnique},
	})
	err := t.send(ctx, "deliver", o.UserID, deliveryText(o), markup)
	logResult(ctx, "deliver", o, err)
	return err
}

// OrderPlaced tells the admin about a new order.
func (t *Telegram) OrderPlaced(ctx context.Context, o orders.Order, paymentURL string) error {
	if t.opts.AdminID == 0 {
		return nil
	}
	err := t.send(ctx, "admin.order", t.opts.AdminID, orderPlacedText(o, paymentURL), nil)
	logResult(ctx, "admin.order", o, err)
	return err
}

// PaymentReceived tells the admin a pending order was paid.
func (t *Telegram) PaymentReceived(ctx context.Context, o orders.Order) error {
	if t.opts.AdminID == 0 {
		return nil
	}
	err := t.send(ctx, "admin.payment", t.opts.AdminID, paymentReceivedText(o), nil)
	logResult(ctx, "admin.payment", o, err)
	return err
}

func (t *Telegram) send(ctx context.Context, action string, to int64, text string, markup *tele.ReplyMarkup) error {
	b := t.bound.Load()
	if b == nil {
		return ErrNotBound
	}
	opts := &tele.SendOptions{DisableWebPagePreview: true, ReplyMarkup: markup}
	run := func() error {
		_, err := b.sender.Send(tele.ChatID(to), text, opts)
		return err
	}
	if b.queue == nil {
		return run()
	}

	// Jobs outlive webhook requests; keep the log metadata but not the deadline.
	qctx := context.WithoutCancel(ctx)
	if err := b.queue.Enqueue(qctx, "delivery."+action, "sendMessage", run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "delivery", "queue.fallback",
				slog.String("action", action),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

func logResult(ctx context.Context, event string, o orders.Order, err error) {
	attrs := []slog.Attr{
		slog.String("payment_ref", o.PaymentRef),
		slog.Int64("user_id", o.UserID),
	}
	if err != nil {
		logger.Error(ctx, "delivery", event, append(attrs,
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)...)
		return
	}
	logger.Info(ctx, "delivery", event, append(attrs, slog.String("status", "ok"))...)
}

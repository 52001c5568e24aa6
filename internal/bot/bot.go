// Package bot maps Telegram updates onto the checkout flow, payment status
// checks and the admin order listing.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tg "github.com/m3rciful/callmylawyer/core/telegram"
	"github.com/m3rciful/callmylawyer/core/telegram/middleware"
	"github.com/m3rciful/callmylawyer/core/telegram/router"
	"github.com/m3rciful/callmylawyer/core/telegram/state"
	"github.com/m3rciful/callmylawyer/internal/catalog"
	"github.com/m3rciful/callmylawyer/internal/checkout"
	"github.com/m3rciful/callmylawyer/internal/orders"

	tele "gopkg.in/telebot.v4"
)

// DefaultPolicyURL points at the published privacy policy and offer.
const DefaultPolicyURL = "https://drive.google.com/drive/folders/11E5KSDpYaxeGVi0pp3b27su0H6F0FHbk"

// Checkout is the conversation state machine.
type Checkout interface {
	SelectService(ctx context.Context, userID int64, serviceID string) (catalog.Service, error)
	Consent(ctx context.Context, userID int64, accept bool) (state.State, error)
	Input(ctx context.Context, userID int64, text string) (checkout.Step, error)
	Confirm(ctx context.Context, userID int64) (checkout.Outcome, error)
	Reset(ctx context.Context, userID int64)
	State(userID int64) state.State
}

// OrderLister reads the ledger for the admin listing.
type OrderLister interface {
	List() []orders.Order
}

// PaymentStatus answers the "I have paid" button.
type PaymentStatus interface {
	Status(userID int64, ref string) (orders.Order, error)
}

// StateRouter receives per-state text handlers.
type StateRouter interface {
	Handle(st state.State, h tele.HandlerFunc)
}

// Options tune user-facing behaviour.
type Options struct {
	AdminID int64
	// WelcomePhoto is a local path or an http(s) URL; empty sends text only.
	WelcomePhoto string
	PolicyURL    string
}

// Deps collects the collaborators of Handlers.
type Deps struct {
	Checkout Checkout
	Catalog  *catalog.Catalog
	Orders   OrderLister
	Payments PaymentStatus
}

// Handlers implements every bot endpoint.
type Handlers struct {
	checkout Checkout
	catalog  *catalog.Catalog
	orders   OrderLister
	payments PaymentStatus
	opts     Options
}

var _ router.Fallbacks = (*Handlers)(nil)

// New validates deps and returns the handler set.
func New(d Deps, opts Options) (*Handlers, error) {
	if d.Checkout == nil || d.Catalog == nil || d.Orders == nil || d.Payments == nil {
		return nil, errors.New("bot: checkout, catalog, orders and payments are required")
	}
	if opts.PolicyURL == "" {
		opts.PolicyURL = DefaultPolicyURL
	}
	return &Handlers{
		checkout: d.Checkout,
		catalog:  d.Catalog,
		orders:   d.Orders,
		payments: d.Payments,
		opts:     opts,
	}, nil
}

// Register adds commands and callbacks to reg and text handlers to fsm.
func (h *Handlers) Register(reg *tg.Registry, fsm StateRouter) error {
	if reg == nil {
		return errors.New("bot: nil registry")
	}
	cmds := []struct {
		name string
		cmd  tg.Command
	}{
		{"/start", tg.Command{Handler: h.Start, Description: "Главное меню"}},
		{"/help", tg.Command{Handler: h.Start, Description: "Помощь"}},
		{"/services", tg.Command{
			Handler:     h.Services,
			Description: "Услуги",
			Hidden:      true,
			Aliases:     []string{servicesButton},
		}},
		{"/orders", tg.Command{
			Handler:     h.Orders,
			Description: "Последние заказы",
			AdminOnly:   true,
		}},
	}
	var errs []error
	for _, c := range cmds {
		if err := reg.RegisterCommand(c.name, c.cmd); err != nil {
			errs = append(errs, fmt.Errorf("bot: %w", err))
		}
	}

	adminOnly := middleware.AdminOnly(h.opts.AdminID, h.AccessDenied)
	callbacks := map[string]tele.HandlerFunc{
		cbService:      h.onService,
		cbProceed:      h.onProceed,
		cbAgree:        h.onAgree,
		cbDisagree:     h.onDisagree,
		cbConfirm:      h.onConfirm,
		cbCheckPayment: h.onCheckPayment,
		cbBackServices: h.onBackServices,
		cbBackMain:     h.onBackMain,
		cbOrdersPage:   adminOnly(h.onOrdersPage),
	}
	for key, fn := range callbacks {
		if err := reg.RegisterCallback(key, fn); err != nil {
			errs = append(errs, fmt.Errorf("bot: %w", err))
		}
	}
	reg.SetUnknownCallback(h.UnknownCallback())
	reg.SetUnknownText(h.UnknownText())

	if fsm != nil {
		for _, st := range []state.State{checkout.StateAwaitingName, checkout.StateAwaitingPhone, checkout.StateAwaitingEmail} {
			fsm.Handle(st, h.onInput)
		}
		for _, st := range []state.State{checkout.StateAwaitingConsent, checkout.StateReadyForPayment} {
			fsm.Handle(st, h.onButtonsExpected)
		}
	}
	return errors.Join(errs...)
}

// UnknownText answers text that matched nothing.
func (h *Handlers) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return send(c, unknownText, mainMenu())
	}
}

// UnknownDocument answers unexpected files.
func (h *Handlers) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return send(c, unknownDocument, nil)
	}
}

// UnknownCallback handles presses on buttons from older bot versions.
func (h *Handlers) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return send(c, expiredText, servicesMenu(h.catalog.List()))
	}
}

// AccessDenied is shown to non-admins on admin endpoints.
func (h *Handlers) AccessDenied(c tele.Context) error {
	return send(c, accessDeniedText, nil)
}

// RateLimited shows a toast for throttled button presses and drops messages silently.
func (h *Handlers) RateLimited(c tele.Context) error {
	if c.Callback() == nil {
		return nil
	}
	return c.Respond(&tele.CallbackResponse{Text: rateLimitedText})
}

func senderID(c tele.Context) int64 {
	if u := c.Sender(); u != nil {
		return u.ID
	}
	return 0
}

func photoFile(ref string) tele.File {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return tele.FromURL(ref)
	}
	return tele.FromDisk(ref)
}

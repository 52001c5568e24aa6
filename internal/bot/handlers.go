package bot

import (
	"errors"

	"github.com/m3rciful/callmylawyer/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/callmylawyer/core/telegram/helpers"
	"github.com/m3rciful/callmylawyer/core/telegram/keyboard"
	"github.com/m3rciful/callmylawyer/internal/catalog"
	"github.com/m3rciful/callmylawyer/internal/checkout"

	tele "gopkg.in/telebot.v4"
)

func send(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	return tghelpers.SendMD(c, text, markup)
}

// Start resets any conversation and shows the welcome screen.
func (h *Handlers) Start(c tele.Context) error {
	h.checkout.Reset(tghelpers.BuildContext(c), senderID(c))
	if h.opts.WelcomePhoto != "" {
		return tghelpers.SendPhotoMD(c, &tele.Photo{File: photoFile(h.opts.WelcomePhoto), Caption: welcomeText}, mainMenu())
	}
	return send(c, welcomeText, mainMenu())
}

// Services lists the catalog.
func (h *Handlers) Services(c tele.Context) error {
	return send(c, chooseServiceText, servicesMenu(h.catalog.List()))
}

func (h *Handlers) onBackServices(c tele.Context) error {
	h.checkout.Reset(tghelpers.BuildContext(c), senderID(c))
	return h.Services(c)
}

func (h *Handlers) onBackMain(c tele.Context) error {
	h.checkout.Reset(tghelpers.BuildContext(c), senderID(c))
	return send(c, mainMenuText, mainMenu())
}

func (h *Handlers) expired(c tele.Context) error {
	return send(c, expiredText, servicesMenu(h.catalog.List()))
}

func (h *Handlers) onService(c tele.Context) error {
	svc, err := h.checkout.SelectService(tghelpers.BuildContext(c), senderID(c), callbacks.CallbackPayload(c))
	if err != nil {
		return h.expired(c)
	}
	return send(c, serviceText(svc), serviceMenu(svc))
}

func (h *Handlers) onProceed(c tele.Context) error {
	if h.checkout.State(senderID(c)) != checkout.StateAwaitingConsent {
		return h.expired(c)
	}
	return tghelpers.SendText(c, consentText(h.opts.PolicyURL), &tele.SendOptions{
		ParseMode:             tele.ModeMarkdown,
		ReplyMarkup:           consentMenu(),
		DisableWebPagePreview: true,
	})
}

func (h *Handlers) onAgree(c tele.Context) error {
	if _, err := h.checkout.Consent(tghelpers.BuildContext(c), senderID(c), true); err != nil {
		return h.expired(c)
	}
	return send(c, askNameText, keyboard.RemoveKeyboard())
}

func (h *Handlers) onDisagree(c tele.Context) error {
	if _, err := h.checkout.Consent(tghelpers.BuildContext(c), senderID(c), false); err != nil {
		return h.expired(c)
	}
	return send(c, consentDeclined+"\n\n"+chooseServiceText, servicesMenu(h.catalog.List()))
}

func (h *Handlers) onInput(c tele.Context) error {
	step, err := h.checkout.Input(tghelpers.BuildContext(c), senderID(c), c.Text())
	var verr *checkout.ValidationError
	switch {
	case errors.As(err, &verr):
		if verr.Field == "email" {
			return send(c, invalidEmailText, nil)
		}
		return send(c, emptyValueText, nil)
	case err != nil:
		return nil
	}

	switch step.State {
	case checkout.StateAwaitingPhone:
		return send(c, askPhoneText, nil)
	case checkout.StateAwaitingEmail:
		return send(c, askEmailText, nil)
	case checkout.StateReadyForPayment:
		svc, err := h.catalog.Lookup(step.Draft.ServiceID)
		if err != nil {
			return h.expired(c)
		}
		return send(c, summaryText(step.Draft, svc), summaryMenu(svc))
	}
	return nil
}

// onButtonsExpected covers states that only advance through inline buttons.
// The services button still works there and abandons the draft.
func (h *Handlers) onButtonsExpected(c tele.Context) error {
	if c.Text() == servicesButton {
		return h.onBackServices(c)
	}
	return send(c, useButtonsText, nil)
}

func (h *Handlers) onConfirm(c tele.Context) error {
	out, err := h.checkout.Confirm(tghelpers.BuildContext(c), senderID(c))
	switch {
	case errors.Is(err, checkout.ErrUnexpectedAction), errors.Is(err, catalog.ErrUnknownService):
		return h.expired(c)
	case errors.Is(err, checkout.ErrIncompleteDraft):
		return send(c, incompleteText, nil)
	case err != nil:
		_ = send(c, failureText, retryConfirmMenu())
		return err
	}

	if out.Service.Free() {
		if !out.Delivered {
			return send(c, deliveryFailed, nil)
		}
		return nil
	}
	return send(c, paymentText(out.Order), paymentMenu(out.PaymentURL, out.Order.PaymentRef))
}

func (h *Handlers) onCheckPayment(c tele.Context) error {
	o, err := h.payments.Status(senderID(c), callbacks.CallbackPayload(c))
	if err != nil {
		return send(c, orderNotFoundText, nil)
	}
	if o.Settled() {
		return send(c, paymentConfirmed, settledMenu(o.AssetRef))
	}
	return send(c, paymentPending, nil)
}

// Orders shows the first admin page.
func (h *Handlers) Orders(c tele.Context) error {
	return h.renderOrders(c, 1, false)
}

func (h *Handlers) onOrdersPage(c tele.Context) error {
	n, err := callbacks.PayloadInt(c)
	if err != nil {
		n = 1
	}
	return h.renderOrders(c, n, true)
}

func (h *Handlers) renderOrders(c tele.Context, n int, edit bool) error {
	list := h.orders.List()
	if len(list) == 0 {
		return send(c, noOrdersText, nil)
	}
	p := Paginate(list, n, PageSize)
	if edit {
		return tghelpers.EditOrSendMD(c, ordersPageText(p), pagerMenu(p))
	}
	return send(c, ordersPageText(p), pagerMenu(p))
}

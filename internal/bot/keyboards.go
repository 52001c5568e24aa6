package bot

import (
	"strconv"

	"github.com/m3rciful/callmylawyer/core/telegram/keyboard"
	"github.com/m3rciful/callmylawyer/internal/catalog"

	tele "gopkg.in/telebot.v4"
)

// Callback uniques.
const (
	cbService      = "service"
	cbProceed      = "proceed"
	cbAgree        = "agree"
	cbDisagree     = "disagree"
	cbConfirm      = "confirm"
	cbCheckPayment = "check_payment"
	cbBackServices = "back_services"
	cbBackMain     = "back_main"
	cbOrdersPage   = "orders_page"
)

func mainMenu() *tele.ReplyMarkup {
	return keyboard.ReplyButtons([]string{servicesButton})
}

func servicesMenu(list []catalog.Service) *tele.ReplyMarkup {
	buttons := make([]keyboard.InlineBtn, 0, len(list)+1)
	for _, s := range list {
		buttons = append(buttons, keyboard.InlineBtn{Text: s.Name, Unique: cbService, Data: s.ID})
	}
	buttons = append(buttons, keyboard.InlineBtn{Text: "🔙 Назад", Unique: cbBackMain})
	return keyboard.InlineButtons(buttons)
}

func serviceMenu(s catalog.Service) *tele.ReplyMarkup {
	label := "💰 Оплатить услугу"
	if s.Free() {
		label = "🎬 Получить доступ"
	}
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: label, Unique: cbProceed},
		{Text: "← Назад к услугам", Unique: cbBackServices},
	})
}

func consentMenu() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "✅ Согласен", Unique: cbAgree},
		{Text: "❌ Не согласен", Unique: cbDisagree},
	})
}

func summaryMenu(s catalog.Service) *tele.ReplyMarkup {
	label := "💳 Перейти к оплате"
	if s.Free() {
		label = "🎬 Получить видео"
	}
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: label, Unique: cbConfirm},
		{Text: "✏️ Изменить данные", Unique: cbBackServices},
	})
}

func paymentMenu(paymentURL, ref string) *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "💳 Перейти к оплате", URL: paymentURL},
		{Text: "✅ Я оплатил", Unique: cbCheckPayment, Data: ref},
		{Text: "↩️ Назад к услугам", Unique: cbBackServices},
	})
}

// settledMenu links the purchased materials again so a buyer whose delivery
// message never arrived still gets them.
func settledMenu(assetRef string) *tele.ReplyMarkup {
	var buttons []keyboard.InlineBtn
	if assetRef != "" {
		buttons = append(buttons, keyboard.InlineBtn{Text: "📚 Открыть материалы", URL: assetRef})
	}
	buttons = append(buttons, keyboard.InlineBtn{Text: "↩️ Назад к услугам", Unique: cbBackServices})
	return keyboard.InlineButtons(buttons)
}

func retryConfirmMenu() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "🔁 Повторить", Unique: cbConfirm},
		{Text: "↩️ Назад к услугам", Unique: cbBackServices},
	})
}

// pagerMenu returns nil when everything fits on one page.
func pagerMenu(p Page) *tele.ReplyMarkup {
	if p.Pages <= 1 {
		return nil
	}
	var row []keyboard.InlineBtn
	if p.Number > 1 {
		row = append(row, keyboard.InlineBtn{Text: "◀️", Unique: cbOrdersPage, Data: strconv.Itoa(p.Number - 1)})
	}
	if p.Number < p.Pages {
		row = append(row, keyboard.InlineBtn{Text: "▶️", Unique: cbOrdersPage, Data: strconv.Itoa(p.Number + 1)})
	}
	return keyboard.InlineButtonsRows(row)
}

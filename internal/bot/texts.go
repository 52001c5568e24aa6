package bot

import (
	"fmt"
	"strings"

	"github.com/m3rciful/callmylawyer/core/telegram/format"
	"github.com/m3rciful/callmylawyer/internal/catalog"
	"github.com/m3rciful/callmylawyer/internal/checkout"
	"github.com/m3rciful/callmylawyer/internal/orders"
)

// Bot texts use the legacy Markdown parse mode; anything typed by users or
// loaded from config goes through format.MD.

const servicesButton = "Услуги"

const welcomeText = `Всех приветствую!
Меня зовут Нина, практикующий юрист и автор проекта Call My Lawyer ⚖️
Я и моя команда помогаем компаниям и предпринимателям чувствовать себя уверенно в юридических вопросах.

В этом боте вы можете:
— выбрать и заказать юридические услуги,
— получить юридические материалы и чек-листы,
— получать рассылку об изменениях в законах и рекомендации от меня.

Всё просто, прозрачно и по делу — как я люблю 💼`

const (
	mainMenuText      = "Главное меню"
	chooseServiceText = "Выберите услугу:"
	consentDeclined   = "❌ Для оформления заказа необходимо согласие с условиями."
	askNameText       = "✅ Согласие получено! Теперь нам нужны ваши данные для оформления заказа.\n\n👤 Введите ваше имя и фамилию:"
	askPhoneText      = "📞 Введите ваш номер телефона:"
	askEmailText      = "📧 Введите ваш email:"
	invalidEmailText  = "❌ Пожалуйста, введите корректный email адрес:"
	emptyValueText    = "❌ Значение не может быть пустым. Попробуйте ещё раз:"
	incompleteText    = "⚠️ Данные заказа неполные. Давайте заполним их заново.\n\n👤 Введите ваше имя и фамилию:"
	useButtonsText    = "👇 Пожалуйста, воспользуйтесь кнопками под предыдущим сообщением."
	expiredText       = "⌛ Эта кнопка больше не активна. Выберите услугу заново:"
	failureText       = "❌ Произошла ошибка. Попробуйте ещё раз чуть позже."
	deliveryFailed    = "⚠️ Заказ оформлен, но отправить материалы не удалось. Мы свяжемся с вами."
	paymentPending    = "⏳ Оплата еще не поступила. Попробуйте проверить позже."
	paymentConfirmed  = "✅ Оплата подтверждена! Материалы доступны по кнопке ниже."
	orderNotFoundText = "❌ Заказ не найден"
	accessDeniedText  = "⛔ У вас нет прав доступа к этой команде."
	noOrdersText      = "📭 Заказов пока нет."
	unknownText       = "Не понимаю сообщение. Нажмите «Услуги» или отправьте /start."
	unknownDocument   = "Файлы не принимаются. Нажмите «Услуги» или отправьте /start."
	rateLimitedText   = "Слишком много запросов, подождите немного."
)

func serviceText(s catalog.Service) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎯 *%s*\n\n", format.MD(s.Name))
	if s.Description != "" {
		fmt.Fprintf(&b, "📝 %s\n\n", format.MD(s.Description))
	}
	fmt.Fprintf(&b, "💰 Стоимость: %s\n\n", catalog.FormatPrice(s.PriceMinor))
	if s.Free() {
		b.WriteString("Для получения доступа нажмите кнопку ниже:")
	} else {
		b.WriteString("Для оплаты нажмите кнопку ниже:")
	}
	return b.String()
}

func consentText(policyURL string) string {
	return "📋 *Согласие на обработку персональных данных*\n\n" +
		"Нажимая кнопку «Согласен», вы подтверждаете:\n\n" +
		"• Согласие на обработку персональных данных в соответствии с [Политикой обработки ПДн](" + policyURL + ")\n" +
		"• Принятие условий [Публичной оферты](" + policyURL + ")\n" +
		"• Согласие с [Условиями предоставления услуг](" + policyURL + ")"
}

func summaryText(d checkout.Draft, s catalog.Service) string {
	return fmt.Sprintf("📋 *Сводка заказа*\n\n"+
		"🎯 Услуга: %s\n"+
		"💰 Стоимость: %s\n\n"+
		"*Ваши данные:*\n"+
		"👤 Имя: %s\n"+
		"📞 Телефон: %s\n"+
		"📧 Email: %s\n\n"+
		"Всё верно?",
		format.MD(s.Name), catalog.FormatPrice(s.PriceMinor),
		format.MD(d.Name), format.MD(d.Phone), format.MD(d.Email))
}

func paymentText(o orders.Order) string {
	return fmt.Sprintf("🔄 Ваш заказ создан!\n\n"+
		"Для оплаты перейдите по ссылке ниже:\n\n"+
		"💰 Сумма: %s\n"+
		"🎯 Услуга: %s\n\n"+
		"После оплаты нажмите «✅ Я оплатил»",
		catalog.FormatPrice(o.PriceMinor), format.MD(o.ServiceName))
}

func statusLabel(o orders.Order) string {
	switch o.Status {
	case orders.StatusPaid:
		return "✅ Оплачен"
	case orders.StatusFree:
		return "🎁 Бесплатно"
	default:
		return "❌ Не оплачен"
	}
}

// ordersPageText renders one admin page. Numbering follows the ledger's
// display ordinal.
func ordersPageText(p Page) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Всего заказов: %d", p.Total)
	if p.Pages > 1 {
		fmt.Fprintf(&b, " (стр. %d/%d)", p.Number, p.Pages)
	}
	b.WriteString("\n\n")
	for _, o := range p.Items {
		fmt.Fprintf(&b, "📋 Заказ #%d\n", o.ID)
		fmt.Fprintf(&b, "👤 Имя: %s\n", format.MD(o.Contact.Name))
		fmt.Fprintf(&b, "📞 Телефон: %s\n", format.MD(o.Contact.Phone))
		fmt.Fprintf(&b, "📧 Email: %s\n", format.MD(o.Contact.Email))
		fmt.Fprintf(&b, "🎯 Услуга: %s\n", format.MD(o.ServiceName))
		fmt.Fprintf(&b, "💰 Цена: %s\n", catalog.FormatPrice(o.PriceMinor))
		fmt.Fprintf(&b, "🔢 Платёж: %s\n", format.MD(o.PaymentRef))
		fmt.Fprintf(&b, "📅 Дата: %s\n", o.CreatedAt.UTC().Format(dateLayout))
		fmt.Fprintf(&b, "💳 Статус: %s\n", statusLabel(o))
		b.WriteString("---\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

const dateLayout = "02.01.2006 15:04 UTC"

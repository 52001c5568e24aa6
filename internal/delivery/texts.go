package delivery

import (
	"fmt"
	"strings"

	"github.com/m3rciful/callmylawyer/internal/catalog"
	"github.com/m3rciful/callmylawyer/internal/orders"
)

// Messages go out without a parse mode, so user input needs no escaping.

const backButton = "↩️ К другим услугам"

func assetButton(o orders.Order) string {
	if o.Free() {
		return "▶️ Получить видео"
	}
	return "📥 Получить материалы"
}

func deliveryText(o orders.Order) string {
	if o.Free() {
		return fmt.Sprintf("🎉 Ваш заказ оформлен!\n\n"+
			"🎯 Услуга: %s\n"+
			"💰 Стоимость: %s\n\n"+
			"🔗 Ссылка на видео-урок:\n%s",
			o.ServiceName, catalog.FreeLabel, o.AssetRef)
	}
	return fmt.Sprintf("✅ Оплата подтверждена!\n\n"+
		"🎯 Услуга: %s\n"+
		"💰 Сумма: %s\n\n"+
		"🔗 Ссылка на материалы:\n%s",
		o.ServiceName, catalog.FormatPrice(o.PriceMinor), o.AssetRef)
}

func orderPlacedText(o orders.Order, paymentURL string) string {
	var b strings.Builder
	if o.Free() {
		b.WriteString("🎬 Новый бесплатный заказ!\n\n")
	} else {
		b.WriteString("🆕 Новый заказ!\n\n")
	}
	fmt.Fprintf(&b, "👤 Имя: %s\n", o.Contact.Name)
	fmt.Fprintf(&b, "📞 Телефон: %s\n", o.Contact.Phone)
	fmt.Fprintf(&b, "📧 Email: %s\n", o.Contact.Email)
	fmt.Fprintf(&b, "🎯 Услуга: %s\n", o.ServiceName)
	fmt.Fprintf(&b, "💰 Цена: %s\n", catalog.FormatPrice(o.PriceMinor))
	if !o.Free() {
		b.WriteString("💳 Статус: Ожидает оплаты\n")
	}
	fmt.Fprintf(&b, "🆔 ID пользователя: %d\n", o.UserID)
	fmt.Fprintf(&b, "🔢 Номер заказа: %s", o.PaymentRef)
	if paymentURL != "" {
		fmt.Fprintf(&b, "\n🔗 Ссылка на оплату: %s", paymentURL)
	}
	return b.String()
}

func paymentReceivedText(o orders.Order) string {
	return fmt.Sprintf("✅ Оплата получена!\n\n"+
		"🔢 Номер заказа: %s\n"+
		"💰 Сумма: %s\n"+
		"🎯 Услуга: %s\n"+
		"👤 Пользователь: %s",
		o.PaymentRef, catalog.FormatPrice(o.PriceMinor), o.ServiceName, o.Contact.Name)
}

package payment

import (
	"github.com/m3rciful/callmylawyer/internal/orders"
)

// Gateway holds the merchant credentials used for outbound links.
type Gateway struct {
	MerchantID string
	Secret1    string
	BaseURL    string
	Test       bool
}

// PaymentURL builds the signed link for a pending order.
func (g Gateway) PaymentURL(o orders.Order) (string, error) {
	return BuildURL(g.BaseURL, Request{
		MerchantID:    g.MerchantID,
		AmountMinor:   o.PriceMinor,
		CorrelationID: o.PaymentRef,
		Description:   "Оплата услуги: " + o.ServiceName,
		Email:         o.Contact.Email,
		Test:          g.Test,
	}, g.Secret1)
}

// Validate builds a link for a sample order so a misconfigured gateway fails
// at startup instead of after an order was stored.
func (g Gateway) Validate() error {
	_, err := g.PaymentURL(orders.Order{PriceMinor: 100, PaymentRef: "1", ServiceName: "check"})
	return err
}

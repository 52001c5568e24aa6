package payment

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the gateway's payment page.
const DefaultBaseURL = "https://auth.robokassa.ru/Merchant/Index.aspx"

// Request describes one outbound payment initiation.
type Request struct {
	MerchantID    string
	AmountMinor   int64
	CorrelationID string
	Description   string
	Email         string
	Test          bool
}

// FormatAmount renders minor units as the gateway's decimal amount, e.g.
// 500000 -> "5000.00".
func FormatAmount(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

// BuildURL returns the signed payment page URL for r.
func BuildURL(baseURL string, r Request, secret1 string) (string, error) {
	if strings.TrimSpace(r.MerchantID) == "" {
		return "", errors.New("payment: empty merchant id")
	}
	if r.CorrelationID == "" {
		return "", errors.New("payment: empty correlation id")
	}
	if r.AmountMinor <= 0 {
		return "", fmt.Errorf("payment: non-positive amount %d", r.AmountMinor)
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("payment: parse base url: %w", err)
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return "", fmt.Errorf("payment: base url %q is not an absolute http(s) url", baseURL)
	}

	amount := FormatAmount(r.AmountMinor)
	q := u.Query()
	q.Set("MerchantLogin", r.MerchantID)
	q.Set("OutSum", amount)
	q.Set("InvId", r.CorrelationID)
	q.Set("Description", r.Description)
	q.Set("SignatureValue", RequestSignature(r.MerchantID, amount, r.CorrelationID, secret1))
	if r.Email != "" {
		q.Set("Email", r.Email)
	}
	if r.Test {
		q.Set("IsTest", "1")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Package payment builds signed payment links for a Robokassa-style gateway
// and reconciles the gateway's signed result notifications against the
// order ledger.
package payment

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrInvalidSignature is returned when a notification fails authentication.
var ErrInvalidSignature = errors.New("payment: invalid signature")

// Notification is the gateway's result callback as received.
// Amount is kept verbatim because the signature covers the exact string.
type Notification struct {
	Amount        string
	CorrelationID string
	Signature     string
}

// RequestSignature signs an outbound payment request with the first secret.
func RequestSignature(merchantID, amount, correlationID, secret1 string) string {
	return digest(merchantID, amount, correlationID, secret1)
}

// NotificationSignature computes the signature the gateway attaches to a
// result notification, keyed by the second secret.
func NotificationSignature(amount, correlationID, secret2 string) string {
	return digest(amount, correlationID, secret2)
}

// VerifyNotification checks n against secret2. Hex case is ignored.
func VerifyNotification(n Notification, secret2 string) error {
	if n.CorrelationID == "" || n.Signature == "" {
		return ErrInvalidSignature
	}
	want := NotificationSignature(n.Amount, n.CorrelationID, secret2)
	if !strings.EqualFold(want, strings.TrimSpace(n.Signature)) {
		return ErrInvalidSignature
	}
	return nil
}

func digest(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, ":")))
	return hex.EncodeToString(sum[:])
}

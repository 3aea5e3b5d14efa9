// Package payments talks to the subscription payment gateway. The browser
// runs the checkout with the order created here; the gateway then hands back
// a payment id and a signature that the server verifies before it activates
// premium.
package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/billingcat/invoicedesk/invoicing"
	"github.com/shopspring/decimal"
)

var (
	ErrNotConfigured     = errors.New("payment gateway not configured")
	ErrSignatureMismatch = errors.New("payment signature mismatch")
)

// Order is what the checkout widget needs to start a payment.
type Order struct {
	OrderID     string          `json:"orderId"`
	KeyID       string          `json:"keyId"`
	Amount      decimal.Decimal `json:"amount"`
	AmountMinor int64           `json:"amountMinor"` // smallest currency unit, e.g. cents
	Currency    string          `json:"currency"`
}

// Gateway signs and verifies checkout callbacks with a shared secret.
type Gateway struct {
	keyID  string
	secret []byte
}

// NewGateway returns a gateway for the given key pair. An empty secret gives
// a gateway whose Verify always fails with ErrNotConfigured.
func NewGateway(keyID, secret string) *Gateway {
	return &Gateway{keyID: keyID, secret: []byte(secret)}
}

// KeyID is the public key id the checkout widget needs.
func (g *Gateway) KeyID() string { return g.keyID }

// Configured reports whether a secret is set.
func (g *Gateway) Configured() bool { return len(g.secret) > 0 }

// NewOrder creates an order for amount in currency.
func (g *Gateway) NewOrder(amount decimal.Decimal, currency string) (Order, error) {
	if !g.Configured() {
		return Order{}, ErrNotConfigured
	}
	if !amount.IsPositive() {
		return Order{}, errors.New("order amount must be positive")
	}
	return Order{
		OrderID:     invoicing.GenerateID("order"),
		KeyID:       g.keyID,
		Amount:      amount,
		AmountMinor: amount.Shift(2).Round(0).IntPart(),
		Currency:    strings.ToUpper(currency),
	}, nil
}

// Sign returns the hex HMAC-SHA256 of "orderID|paymentID".
func (g *Gateway) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the signature the gateway sent for a completed payment.
func (g *Gateway) Verify(orderID, paymentID, signature string) error {
	if !g.Configured() {
		return ErrNotConfigured
	}
	if orderID == "" || paymentID == "" {
		return ErrSignatureMismatch
	}
	expected := g.Sign(orderID, paymentID)
	if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
		return ErrSignatureMismatch
	}
	return nil
}

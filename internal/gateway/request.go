package gateway

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Request is the mutable payment configuration the caller fills in before a
// field set is built. It is owned exclusively by the calling context; no
// shared mutable state crosses requests.
type Request struct {
	// Amount in major units (10.50 means ten and a half). Gateways apply
	// their own minor-unit massaging when building fields.
	Amount   decimal.Decimal
	Currency string
	// OrderID is an opaque identifier; gateways enforce their own minimum
	// length rules.
	OrderID string
	// MerchantID is the merchant code (Redsys) or business email (PayPal).
	MerchantID   string
	MerchantName string
	// TransactionType is the gateway-specific operation constant. Empty means
	// the gateway's plain-payment default.
	TransactionType string
	BuyerName       string
	Description     string
	Language        string
	SuccessURL      string
	ErrorURL        string
	NotifyURL       string
	// Secret is the gateway signing secret.
	Secret string
	// Fee configures fee computation during verification.
	Fee Fee
}

// Validate checks the invariants shared by every gateway: amount and currency
// must be set before fields are built.
func (r Request) Validate() error {
	if r.Amount.IsZero() {
		return Fail(CodeMissingFields, "amount is not configured")
	}
	if strings.TrimSpace(r.Currency) == "" {
		return Fail(CodeMissingFields, "currency is not configured")
	}
	return nil
}

// Truncate trims s to at most max bytes, the way gateway field length limits
// are enforced.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

package redsys

import (
	"context"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/gateway-pay/internal/gateway"
)

// LegacyAdapter implements the legacy SHA1 Redsys signature scheme: a flat
// uppercase hex digest over a field concatenation, with no JSON/base64
// envelope. It has no fee computation and no refund or duplicate handling;
// those capabilities exist only in the HMAC variant.
type LegacyAdapter struct {
	Request gateway.Request

	Terminal string
	Sandbox  bool
	URL      string
}

// Name implements gateway.Gateway.
func (a *LegacyAdapter) Name() string { return "redsys-sha1" }

// WithPayment returns a copy of the adapter scoped to one payment.
func (a *LegacyAdapter) WithPayment(amount decimal.Decimal, orderID string) gateway.Gateway {
	clone := *a
	clone.Request.Amount = amount
	if orderID == "" {
		orderID = NewOrderCode()
	}
	clone.Request.OrderID = orderID
	return &clone
}

// PayURL implements gateway.Gateway.
func (a *LegacyAdapter) PayURL() string {
	if a.URL != "" {
		return a.URL
	}
	if a.Sandbox {
		return URLTest
	}
	return URLProduction
}

// Fields builds the flat Ds_Merchant_* field set with the SHA1 signature.
func (a *LegacyAdapter) Fields() (map[string]string, error) {
	if err := a.Request.Validate(); err != nil {
		return nil, err
	}
	numericCurrency, alphaCurrency, err := resolveCurrency(a.Request.Currency)
	if err != nil {
		return nil, err
	}

	amount := formatAmount(a.Request.Amount, alphaCurrency)
	order := padOrder(a.Request.OrderID)
	transactionType := transactionTypeOrDefault(a.Request.TransactionType)

	signature := sha1Hex(amount, order, a.Request.MerchantID, numericCurrency,
		transactionType, a.Request.NotifyURL, a.Request.Secret)

	fields := map[string]string{
		"Ds_Merchant_Amount":            amount,
		"Ds_Merchant_Order":             order,
		"Ds_Merchant_MerchantCode":      a.Request.MerchantID,
		"Ds_Merchant_Currency":          numericCurrency,
		"Ds_Merchant_TransactionType":   transactionType,
		"Ds_Merchant_Terminal":          a.legacyTerminal(),
		"Ds_Merchant_MerchantURL":       a.Request.NotifyURL,
		"Ds_Merchant_MerchantSignature": signature,
		"Ds_Merchant_UrlOK":             a.Request.SuccessURL,
		"Ds_Merchant_UrlKO":             a.Request.ErrorURL,
	}
	if a.Request.MerchantName != "" {
		fields["Ds_Merchant_MerchantName"] = gateway.Truncate(a.Request.MerchantName, maxMerchantNameLen)
	}
	if a.Request.Description != "" {
		fields["Ds_Merchant_ProductDescription"] = gateway.Truncate(a.Request.Description, maxDescriptionLen)
	}
	if a.Request.BuyerName != "" {
		fields["Ds_Merchant_Titular"] = gateway.Truncate(a.Request.BuyerName, maxBuyerNameLen)
	}
	if a.Request.Language != "" {
		fields["Ds_Merchant_ConsumerLanguage"] = a.Request.Language
	}
	return fields, nil
}

// Verify authenticates a legacy notification: the signature covers the
// notification amount, order, merchant code, currency and response code.
func (a *LegacyAdapter) Verify(_ context.Context, p gateway.Payload) (gateway.Result, error) {
	var zero gateway.Result

	if !p.Has("Ds_Amount") || !p.Has("Ds_Order") || !p.Has("Ds_Response") || !p.Has("Ds_Signature") {
		return zero, gateway.Fail(gateway.CodeMissingFields,
			"Ds_Amount, Ds_Order, Ds_Response and Ds_Signature are required")
	}
	numericCurrency, alphaCurrency, err := resolveCurrency(a.Request.Currency)
	if err != nil {
		return zero, err
	}

	expected := sha1Hex(p.Get("Ds_Amount"), p.Get("Ds_Order"), a.Request.MerchantID,
		numericCurrency, p.Get("Ds_Response"), a.Request.Secret)
	received := strings.ToUpper(strings.TrimSpace(p.Get("Ds_Signature")))
	if subtle.ConstantTimeCompare([]byte(expected), []byte(received)) != 1 {
		return zero, gateway.Fail(gateway.CodeSignatureMismatch, "signature does not match").
			With("received", received).
			With("expected", expected)
	}

	response := p.Get("Ds_Response")
	code, err := parseResponseCode(response)
	if err != nil {
		return zero, gateway.Fail(gateway.CodeGatewayDenied, "unreadable response code").
			With("response", response).Wrap(err)
	}
	if !responseAuthorized(code) {
		return zero, gateway.Fail(gateway.CodeGatewayDenied, "gateway denied the operation").
			With("response", code).
			With("description", Describe(response))
	}

	amount, _, err := recoverAmount(p.Get("Ds_Amount"), numericCurrency)
	if err != nil {
		return zero, err
	}
	if !amount.Equal(a.Request.Amount) {
		return zero, gateway.Fail(gateway.CodeAmountMismatch, "amount does not match").
			With("amount", amount.String()).
			With("expected_amount", a.Request.Amount.String())
	}

	return gateway.Result{
		Status:   gateway.StatusVerified,
		Amount:   amount,
		Currency: alphaCurrency,
		TxnID:    p.Get("Ds_Order"),
	}, nil
}

func (a *LegacyAdapter) legacyTerminal() string {
	if a.Terminal != "" {
		return a.Terminal
	}
	return defaultTerminal
}

// sha1Hex concatenates the parts and returns the uppercase SHA1 hex digest.
func sha1Hex(parts ...string) string {
	sum := sha1.Sum([]byte(strings.Join(parts, "")))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

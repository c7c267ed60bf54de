// Package redsys implements the Redsys virtual POS adapters: the current
// HMAC-SHA256 signature scheme and the legacy SHA1 one.
package redsys

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/gateway-pay/internal/currency"
	"github.com/noah-isme/gateway-pay/internal/gateway"
	"github.com/noah-isme/gateway-pay/internal/money"
)

const (
	// URLProduction is the live Redsys SIS endpoint.
	URLProduction = "https://sis.redsys.es/sis/realizarPago"
	// URLTest is the Redsys integration-test endpoint.
	URLTest = "https://sis-t.redsys.es:25443/sis/realizarPago"

	// SignatureVersion identifies the HMAC-SHA256 scheme on the wire.
	SignatureVersion = "HMAC_SHA256_V1"

	// TypePayment is the plain-payment transaction type.
	TypePayment = "0"
	// TypeRefund is the refund transaction type.
	TypeRefund = "3"

	defaultTerminal = "001"
	minOrderLen     = 4

	maxMerchantNameLen = 25
	maxDescriptionLen  = 125
	maxBuyerNameLen    = 60
)

// merchantParams is the parameter structure Redsys expects, JSON-marshalled
// and base64 encoded into Ds_MerchantParameters.
type merchantParams struct {
	Amount          string `json:"Ds_Merchant_Amount"`
	Order           string `json:"Ds_Merchant_Order"`
	MerchantCode    string `json:"Ds_Merchant_MerchantCode"`
	Currency        string `json:"Ds_Merchant_Currency"`
	TransactionType string `json:"Ds_Merchant_TransactionType"`
	Terminal        string `json:"Ds_Merchant_Terminal"`
	MerchantURL     string `json:"Ds_Merchant_MerchantURL"`
	MerchantName    string `json:"Ds_Merchant_MerchantName,omitempty"`
	Description     string `json:"Ds_Merchant_ProductDescription,omitempty"`
	BuyerName       string `json:"Ds_Merchant_Titular,omitempty"`
	Language        string `json:"Ds_Merchant_ConsumerLanguage,omitempty"`
	PayMethods      string `json:"Ds_Merchant_PayMethods,omitempty"`
	URLOK           string `json:"Ds_Merchant_UrlOK,omitempty"`
	URLKO           string `json:"Ds_Merchant_UrlKO,omitempty"`
}

// notification is the decoded Ds_MerchantParameters of an inbound callback.
type notification struct {
	Amount          string `json:"Ds_Amount"`
	Order           string `json:"Ds_Order"`
	MerchantCode    string `json:"Ds_MerchantCode"`
	Currency        string `json:"Ds_Currency"`
	Response        string `json:"Ds_Response"`
	TransactionType string `json:"Ds_TransactionType"`
	AuthCode        string `json:"Ds_AuthorisationCode"`
}

// Adapter is the HMAC-SHA256 Redsys gateway adapter.
type Adapter struct {
	Request gateway.Request

	// Terminal is the POS terminal number assigned by the bank. Defaults to 001.
	Terminal string
	// PayMethods restricts the payment methods offered ("C", "z", "P", ...).
	PayMethods string

	Sandbox bool
	// URL overrides the gateway endpoint.
	URL string

	// Codes overrides the built-in response-code description table. Purely
	// descriptive, never behaviour-affecting.
	Codes map[string]string

	Log zerolog.Logger
}

// Name implements gateway.Gateway.
func (a *Adapter) Name() string { return "redsys" }

// WithPayment returns a copy of the adapter scoped to one payment. A fresh
// order code is generated when none is given.
func (a *Adapter) WithPayment(amount decimal.Decimal, orderID string) gateway.Gateway {
	clone := *a
	clone.Request.Amount = amount
	if orderID == "" {
		orderID = NewOrderCode()
	}
	clone.Request.OrderID = orderID
	return &clone
}

// PayURL implements gateway.Gateway.
func (a *Adapter) PayURL() string {
	if a.URL != "" {
		return a.URL
	}
	if a.Sandbox {
		return URLTest
	}
	return URLProduction
}

// Fields builds the three-field signed envelope Redsys expects.
func (a *Adapter) Fields() (map[string]string, error) {
	if err := a.Request.Validate(); err != nil {
		return nil, err
	}
	numericCurrency, alphaCurrency, err := resolveCurrency(a.Request.Currency)
	if err != nil {
		return nil, err
	}

	params := merchantParams{
		Amount:          formatAmount(a.Request.Amount, alphaCurrency),
		Order:           padOrder(a.Request.OrderID),
		MerchantCode:    a.Request.MerchantID,
		Currency:        numericCurrency,
		TransactionType: transactionTypeOrDefault(a.Request.TransactionType),
		Terminal:        a.terminal(),
		MerchantURL:     a.Request.NotifyURL,
		MerchantName:    gateway.Truncate(a.Request.MerchantName, maxMerchantNameLen),
		Description:     gateway.Truncate(a.Request.Description, maxDescriptionLen),
		BuyerName:       gateway.Truncate(a.Request.BuyerName, maxBuyerNameLen),
		Language:        a.Request.Language,
		PayMethods:      a.PayMethods,
		URLOK:           a.Request.SuccessURL,
		URLKO:           a.Request.ErrorURL,
	}
	encoded, err := encodeParams(params)
	if err != nil {
		return nil, err
	}
	signature, err := sign(a.Request.Secret, params.Order, encoded)
	if err != nil {
		return nil, gateway.Fail(gateway.CodeSignatureMismatch, "cannot sign merchant parameters").Wrap(err)
	}
	return map[string]string{
		"Ds_SignatureVersion":   SignatureVersion,
		"Ds_MerchantParameters": encoded,
		"Ds_Signature":          signature,
	}, nil
}

// Verify authenticates a Redsys notification. The signature is recomputed
// from the order id inside the decoded parameters and checked before any
// decoded field is trusted for business logic.
func (a *Adapter) Verify(_ context.Context, p gateway.Payload) (gateway.Result, error) {
	var zero gateway.Result

	encoded := p.Get("Ds_MerchantParameters")
	received := p.Get("Ds_Signature")
	if encoded == "" || received == "" {
		return zero, gateway.Fail(gateway.CodeMissingFields, "Ds_MerchantParameters and Ds_Signature are required")
	}

	note, err := decodeNotification(encoded)
	if err != nil {
		return zero, gateway.Fail(gateway.CodeMissingFields, "undecodable merchant parameters").Wrap(err)
	}

	expected, err := sign(a.Request.Secret, note.Order, encoded)
	if err != nil {
		return zero, gateway.Fail(gateway.CodeSignatureMismatch, "cannot recompute signature").Wrap(err)
	}
	if !signatureEqual(expected, received) {
		return zero, gateway.Fail(gateway.CodeSignatureMismatch, "signature does not match").
			With("received", received).
			With("expected", expected)
	}

	response, err := parseResponseCode(note.Response)
	if err != nil {
		return zero, gateway.Fail(gateway.CodeGatewayDenied, "unreadable response code").
			With("response", note.Response).Wrap(err)
	}
	if !responseAuthorized(response) {
		return zero, gateway.Fail(gateway.CodeGatewayDenied, "gateway denied the operation").
			With("response", response).
			With("description", a.describe(note.Response))
	}

	amount, alphaCurrency, err := recoverAmount(note.Amount, note.Currency)
	if err != nil {
		return zero, err
	}
	requestAlpha := strings.ToUpper(a.Request.Currency)
	if currency.IsNumeric(a.Request.Currency) {
		requestAlpha, _ = currency.Alpha(a.Request.Currency)
	}
	if !amount.Equal(a.Request.Amount) || !strings.EqualFold(alphaCurrency, requestAlpha) {
		return zero, gateway.Fail(gateway.CodeAmountMismatch, "amount or currency does not match").
			With("amount", amount.String()).
			With("currency", alphaCurrency).
			With("expected_amount", a.Request.Amount.String()).
			With("expected_currency", requestAlpha)
	}

	result := gateway.Result{
		Status:   gateway.StatusVerified,
		Amount:   amount,
		Currency: alphaCurrency,
		Fee:      a.Request.Fee.Apply(amount),
		TxnID:    note.Order,
	}

	switch transactionTypeOrDefault(note.TransactionType) {
	case TypeRefund:
		result.Status = gateway.StatusRefunded
		return result, nil
	case TypePayment:
		return result, nil
	default:
		return zero, gateway.Fail(gateway.CodeUnexpectedTransactionType, "unexpected transaction type").
			With("transaction_type", note.TransactionType)
	}
}

func (a *Adapter) terminal() string {
	if a.Terminal != "" {
		return a.Terminal
	}
	return defaultTerminal
}

func (a *Adapter) describe(code string) string {
	if a.Codes != nil {
		if desc, ok := a.Codes[normalizeCode(code)]; ok {
			return desc
		}
		return "unknown"
	}
	return Describe(code)
}

// responseAuthorized applies the SIS acceptance rule: codes 0-99 are approved
// authorisations, 900 is a confirmed refund/confirmation.
func responseAuthorized(code int) bool {
	return (code >= 0 && code <= 99) || code == 900
}

func parseResponseCode(raw string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(raw))
}

func transactionTypeOrDefault(t string) string {
	if strings.TrimSpace(t) == "" {
		return TypePayment
	}
	return strings.TrimSpace(t)
}

// formatAmount renders the amount the way SIS expects: a fixed two-decimal
// string, with the decimal point stripped for euro amounts (euro amounts are
// integer minor units, the last two digits being decimals).
func formatAmount(v decimal.Decimal, alphaCurrency string) string {
	fixed := money.FormatAmount(v)
	if strings.EqualFold(alphaCurrency, "EUR") {
		return strings.Replace(fixed, ".", "", 1)
	}
	return fixed
}

// recoverAmount restores the decimal amount and alpha currency from the
// notification representation.
func recoverAmount(rawAmount, rawCurrency string) (decimal.Decimal, string, error) {
	alpha, err := currency.Alpha(rawCurrency)
	if err != nil {
		return decimal.Zero, "", gateway.Fail(gateway.CodeUnknownCurrency, "unknown notification currency").
			With("currency", rawCurrency).Wrap(err)
	}
	amount, err := money.ParseAmount(rawAmount)
	if err != nil {
		return decimal.Zero, "", gateway.Fail(gateway.CodeAmountMismatch, "unreadable notification amount").Wrap(err)
	}
	if alpha == "EUR" {
		amount = amount.Shift(-2)
	}
	return amount, alpha, nil
}

// resolveCurrency accepts an alpha or numeric currency and returns both forms.
func resolveCurrency(code string) (numeric, alpha string, err error) {
	if currency.IsNumeric(code) {
		alpha, err = currency.Alpha(code)
		if err != nil {
			return "", "", wrapUnknownCurrency(code, err)
		}
		return strings.TrimSpace(code), alpha, nil
	}
	numeric, err = currency.Numeric(code)
	if err != nil {
		return "", "", wrapUnknownCurrency(code, err)
	}
	return numeric, strings.ToUpper(strings.TrimSpace(code)), nil
}

func wrapUnknownCurrency(code string, err error) *gateway.VerifyError {
	return gateway.Fail(gateway.CodeUnknownCurrency, "unsupported currency").
		With("currency", code).Wrap(err)
}

// padOrder left-pads the order id with zeros to the SIS 4-character minimum.
func padOrder(order string) string {
	for len(order) < minOrderLen {
		order = "0" + order
	}
	return order
}

func encodeParams(params merchantParams) (string, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func decodeNotification(encoded string) (notification, error) {
	var note notification
	raw, err := decodeBase64(encoded)
	if err != nil {
		return note, err
	}
	if err := json.Unmarshal(raw, &note); err != nil {
		return note, err
	}
	return note, nil
}

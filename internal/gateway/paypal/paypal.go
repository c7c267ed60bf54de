// Package paypal implements the PayPal Standard (IPN) gateway adapter.
package paypal

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/gateway-pay/internal/gateway"
	"github.com/noah-isme/gateway-pay/internal/money"
	"github.com/noah-isme/gateway-pay/internal/replay"
)

const (
	// URLProduction is the live PayPal Standard endpoint.
	URLProduction = "https://www.paypal.com/cgi-bin/webscr"
	// URLSandbox is the PayPal sandbox endpoint.
	URLSandbox = "https://www.sandbox.paypal.com/cgi-bin/webscr"

	cmdPayment  = "_xclick"
	cmdValidate = "_notify-validate"

	maxItemNameLen = 125
)

// Adapter collects payments through PayPal Standard and verifies IPN
// notifications with the _notify-validate round trip.
type Adapter struct {
	Request gateway.Request

	// LogoURL and ImageURL customise the hosted payment page when set.
	LogoURL  string
	ImageURL string
	// ReturnButtonText labels the return button on the hosted page (cbt).
	ReturnButtonText string

	Sandbox bool
	// URL overrides the gateway endpoint; used by tests to point the
	// authenticity round trip at a stub server.
	URL string

	// Poster performs the authenticity POST. Defaults to an HTTP client.
	Poster Poster
	// Txns enables the duplicate-transaction check when set. Leaving it nil
	// skips the check entirely, a trade-off the integrator accepts explicitly.
	Txns replay.Store

	Log zerolog.Logger
}

// Name implements gateway.Gateway.
func (a *Adapter) Name() string { return "paypal" }

// WithPayment returns a copy of the adapter scoped to one payment.
func (a *Adapter) WithPayment(amount decimal.Decimal, orderID string) gateway.Gateway {
	clone := *a
	clone.Request.Amount = amount
	if orderID != "" {
		clone.Request.OrderID = orderID
	}
	return &clone
}

// PayURL implements gateway.Gateway.
func (a *Adapter) PayURL() string {
	if a.URL != "" {
		return a.URL
	}
	if a.Sandbox {
		return URLSandbox
	}
	return URLProduction
}

// Fields builds the hidden-field set for the PayPal Standard payment form.
func (a *Adapter) Fields() (map[string]string, error) {
	if err := a.Request.Validate(); err != nil {
		return nil, err
	}
	fields := map[string]string{
		"cmd":           cmdPayment,
		"business":      a.Request.MerchantID,
		"amount":        money.FormatAmount(a.Request.Amount),
		"currency_code": strings.ToUpper(a.Request.Currency),
		"custom":        a.Request.OrderID,
		"notify_url":    a.Request.NotifyURL,
		"item_name":     gateway.Truncate(a.Request.Description, maxItemNameLen),
		"no_shipping":   "1",
		"no_note":       "1",
		"return":        a.Request.SuccessURL,
		"cancel_return": a.Request.ErrorURL,
		"charset":       "utf-8",
	}
	if a.LogoURL != "" {
		fields["cpp_logo_image"] = a.LogoURL
	}
	if a.ImageURL != "" {
		fields["image_url"] = a.ImageURL
	}
	if a.ReturnButtonText != "" {
		fields["cbt"] = a.ReturnButtonText
	}
	return fields, nil
}

// Verify authenticates an IPN notification. Refund detection never
// short-circuits the financial checks: amount, currency and the gateway
// round trip are validated before the refund outcome is returned.
func (a *Adapter) Verify(ctx context.Context, p gateway.Payload) (gateway.Result, error) {
	var zero gateway.Result

	if got := p.Get("receiver_email"); got != a.Request.MerchantID {
		return zero, gateway.Fail(gateway.CodeMerchantMismatch, "receiver email does not match merchant").
			With("received", got).
			With("expected", a.Request.MerchantID)
	}

	refund := false
	switch status := strings.ToLower(p.Get("payment_status")); status {
	case "refunded", "reversed":
		refund = true
	case "completed":
	default:
		return zero, gateway.Fail(gateway.CodeUnexpectedStatus, "unexpected payment status").
			With("status", p.Get("payment_status"))
	}

	expectedGross := a.Request.Amount
	if refund {
		expectedGross = expectedGross.Neg()
	}
	gross, err := money.ParseAmount(p.Get("mc_gross"))
	if err != nil {
		return zero, gateway.Fail(gateway.CodeAmountMismatch, "unreadable gross amount").Wrap(err)
	}
	if !gross.Equal(expectedGross) || !strings.EqualFold(p.Get("mc_currency"), a.Request.Currency) {
		return zero, gateway.Fail(gateway.CodeAmountMismatch, "gross amount or currency does not match").
			With("gross", p.Get("mc_gross")).
			With("currency", p.Get("mc_currency")).
			With("expected_gross", expectedGross.String()).
			With("expected_currency", a.Request.Currency)
	}

	if err := a.validateWithGateway(ctx, p); err != nil {
		return zero, err
	}

	fee := a.parseFee(p.Get("mc_fee"))

	result := gateway.Result{
		Status:   gateway.StatusVerified,
		Amount:   gross,
		Currency: strings.ToUpper(a.Request.Currency),
		Fee:      fee,
		TxnID:    p.Get("txn_id"),
	}
	if refund {
		result.Status = gateway.StatusRefunded
		return result, nil
	}

	if a.Txns != nil {
		if err := a.checkDuplicate(ctx, result.TxnID); err != nil {
			return zero, err
		}
	}
	return result, nil
}

// validateWithGateway re-posts the whole payload plus cmd=_notify-validate to
// PayPal, which echoes back a literal VERIFIED or INVALID token.
func (a *Adapter) validateWithGateway(ctx context.Context, p gateway.Payload) error {
	form := make(map[string][]string, len(p)+1)
	for key, value := range p {
		form[key] = []string{value}
	}
	form["cmd"] = []string{cmdValidate}

	poster := a.Poster
	if poster == nil {
		poster = defaultPoster
	}
	status, body, err := poster.Post(ctx, a.PayURL(), form)
	if err != nil {
		return gateway.Fail(gateway.CodeGatewayRejected, "authenticity round trip failed").Wrap(err)
	}
	if status != 200 || !strings.EqualFold(strings.TrimSpace(body), "VERIFIED") {
		return gateway.Fail(gateway.CodeGatewayRejected, "gateway did not verify the notification").
			With("http_status", status).
			With("body", body)
	}
	return nil
}

// parseFee reads mc_fee, defaulting to zero when absent or unreadable. The
// default is deliberate: IPN omits mc_fee for some transaction kinds.
func (a *Adapter) parseFee(raw string) decimal.Decimal {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero
	}
	fee, err := money.ParseAmount(raw)
	if err != nil {
		a.Log.Warn().Str("mc_fee", raw).Msg("unreadable mc_fee, defaulting fee to zero")
		return decimal.Zero
	}
	return fee
}

// atomicMarker is an optional upgrade a Store can provide to collapse the
// lookup-then-store pair into one atomic step.
type atomicMarker interface {
	MarkIfNew(ctx context.Context, txnID string) (bool, error)
}

func (a *Adapter) checkDuplicate(ctx context.Context, txnID string) error {
	if txnID == "" {
		return nil
	}
	if marker, ok := a.Txns.(atomicMarker); ok {
		fresh, err := marker.MarkIfNew(ctx, txnID)
		if err != nil {
			return gateway.Fail(gateway.CodeDuplicateTransaction, "duplicate store unavailable").Wrap(err)
		}
		if !fresh {
			return gateway.Fail(gateway.CodeDuplicateTransaction, "transaction already processed").
				With("txn_id", txnID)
		}
		return nil
	}
	seen, err := a.Txns.Seen(ctx, txnID)
	if err != nil {
		return gateway.Fail(gateway.CodeDuplicateTransaction, "duplicate store unavailable").Wrap(err)
	}
	if seen {
		return gateway.Fail(gateway.CodeDuplicateTransaction, "transaction already processed").
			With("txn_id", txnID)
	}
	if err := a.Txns.Mark(ctx, txnID); err != nil {
		return gateway.Fail(gateway.CodeDuplicateTransaction, "duplicate store unavailable").Wrap(err)
	}
	return nil
}

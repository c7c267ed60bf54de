// Package gateway defines the contract every payment gateway adapter satisfies:
// building the signed field set for a redirect payment form, and verifying the
// asynchronous notification the gateway posts back.
package gateway

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
)

// Status tags the terminal outcome of a successful verification.
type Status string

const (
	// StatusVerified means the notification passed every check for a plain payment.
	StatusVerified Status = "verified"
	// StatusRefunded means the notification passed every financial check but
	// describes a refund. Callers must branch on it explicitly to update their
	// own ledgers; it is a recognised terminal state, not an anomaly.
	StatusRefunded Status = "refunded"
)

// Result is the outcome of a verified notification.
type Result struct {
	Status   Status
	Amount   decimal.Decimal
	Currency string
	Fee      decimal.Decimal
	// TxnID carries the gateway transaction identifier when the gateway
	// provides one (PayPal txn_id, Redsys order).
	TxnID string
}

// Refunded reports whether the result is the distinguished refund outcome.
func (r Result) Refunded() bool {
	return r.Status == StatusRefunded
}

// Gateway is implemented by each payment gateway adapter.
type Gateway interface {
	// Name identifies the adapter ("paypal", "redsys", "redsys-sha1").
	Name() string
	// PayURL is the gateway endpoint the redirect form posts to.
	PayURL() string
	// Fields builds the outbound field set for the hidden-field payment form.
	// Amount and currency must be configured; a bad currency is a configuration
	// error surfaced here, before any network interaction.
	Fields() (map[string]string, error)
	// Verify authenticates an inbound notification and cross-checks it against
	// the configured payment. It returns a tagged Result (verified or refunded)
	// or a *VerifyError describing the typed failure.
	Verify(ctx context.Context, p Payload) (Result, error)
}

// Payload holds the raw key/value data a gateway posts back.
type Payload map[string]string

// Get returns the value for key, or the empty string when absent.
func (p Payload) Get(key string) string {
	if p == nil {
		return ""
	}
	return p[key]
}

// Has reports whether key is present with a non-empty value.
func (p Payload) Has(key string) bool {
	return p.Get(key) != ""
}

// PayloadFromForm builds a Payload from the ambient inbound form body, the
// default notification input when the caller does not supply one explicitly.
func PayloadFromForm(r *http.Request) (Payload, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	p := make(Payload, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			p[key] = values[0]
		}
	}
	return p, nil
}

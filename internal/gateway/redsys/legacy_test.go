package redsys_test

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gateway-pay/internal/gateway"
	"github.com/noah-isme/gateway-pay/internal/gateway/redsys"
)

func newLegacyAdapter() *redsys.LegacyAdapter {
	return &redsys.LegacyAdapter{
		Request: gateway.Request{
			Amount:     decimal.RequireFromString("10.50"),
			Currency:   "EUR",
			OrderID:    "77",
			MerchantID: "999008881",
			NotifyURL:  "https://shop.example/notify",
			SuccessURL: "https://shop.example/ok",
			ErrorURL:   "https://shop.example/ko",
			Secret:     "legacy-secret",
		},
	}
}

func legacyDigest(parts ...string) string {
	sum := sha1.Sum([]byte(strings.Join(parts, "")))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func TestLegacyFields(t *testing.T) {
	a := newLegacyAdapter()
	fields, err := a.Fields()
	require.NoError(t, err)

	require.Equal(t, "1050", fields["Ds_Merchant_Amount"])
	require.Equal(t, "0077", fields["Ds_Merchant_Order"])
	require.Equal(t, "978", fields["Ds_Merchant_Currency"])
	require.Equal(t, "0", fields["Ds_Merchant_TransactionType"])
	require.Equal(t, "001", fields["Ds_Merchant_Terminal"])

	want := legacyDigest("1050", "0077", "999008881", "978", "0",
		"https://shop.example/notify", "legacy-secret")
	require.Equal(t, want, fields["Ds_Merchant_MerchantSignature"])
}

func TestLegacyFieldsUnknownCurrency(t *testing.T) {
	a := newLegacyAdapter()
	a.Request.Currency = "XYZ"

	_, err := a.Fields()
	require.Equal(t, gateway.CodeUnknownCurrency, gateway.CodeOf(err))
}

func legacyNotification(response string) gateway.Payload {
	return gateway.Payload{
		"Ds_Amount":   "1050",
		"Ds_Order":    "0077",
		"Ds_Response": response,
		"Ds_Signature": legacyDigest("1050", "0077", "999008881", "978",
			response, "legacy-secret"),
	}
}

func TestLegacyVerifyAuthorized(t *testing.T) {
	a := newLegacyAdapter()

	result, err := a.Verify(context.Background(), legacyNotification("0"))
	require.NoError(t, err)
	require.Equal(t, gateway.StatusVerified, result.Status)
	require.Equal(t, "10.50", result.Amount.StringFixed(2))
	require.Equal(t, "EUR", result.Currency)
	require.True(t, result.Fee.IsZero(), "the legacy scheme computes no fee")
}

func TestLegacyVerifyResponse900(t *testing.T) {
	a := newLegacyAdapter()
	result, err := a.Verify(context.Background(), legacyNotification("900"))
	require.NoError(t, err)
	require.Equal(t, gateway.StatusVerified, result.Status)
}

func TestLegacyVerifyDenied(t *testing.T) {
	a := newLegacyAdapter()
	_, err := a.Verify(context.Background(), legacyNotification("101"))
	require.Equal(t, gateway.CodeGatewayDenied, gateway.CodeOf(err))
}

func TestLegacyVerifySignatureMismatch(t *testing.T) {
	a := newLegacyAdapter()
	p := legacyNotification("0")
	p["Ds_Signature"] = legacyDigest("tampered")

	_, err := a.Verify(context.Background(), p)
	require.Equal(t, gateway.CodeSignatureMismatch, gateway.CodeOf(err))
}

func TestLegacyVerifyAmountMismatch(t *testing.T) {
	a := newLegacyAdapter()
	a.Request.Amount = decimal.RequireFromString("99.99")

	_, err := a.Verify(context.Background(), legacyNotification("0"))
	require.Equal(t, gateway.CodeAmountMismatch, gateway.CodeOf(err))
}

func TestLegacyVerifyMissingFields(t *testing.T) {
	a := newLegacyAdapter()
	_, err := a.Verify(context.Background(), gateway.Payload{"Ds_Amount": "1050"})
	require.Equal(t, gateway.CodeMissingFields, gateway.CodeOf(err))
}

package server_test

import (
	"bytes"
	"context"
	"crypto/cipher"
	"crypto/des"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gateway-pay/internal/gateway"
	"github.com/noah-isme/gateway-pay/internal/gateway/paypal"
	"github.com/noah-isme/gateway-pay/internal/gateway/redsys"
	"github.com/noah-isme/gateway-pay/internal/obs"
	"github.com/noah-isme/gateway-pay/internal/server"
)

const testSecret = "sq7HjrUOBfKmC576ILgskD5srU870gJ7"

type okPoster struct{ body string }

func (p okPoster) Post(context.Context, string, url.Values) (int, string, error) {
	return 200, p.body, nil
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	redsysAdapter := &redsys.Adapter{
		Request: gateway.Request{
			Amount:     decimal.RequireFromString("10.50"),
			Currency:   "EUR",
			OrderID:    "77",
			MerchantID: "999008881",
			NotifyURL:  "https://shop.example/notify",
			Secret:     testSecret,
		},
		Sandbox: true,
	}
	paypalAdapter := &paypal.Adapter{
		Request: gateway.Request{
			Amount:     decimal.RequireFromString("10.00"),
			Currency:   "EUR",
			OrderID:    "ORDER-1",
			MerchantID: "m@x.com",
			NotifyURL:  "https://shop.example/notify",
		},
		Poster: okPoster{body: "VERIFIED"},
	}
	handler := &server.Handler{
		Gateways: map[string]gateway.Gateway{
			"redsys": redsysAdapter,
			"paypal": paypalAdapter,
		},
		Log: zerolog.Nop(),
	}
	return server.NewRouter(server.RouterConfig{
		Handler:       handler,
		RequestLogger: obs.RequestLogger{Logger: zerolog.Nop()},
	})
}

func signedRedsysForm(t *testing.T, response, transactionType string) url.Values {
	t.Helper()
	raw, err := json.Marshal(map[string]string{
		"Ds_Amount":          "1050",
		"Ds_Order":           "0077",
		"Ds_Currency":        "978",
		"Ds_Response":        response,
		"Ds_TransactionType": transactionType,
	})
	require.NoError(t, err)
	encoded := base64.StdEncoding.EncodeToString(raw)
	return url.Values{
		"Ds_MerchantParameters": {encoded},
		"Ds_Signature":          {signParams(t, "0077", encoded)},
	}
}

// signParams replicates the SIS reference signing: the order id 3DES-encrypted
// under the decoded secret becomes the HMAC-SHA256 key over the encoded params.
func signParams(t *testing.T, order, encodedParams string) string {
	t.Helper()
	key, err := base64.StdEncoding.DecodeString(testSecret)
	require.NoError(t, err)
	block, err := des.NewTripleDESCipher(key)
	require.NoError(t, err)

	plain := []byte(order)
	padding := block.BlockSize() - len(plain)%block.BlockSize()
	plain = append(plain, bytes.Repeat([]byte{0}, padding)...)
	derived := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, make([]byte, block.BlockSize())).CryptBlocks(derived, plain)

	mac := hmac.New(sha256.New, derived)
	mac.Write([]byte(encodedParams))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func postForm(t *testing.T, router http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestNotifyRedsysVerified(t *testing.T) {
	router := newRouter(t)
	rec := postForm(t, router, "/v1/notify/redsys", signedRedsysForm(t, "0000", "0"))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "verified", body["status"])
	require.Equal(t, false, body["refunded"])
	require.Equal(t, "10.5", body["amount"])
}

func TestNotifyRedsysRefunded(t *testing.T) {
	router := newRouter(t)
	rec := postForm(t, router, "/v1/notify/redsys", signedRedsysForm(t, "0900", "3"))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "refunded", body["status"])
	require.Equal(t, true, body["refunded"])
}

func TestNotifyRedsysTamperedSignature(t *testing.T) {
	router := newRouter(t)
	form := signedRedsysForm(t, "0000", "0")
	form.Set("Ds_Signature", base64.StdEncoding.EncodeToString(make([]byte, 32)))

	rec := postForm(t, router, "/v1/notify/redsys", form)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "SIGNATURE_MISMATCH")
}

func TestNotifyRedsysDenied(t *testing.T) {
	router := newRouter(t)
	rec := postForm(t, router, "/v1/notify/redsys", signedRedsysForm(t, "0101", "0"))
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	require.Contains(t, rec.Body.String(), "GATEWAY_DENIED")
}

func TestNotifyPayPalCompleted(t *testing.T) {
	router := newRouter(t)
	rec := postForm(t, router, "/v1/notify/paypal", url.Values{
		"receiver_email": {"m@x.com"},
		"payment_status": {"Completed"},
		"mc_gross":       {"10.00"},
		"mc_currency":    {"EUR"},
		"mc_fee":         {"0.64"},
		"txn_id":         {"TXN-9"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "verified", body["status"])
	require.Equal(t, "0.64", body["fee"])
	require.Equal(t, "TXN-9", body["txnId"])
}

func TestNotifyUnknownGateway(t *testing.T) {
	router := newRouter(t)
	rec := postForm(t, router, "/v1/notify/stripe", url.Values{})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFieldsPayPal(t *testing.T) {
	router := newRouter(t)
	rec := postForm(t, router, "/v1/payments/paypal/fields", url.Values{})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		PayURL string            `json:"payUrl"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, paypal.URLProduction, body.PayURL)
	require.Equal(t, "_xclick", body.Fields["cmd"])
	require.Equal(t, "10.00", body.Fields["amount"])
}

func TestFieldsPayPalAmountOverride(t *testing.T) {
	router := newRouter(t)
	rec := postForm(t, router, "/v1/payments/paypal/fields", url.Values{
		"amount":  {"42.50"},
		"orderId": {"ORDER-42"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "42.50", body.Fields["amount"])
	require.Equal(t, "ORDER-42", body.Fields["custom"])
}

func TestFieldsBadAmount(t *testing.T) {
	router := newRouter(t)
	rec := postForm(t, router, "/v1/payments/paypal/fields", url.Values{
		"amount": {"not-a-number"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "INVALID_AMOUNT")
}

func TestFieldsRedsysEnvelope(t *testing.T) {
	router := newRouter(t)
	rec := postForm(t, router, "/v1/payments/redsys/fields", url.Values{})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		PayURL string            `json:"payUrl"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, redsys.URLTest, body.PayURL)
	require.Equal(t, redsys.SignatureVersion, body.Fields["Ds_SignatureVersion"])
	require.NotEmpty(t, body.Fields["Ds_Signature"])
}

func TestHealthz(t *testing.T) {
	router := newRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

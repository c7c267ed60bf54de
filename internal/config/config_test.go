package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gateway-pay/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"PAYPAL_BUSINESS":      "merchant@example.com",
		"REDSYS_MERCHANT_CODE": "",
		"REDSYS_SECRET":        "",
		"PORT":                 "",
		"REDSYS_SIGNATURE":     "",
	})
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, "hmac", cfg.RedsysSignature)
	require.Equal(t, "120-M", cfg.RateLimit)
}

func TestLoadRequiresAGateway(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"PAYPAL_BUSINESS":      "",
		"REDSYS_MERCHANT_CODE": "",
		"REDSYS_SECRET":        "",
	})
	require.Error(t, err)
}

func TestLoadRejectsBadBusinessEmail(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"PAYPAL_BUSINESS":      "not-an-email",
		"REDSYS_MERCHANT_CODE": "",
		"REDSYS_SECRET":        "",
	})
	require.Error(t, err)
}

func TestLoadRejectsRedsysWithoutSecret(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"PAYPAL_BUSINESS":      "",
		"REDSYS_MERCHANT_CODE": "999008881",
		"REDSYS_SECRET":        "",
	})
	require.Error(t, err)
}

func TestLoadRejectsUnknownSignatureScheme(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"PAYPAL_BUSINESS":      "merchant@example.com",
		"REDSYS_MERCHANT_CODE": "",
		"REDSYS_SECRET":        "",
		"REDSYS_SIGNATURE":     "md5",
	})
	require.Error(t, err)
}

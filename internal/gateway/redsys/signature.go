package redsys

import (
	"bytes"
	"crypto/cipher"
	"crypto/des"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

// zeroIV is the 3DES CBC initialisation vector fixed by the Redsys reference
// implementation.
var zeroIV = []byte{0, 0, 0, 0, 0, 0, 0, 0}

// deriveOrderKey derives the per-order signing key: the order id encrypted
// with 3DES-CBC under the merchant's base64-decoded secret, zero padded to the
// cipher block size.
func deriveOrderKey(secret, order string) ([]byte, error) {
	if order == "" {
		return nil, errors.New("order cannot be empty")
	}
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}
	block, err := des.NewTripleDESCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	plain := []byte(order)
	padding := block.BlockSize() - len(plain)%block.BlockSize()
	plain = append(plain, bytes.Repeat([]byte{0}, padding)...)

	encrypted := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, zeroIV).CryptBlocks(encrypted, plain)
	return encrypted, nil
}

// sign computes the HMAC-SHA256 of the encoded merchant parameters under the
// per-order derived key and returns it base64 encoded.
func sign(secret, order, encodedParams string) (string, error) {
	key, err := deriveOrderKey(secret, order)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(encodedParams))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// signatureEqual compares two base64 signatures byte-wise, tolerating the
// URL-safe alphabet Redsys uses on notifications.
func signatureEqual(expected, received string) bool {
	a, err := decodeBase64(expected)
	if err != nil {
		return false
	}
	b, err := decodeBase64(received)
	if err != nil {
		return false
	}
	return hmac.Equal(a, b)
}

// decodeBase64 accepts both the standard and URL-safe alphabets, with or
// without padding.
func decodeBase64(value string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	} {
		if decoded, err := enc.DecodeString(value); err == nil {
			return decoded, nil
		}
	}
	return nil, fmt.Errorf("undecodable base64 value")
}

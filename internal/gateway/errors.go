package gateway

import (
	"errors"
	"fmt"
)

// Code classifies a verification failure.
type Code string

const (
	CodeMerchantMismatch          Code = "MERCHANT_MISMATCH"
	CodeUnexpectedStatus          Code = "UNEXPECTED_STATUS"
	CodeAmountMismatch            Code = "AMOUNT_MISMATCH"
	CodeMissingFields             Code = "MISSING_FIELDS"
	CodeSignatureMismatch         Code = "SIGNATURE_MISMATCH"
	CodeGatewayDenied             Code = "GATEWAY_DENIED"
	CodeGatewayRejected           Code = "GATEWAY_REJECTED"
	CodeDuplicateTransaction      Code = "DUPLICATE_TRANSACTION"
	CodeUnexpectedTransactionType Code = "UNEXPECTED_TRANSACTION_TYPE"
	CodeUnknownCurrency           Code = "UNKNOWN_CURRENCY"
)

// VerifyError is a typed verification failure carrying enough context to debug
// without re-deriving it.
type VerifyError struct {
	Code    Code
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *VerifyError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *VerifyError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Fail constructs a VerifyError.
func Fail(code Code, message string) *VerifyError {
	return &VerifyError{Code: code, Message: message}
}

// With attaches a detail value and returns the error for chaining.
func (e *VerifyError) With(key string, value any) *VerifyError {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// Wrap attaches an underlying cause.
func (e *VerifyError) Wrap(err error) *VerifyError {
	e.Err = err
	return e
}

// CodeOf extracts the failure code from an error chain, or "" when the error
// is not a VerifyError.
func CodeOf(err error) Code {
	var ve *VerifyError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}

// Package common holds the JSON response envelope shared by all handlers.
package common

import (
	"encoding/json"
	"net/http"
)

// APIError is the error payload every failing endpoint returns. Code carries
// the machine-readable verification failure code; Details the debugging
// context attached to it.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError renders a failure in the canonical error envelope.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, map[string]any{
		"error": APIError{Code: code, Message: message, Details: details},
	})
}

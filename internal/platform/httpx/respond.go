// Package httpx provides HTTP response utilities following RFC7807 problem details.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Stable error kinds exposed to API consumers so they can branch on the
// failure without parsing messages.
const (
	KindValidation          = "validation_error"
	KindInvalidTransition   = "invalid_transition"
	KindInsufficientStock   = "insufficient_stock"
	KindCreditLimitExceeded = "credit_limit_exceeded"
	KindAllocationConflict  = "allocation_conflict"
	KindNotFound            = "not_found"
)

// ProblemDetail represents RFC7807 problem details with an enumerable kind.
type ProblemDetail struct {
	Kind   string `json:"kind,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem sends an RFC7807 problem details response without a kind.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	JSON(w, status, ProblemDetail{
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// ProblemKind sends a problem details response tagged with an error kind.
func ProblemKind(w http.ResponseWriter, status int, kind, title, detail string) {
	JSON(w, status, ProblemDetail{
		Kind:   kind,
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}

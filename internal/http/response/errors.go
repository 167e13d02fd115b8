package response

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/wanderstay/wanderstay-bookings/internal/domain"
)

// ErrorResponse represents a structured JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// WriteError writes a structured JSON error response
func WriteError(w http.ResponseWriter, statusCode int, message string, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errResp := ErrorResponse{
		Error: message,
		Code:  code,
	}

	if err := json.NewEncoder(w).Encode(errResp); err != nil {
		log.Printf("failed to encode error response: %v", err)
	}
}

// Common error codes
const (
	CodeInvalidInput  = "INVALID_INPUT"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeBookingRule   = "BOOKING_RULE"
	CodeInternalError = "INTERNAL_ERROR"
)

// WriteDomainError maps the service error taxonomy onto HTTP. Internal
// details never cross the boundary; only the kind and message do.
func WriteDomainError(w http.ResponseWriter, err error) {
	de := domain.AsError(err)
	switch de.Kind {
	case domain.KindValidation:
		WriteError(w, http.StatusBadRequest, de.Message, CodeInvalidInput)
	case domain.KindNotFound:
		WriteError(w, http.StatusNotFound, de.Message, CodeNotFound)
	case domain.KindConflict:
		WriteError(w, http.StatusConflict, de.Message, CodeConflict)
	case domain.KindBooking:
		WriteError(w, http.StatusUnprocessableEntity, de.Message, CodeBookingRule)
	default:
		log.Printf("internal error: %v", de)
		WriteError(w, http.StatusInternalServerError, "internal error", CodeInternalError)
	}
}

// Convenience functions for common errors
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, CodeInvalidInput)
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message, CodeUnauthorized)
}

func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message, CodeForbidden)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message, CodeNotFound)
}

func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message, CodeInternalError)
}

func Conflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, message, CodeConflict)
}

// WriteJSON writes a JSON body with the given status
func WriteJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

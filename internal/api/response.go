package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/askdocs/internal/domain"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainErrorToHTTP maps domain errors to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}

	switch domain.CodeOf(err) {
	case domain.ErrCodeValidation, domain.ErrCodeInvalidQuery:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes an appropriate error response based on the error type.
// Domain errors expose their message and code; anything else is reported as
// an internal error without details.
func HandleError(w http.ResponseWriter, err error) {
	status := DomainErrorToHTTP(err)

	var de *domain.DomainError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &de):
		JSON(w, status, ErrorResponse{Error: de.Message, Code: de.Code})
	case errors.As(err, &tooLarge):
		HandleError(w, domain.NewPayloadTooLargeError(tooLarge.Limit))
	default:
		JSON(w, status, ErrorResponse{Error: "internal server error", Code: domain.ErrCodeInternalError})
	}
}

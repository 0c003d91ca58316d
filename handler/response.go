package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SendJSONError sends a JSON error response
func SendJSONError(w http.ResponseWriter, statusCode int, err error, message string) {
	SendJSON(w, statusCode, ErrorResponse{
		Error:   err.Error(),
		Message: message,
	})
}

// SendJSON sends data as a JSON response with statusCode
func SendJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

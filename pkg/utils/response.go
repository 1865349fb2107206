package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// RespondJSON writes payload as JSON with the given status. When payload
// cannot be encoded a 500 error body is written instead and the encode error
// is returned for the caller to log.
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, []byte(`{"error":"failed to encode response"}`))
		return fmt.Errorf("encode response: %w", err)
	}
	writeJSON(w, status, body)
	return nil
}

// RespondError writes {"error": message}.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondErrorDetails(w, status, message, "")
}

// RespondErrorDetails writes an error with optional diagnostic details.
func RespondErrorDetails(w http.ResponseWriter, status int, message, details string) {
	body, _ := json.Marshal(ErrorBody{Error: message, Details: details})
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

package middleware

import (
	"encoding/json"
	"net/http"
)

type errorPayload struct {
	Error struct {
		Code    string   `json:"code"`
		Message string   `json:"message"`
		Details []string `json:"details,omitempty"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

// WriteError writes the standard error envelope. Details are omitted when
// empty.
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string, details ...string) {
	payload := errorPayload{RequestID: GetRequestID(r.Context())}
	payload.Error.Code = code
	payload.Error.Message = message
	payload.Error.Details = details

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

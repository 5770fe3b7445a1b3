package httputil

import (
	"encoding/json"
	"net/http"
)

// Envelope is the body of every API response. Result is null when there is
// nothing to return.
type Envelope struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Result  any    `json:"result"`
}

// RespondJSON writes a JSON response with the given status code.
// It marshals first so an encoding failure never leaves a partial response.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

// RespondOK writes a successful envelope.
func RespondOK(w http.ResponseWriter, status int, message string, result any) {
	RespondJSON(w, status, Envelope{Message: message, Result: result})
}

// RespondError writes an error envelope with a null result.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondErrorWithResult(w, status, message, nil)
}

// RespondErrorWithResult writes an error envelope carrying a result, used by
// list endpoints that answer 404 with an empty list.
func RespondErrorWithResult(w http.ResponseWriter, status int, message string, result any) {
	payload, err := json.Marshal(Envelope{Error: true, Message: message, Result: result})
	if err != nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

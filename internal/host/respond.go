package host

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	Error string `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
}

// RespondJSON writes payload as JSON with the given status.
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

// RespondMessage writes {"message": msg}.
func RespondMessage(w http.ResponseWriter, status int, msg string) {
	RespondJSON(w, status, messageBody{Message: msg})
}

// RespondError writes {"error": msg}.
func RespondError(w http.ResponseWriter, status int, msg string) {
	RespondJSON(w, status, errorBody{Error: msg})
}

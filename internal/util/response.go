package util

import (
	"encoding/json"
	"net/http"
)

// Envelope is the response convention shared by the gateway and its
// backends: a success flag, an optional data payload, and optional
// message/error fields.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success builds a successful envelope carrying data.
func Success(data interface{}) Envelope {
	return Envelope{Success: true, Data: data}
}

// SuccessMessage builds a successful envelope carrying a message only.
func SuccessMessage(message string) Envelope {
	return Envelope{Success: true, Message: message}
}

// Fail builds a failed envelope carrying an error description.
func Fail(errMsg string) Envelope {
	return Envelope{Success: false, Error: errMsg}
}

// WriteJSON writes an envelope to a plain http.ResponseWriter. Handlers
// running outside gin (the proxy fast-fail paths) use this directly.
func WriteJSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

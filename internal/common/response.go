package common

import (
	"encoding/json"
	"net/http"
)

// JSON writes v with the given status. Encoding failures are ignored: the
// header is already on the wire by then.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError renders the canonical error envelope.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	WriteAppError(w, &AppError{Code: code, Message: message, HTTPStatus: status, Details: details})
}

// WriteAppError renders an AppError as the canonical envelope. Internal
// causes never reach the response body.
func WriteAppError(w http.ResponseWriter, app *AppError) {
	status := app.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	type body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details any    `json:"details,omitempty"`
	}
	JSON(w, status, map[string]any{"error": body{
		Code:    app.Code,
		Message: app.Message,
		Details: app.Details,
	}})
}

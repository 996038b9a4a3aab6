package http

import (
	"encoding/json"
	"net/http"
)

// Every response body carries a "success" boolean discriminator. Error bodies
// add a machine-readable code; validation errors add a field list.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, statusCode int, fields map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, statusCode, body)
}

func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{
		"success": true,
		"message": message,
	})
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, map[string]any{
		"success": false,
		"code":    code,
		"message": message,
	})
}

func writeFieldErrors(w http.ResponseWriter, code, message string, fieldErrors []string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"success": false,
		"code":    code,
		"message": message,
		"errors":  fieldErrors,
	})
}

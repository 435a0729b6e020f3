package httpapi

import (
	"encoding/json"
	"net/http"
)

// Все ответы сервиса - JSON с top-level полем success
// Ошибки несут generic сообщение: детали upstream ошибок остаются в логах

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{
		"success": false,
		"error":   message,
	})
}

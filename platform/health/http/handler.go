package http

import (
	"encoding/json"
	"net/http"
	"time"
)

// Handler возвращает HTTP handler для health check endpoint.
// Возвращает 200 OK с JSON телом {"success":true,...} если readiness функция
// не указана или возвращает true.
// Возвращает 503 Service Unavailable если readiness функция возвращает false.
func Handler(readiness func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if readiness != nil && !readiness() {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"message": "Server is not ready",
			})
			return
		}

		json.NewEncoder(w).Encode(map[string]any{
			"success":   true,
			"message":   "Server is running",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

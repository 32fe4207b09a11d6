package handler

import (
	"encoding/json"
	"net/http"
)

// HealthCheckHandler returns HTTP 200 with the loaded model version. It can
// be used for health checks by Docker or other services.
func HealthCheckHandler(version func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{"status": "ok"}
		if version != nil {
			body["model_version"] = version()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(body)
	}
}

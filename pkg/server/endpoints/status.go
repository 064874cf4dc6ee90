package endpoints

import (
	"context"
	"net/http"
	"time"

	"github.com/saltinventory/minion-inventory/pkg/server"
)

// StatusResponse represents the response from /status
type StatusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// RegisterStatusEndpoints registers the unauthenticated health endpoint
func RegisterStatusEndpoints(s *server.Server) {
	s.Router.HandleFunc("/status", handleStatus(s.Health)).Methods("GET")
}

func handleStatus(health server.HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := health.Ping(ctx); err != nil {
			respondWithJSON(w, http.StatusServiceUnavailable, StatusResponse{
				Status: "error",
				Error:  "database connectivity check failed",
			})
			return
		}
		respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
	}
}

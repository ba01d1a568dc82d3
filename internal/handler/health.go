package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// DBPinger is the interface for checking database connectivity.
type DBPinger interface {
	Ping(ctx context.Context) error
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Root returns a handler for GET / — an unauthenticated liveness marker.
func Root(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, statusResponse{
			Status:  "ok",
			Message: "docforge ingestion engine v" + version,
		})
	}
}

// HealthCheck returns a handler for GET /health/. Status is "healthy" when
// the database answers a ping, "degraded" when db is unset (no dependency
// configured to check), and "unhealthy" when the ping fails.
func HealthCheck(db DBPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if db == nil {
			respondJSON(w, http.StatusOK, statusResponse{Status: "degraded", Message: "no database configured"})
			return
		}

		if err := db.Ping(ctx); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "unhealthy", Message: err.Error()})
			return
		}

		respondJSON(w, http.StatusOK, statusResponse{Status: "healthy", Message: "ok"})
	}
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

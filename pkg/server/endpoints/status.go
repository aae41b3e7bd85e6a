package endpoints

import (
	"net/http"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/doodlesbykumbi/tenant-authz/pkg/server"
	"github.com/doodlesbykumbi/tenant-authz/pkg/server/store"
)

// StatusResponse represents the response from / and /ready
type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// RegisterStatusEndpoints registers the status and readiness endpoints
func RegisterStatusEndpoints(s *server.Server) {
	// GET / - liveness, no store access
	s.Router.HandleFunc("/", handleStatus()).Methods("GET")

	// GET /ready - the membership tables answer a query
	s.Router.HandleFunc("/ready", handleReady(s.HealthStore)).Methods("GET")
}

func handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := os.Getenv("TENANT_AUTHZ_VERSION")
		if version == "" {
			version = "0.1.0"
		}
		respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok", Version: version})
	}
}

func handleReady(healthStore store.HealthStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := healthStore.CheckReadiness(r.Context()); err != nil {
			log.WithError(err).Warn("readiness check failed")
			respondWithError(w, http.StatusServiceUnavailable, "membership store unavailable")
			return
		}
		respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ready"})
	}
}

package endpoints

import (
	"net/http"
	"os"

	"github.com/doodlesbykumbi/keyvault/pkg/logging"
	"github.com/doodlesbykumbi/keyvault/pkg/server"
	"github.com/doodlesbykumbi/keyvault/pkg/server/store"
)

// HealthResponse represents the response from /healthz
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// RegisterStatusEndpoints registers the health endpoint (no auth required)
func RegisterStatusEndpoints(s *server.Server) {
	s.Router.HandleFunc("/healthz", handleHealth(s.HealthStore, s.Logger)).Methods("GET")
}

func version() string {
	if v := os.Getenv("KEYVAULT_VERSION_DISPLAY"); v != "" {
		return v
	}
	return "0.1.0"
}

func handleHealth(health store.HealthStore, logger logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok", Version: version(), Database: "ok"}
		if err := health.CheckConnectivity(r.Context()); err != nil {
			logger.Warn(r.Context(), "health check failed", "error", err)
			resp.Status = "unavailable"
			resp.Database = "unreachable"
			respondWithJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		respondWithJSON(w, http.StatusOK, resp)
	}
}

package endpoints

import (
	"github.com/doodlesbykumbi/keyvault/pkg/metrics"
	"github.com/doodlesbykumbi/keyvault/pkg/server"
)

// RegisterAll registers all API endpoints on the server
func RegisterAll(s *server.Server) {
	RegisterStatusEndpoints(s)
	RegisterAuthEndpoints(s)
	RegisterUsersEndpoints(s)
	RegisterProjectsEndpoints(s)
	RegisterSecretsEndpoints(s)
	RegisterMembershipsEndpoints(s)
	RegisterActivityEndpoints(s)

	if s.Config != nil && s.Config.MetricsEnabled {
		s.Router.Handle("/metrics", metrics.Handler()).Methods("GET")
	}
}

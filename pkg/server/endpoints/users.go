package endpoints

import (
	"net/http"

	"github.com/doodlesbykumbi/keyvault/pkg/logging"
	"github.com/doodlesbykumbi/keyvault/pkg/server"
	"github.com/doodlesbykumbi/keyvault/pkg/server/store"
)

func RegisterUsersEndpoints(s *server.Server) {
	s.Router.Handle("/api/users", s.Protected(handleListUsers(s.UsersStore, s.Logger))).Methods("GET")
}

func handleListUsers(users store.UsersStore, logger logging.Logger) http.HandlerFunc {
	return handle(logger, func(w http.ResponseWriter, r *http.Request) error {
		if _, err := caller(r); err != nil {
			return err
		}
		list, err := users.ListUsers(r.Context())
		if err != nil {
			return err
		}
		respondWithJSON(w, http.StatusOK, list)
		return nil
	})
}

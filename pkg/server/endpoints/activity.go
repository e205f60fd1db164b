package endpoints

import (
	"net/http"

	"github.com/doodlesbykumbi/keyvault/pkg/activity"
	"github.com/doodlesbykumbi/keyvault/pkg/logging"
	"github.com/doodlesbykumbi/keyvault/pkg/server"
)

func RegisterActivityEndpoints(s *server.Server) {
	clamp := limitClamp(s)

	s.Router.Handle("/api/activity-logs", s.Protected(handleActivityLogs(s.Activity, clamp, s.Logger))).Methods("GET")
	s.Router.Handle("/api/users/{id}/activity-logs", s.Protected(handleUserActivityLogs(s.Activity, clamp, s.Logger))).Methods("GET")
}

// handleActivityLogs returns every entry to global admins and only the
// caller's own entries to everyone else.
func handleActivityLogs(recorder *activity.Recorder, clamp func(int) int, logger logging.Logger) http.HandlerFunc {
	return handle(logger, func(w http.ResponseWriter, r *http.Request) error {
		id, err := caller(r)
		if err != nil {
			return err
		}
		limit, err := limitParam(r, clamp)
		if err != nil {
			return err
		}

		var entries []activity.Entry
		if id.User.IsAdmin() {
			entries, err = recorder.GetLogs(r.Context(), limit)
		} else {
			entries, err = recorder.GetUserLogs(r.Context(), id.UserID(), limit)
		}
		if err != nil {
			return err
		}
		respondWithJSON(w, http.StatusOK, nonNilEntries(entries))
		return nil
	})
}

func handleUserActivityLogs(recorder *activity.Recorder, clamp func(int) int, logger logging.Logger) http.HandlerFunc {
	return handle(logger, func(w http.ResponseWriter, r *http.Request) error {
		id, err := caller(r)
		if err != nil {
			return err
		}
		userID, err := pathID(r, "id")
		if err != nil {
			return err
		}
		if userID != id.UserID() && !id.User.IsAdmin() {
			return errForbidden
		}
		limit, err := limitParam(r, clamp)
		if err != nil {
			return err
		}

		entries, err := recorder.GetUserLogs(r.Context(), userID, limit)
		if err != nil {
			return err
		}
		respondWithJSON(w, http.StatusOK, nonNilEntries(entries))
		return nil
	})
}

func nonNilEntries(entries []activity.Entry) []activity.Entry {
	if entries == nil {
		return []activity.Entry{}
	}
	return entries
}

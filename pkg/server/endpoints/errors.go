package endpoints

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/doodlesbykumbi/keyvault/pkg/logging"
	"github.com/doodlesbykumbi/keyvault/pkg/secrets"
	"github.com/doodlesbykumbi/keyvault/pkg/server/store"
)

var (
	errBadRequest      = errors.New("bad request")
	errUnauthenticated = errors.New("authentication required")
	errForbidden       = errors.New("forbidden")
)

func badRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// statusFor classifies err into an HTTP status and the message shown to the
// client. Anything unrecognized is a 500 with a generic message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, secrets.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized, "Authentication required"
	case errors.Is(err, errForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "Already exists"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// writeError responds with the classified status. Server errors are logged
// with their cause, which is never sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	code, message := statusFor(err)
	if code == http.StatusInternalServerError {
		logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	respondWithError(w, code, map[string]string{"message": message})
}

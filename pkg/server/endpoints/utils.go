package endpoints

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/doodlesbykumbi/keyvault/pkg/identity"
	"github.com/doodlesbykumbi/keyvault/pkg/logging"
	"github.com/doodlesbykumbi/keyvault/pkg/server"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

func respondWithError(w http.ResponseWriter, code int, payload interface{}) {
	respondWithJSON(w, code, map[string]interface{}{"error": payload})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// decodeJSON reads a JSON body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("malformed JSON body: %v", err)
	}
	return nil
}

// pathID parses the named mux variable as a positive integer ID.
func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return id, nil
}

// limitParam reads ?limit= and clamps it with clamp. A missing limit is 0,
// which clamp turns into the maximum.
func limitParam(r *http.Request, clamp func(int) int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return clamp(0), nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, badRequest("invalid limit %q", raw)
	}
	return clamp(limit), nil
}

// caller returns the authenticated identity of the request.
func caller(r *http.Request) (*identity.Identity, error) {
	id, ok := identity.Get(r.Context())
	if !ok {
		return nil, fmt.Errorf("%w: no identity in request context", errUnauthenticated)
	}
	return id, nil
}

// apiHandler is a handler whose errors are classified by writeError.
type apiHandler func(w http.ResponseWriter, r *http.Request) error

func handle(logger logging.Logger, h apiHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			writeError(w, r, logger, err)
		}
	}
}

// limitClamp returns the configured limit cap as a function.
func limitClamp(s *server.Server) func(int) int {
	if s.Config == nil {
		return func(requested int) int {
			if requested <= 0 || requested > defaultLimitMax {
				return defaultLimitMax
			}
			return requested
		}
	}
	return s.Config.ClampLimit
}

const defaultLimitMax = 1000

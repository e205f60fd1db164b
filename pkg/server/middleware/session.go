package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/doodlesbykumbi/keyvault/pkg/identity"
	"github.com/doodlesbykumbi/keyvault/pkg/logging"
	"github.com/doodlesbykumbi/keyvault/pkg/server/store"
	"github.com/doodlesbykumbi/keyvault/pkg/session"
)

// TokenParser resolves a session token to a user ID.
type TokenParser interface {
	Parse(token string) (int64, error)
}

// SessionAuthenticator is middleware that validates session tokens and puts
// the caller's identity in the request context.
type SessionAuthenticator struct {
	Tokens TokenParser
	Users  store.UsersStore
	Logger logging.Logger

	// TrustedProxy reports whether X-Forwarded-For from a peer is honored.
	TrustedProxy func(ip string) bool
}

// NewSessionAuthenticator creates a new session authenticator middleware
func NewSessionAuthenticator(tokens TokenParser, users store.UsersStore, logger logging.Logger) *SessionAuthenticator {
	if logger == nil {
		logger = logging.Default()
	}
	return &SessionAuthenticator{Tokens: tokens, Users: users, Logger: logger}
}

// Middleware returns an HTTP middleware that rejects unauthenticated
// requests with 401.
func (a *SessionAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := session.TokenFromRequest(r)
		if err != nil {
			if errors.Is(err, session.ErrNoToken) {
				unauthorized(w, "Authentication required")
			} else {
				unauthorized(w, "Malformed authorization header")
			}
			return
		}

		userID, err := a.Tokens.Parse(token)
		if err != nil {
			unauthorized(w, "Invalid or expired session")
			return
		}

		user, err := a.Users.GetUser(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				unauthorized(w, "Invalid or expired session")
				return
			}
			a.Logger.Error(r.Context(), "session user lookup failed", "user_id", userID, "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(errorBody("Internal server error"))
			return
		}

		id := identity.New(user).WithRemoteIP(identity.RemoteIP(r, a.TrustedProxy))
		next.ServeHTTP(w, r.WithContext(identity.Set(r.Context(), id)))
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="keyvault"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(errorBody(message))
}

func errorBody(message string) map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]string{"message": message},
	}
}

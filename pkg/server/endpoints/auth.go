package endpoints

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/doodlesbykumbi/keyvault/pkg/activity"
	"github.com/doodlesbykumbi/keyvault/pkg/audit"
	"github.com/doodlesbykumbi/keyvault/pkg/identity"
	"github.com/doodlesbykumbi/keyvault/pkg/logging"
	"github.com/doodlesbykumbi/keyvault/pkg/model"
	"github.com/doodlesbykumbi/keyvault/pkg/password"
	"github.com/doodlesbykumbi/keyvault/pkg/server"
	"github.com/doodlesbykumbi/keyvault/pkg/server/store"
	"github.com/doodlesbykumbi/keyvault/pkg/session"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]{3,64}$`)

// RegisterRequest is the body of POST /api/register
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

// LoginRequest is the body of POST /api/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionResponse is returned by register and login
type SessionResponse struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// sessionStarter issues a token and sets the session cookie.
type sessionStarter struct {
	issuer *session.Issuer
	secure bool
}

func (s sessionStarter) start(w http.ResponseWriter, user *model.User) (*SessionResponse, error) {
	token, expires, err := s.issuer.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, session.Cookie(token, expires, s.secure))
	return &SessionResponse{User: user, Token: token, ExpiresAt: expires}, nil
}

func RegisterAuthEndpoints(s *server.Server) {
	starter := sessionStarter{issuer: s.Sessions, secure: true}
	var trusted func(string) bool
	if s.Config != nil {
		starter.secure = s.Config.SessionCookieSecure
		trusted = s.Config.IsTrustedProxy
	}
	r := s.Router

	r.HandleFunc("/api/register", handleRegister(s.UsersStore, s.Activity, starter, s.Logger)).Methods("POST")
	r.HandleFunc("/api/login", handleLogin(s.UsersStore, starter, s.AuditLog, trusted, s.Logger)).Methods("POST")
	r.Handle("/api/logout", s.Protected(handleLogout(starter.secure))).Methods("POST")
	r.Handle("/api/user", s.Protected(handleCurrentUser(s.Logger))).Methods("GET")
}

func (req *RegisterRequest) validate() error {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)

	if !usernamePattern.MatchString(req.Username) {
		return badRequest("username must be 3 to 64 letters, digits, '_', '.' or '-'")
	}
	if len(req.Password) < 8 {
		return badRequest("password must be at least 8 characters")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return badRequest("invalid email address")
	}
	return nil
}

func handleRegister(users store.UsersStore, recorder *activity.Recorder, starter sessionStarter, logger logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		if err := req.validate(); err != nil {
			writeError(w, r, logger, err)
			return
		}

		hashed, err := password.Hash(req.Password)
		if err != nil {
			if errors.Is(err, password.ErrTooLong) {
				err = badRequest("password must be at most 72 bytes")
			}
			writeError(w, r, logger, err)
			return
		}

		user := &model.User{
			Username: req.Username,
			Password: hashed,
			Email:    req.Email,
			FullName: req.FullName,
			Role:     model.GlobalRoleUser,
		}
		if err := users.CreateUser(r.Context(), user); err != nil {
			writeError(w, r, logger, err)
			return
		}

		if _, err := recorder.Record(r.Context(), user.ID, model.ActionCreated, model.ResourceUser, user.ID, "registered"); err != nil {
			writeError(w, r, logger, err)
			return
		}

		resp, err := starter.start(w, user)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondWithJSON(w, http.StatusCreated, resp)
	}
}

func handleLogin(users store.UsersStore, starter sessionStarter, auditLog func(ctx context.Context, event audit.Event), trusted func(ip string) bool, logger logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}

		clientIP := identity.RemoteIP(r, trusted).String()
		fail := func(reason string) {
			auditLog(r.Context(), audit.AuthnEvent{Username: req.Username, ClientIP: clientIP, ErrorMessage: reason})
			respondWithError(w, http.StatusUnauthorized, map[string]string{"message": "Invalid username or password"})
		}

		user, err := users.GetUserByUsername(r.Context(), strings.TrimSpace(req.Username))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				fail("unknown user")
				return
			}
			writeError(w, r, logger, err)
			return
		}

		if err := password.Compare(user.Password, req.Password); err != nil {
			if errors.Is(err, password.ErrMismatch) {
				fail("wrong password")
				return
			}
			writeError(w, r, logger, err)
			return
		}

		resp, err := starter.start(w, user)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		auditLog(r.Context(), audit.AuthnEvent{Username: user.Username, ClientIP: clientIP, Success: true})
		respondWithJSON(w, http.StatusOK, resp)
	}
}

func handleLogout(secure bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, session.ClearCookie(secure))
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleCurrentUser(logger logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := caller(r)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, id.User)
	}
}

package server

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/doodlesbykumbi/keyvault/pkg/activity"
	"github.com/doodlesbykumbi/keyvault/pkg/audit"
	"github.com/doodlesbykumbi/keyvault/pkg/authz"
	"github.com/doodlesbykumbi/keyvault/pkg/config"
	"github.com/doodlesbykumbi/keyvault/pkg/logging"
	"github.com/doodlesbykumbi/keyvault/pkg/metrics"
	"github.com/doodlesbykumbi/keyvault/pkg/secrets"
	"github.com/doodlesbykumbi/keyvault/pkg/server/middleware"
	"github.com/doodlesbykumbi/keyvault/pkg/server/store"
	"github.com/doodlesbykumbi/keyvault/pkg/session"
)

// Server holds the router and every dependency the endpoints need.
type Server struct {
	Router *mux.Router
	Config *config.KeyvaultConfig
	Logger logging.Logger

	UsersStore       store.UsersStore
	ProjectsStore    store.ProjectsStore
	MembershipsStore store.MembershipsStore
	SecretsStore     store.SecretsStore
	HealthStore      store.HealthStore

	Authz    *authz.Engine
	Secrets  *secrets.Manager
	Activity *activity.Recorder
	Sessions *session.Issuer

	// Audit is nil when the syslog audit trail is disabled.
	Audit *audit.Logger

	SessionMiddleware *middleware.SessionAuthenticator

	srv *http.Server
}

// Deps are the collaborators a Server is built from.
type Deps struct {
	Config *config.KeyvaultConfig
	Logger logging.Logger

	UsersStore       store.UsersStore
	ProjectsStore    store.ProjectsStore
	MembershipsStore store.MembershipsStore
	SecretsStore     store.SecretsStore
	HealthStore      store.HealthStore

	Authz    *authz.Engine
	Secrets  *secrets.Manager
	Activity *activity.Recorder
	Sessions *session.Issuer
	Audit    *audit.Logger

	// AccessLog receives the combined access log; os.Stdout when nil.
	AccessLog io.Writer
}

func NewServer(deps Deps, host string, port string) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	accessLog := deps.AccessLog
	if accessLog == nil {
		accessLog = os.Stdout
	}

	router := mux.NewRouter()
	if deps.Config != nil && deps.Config.MetricsEnabled {
		router.Use(metrics.Middleware)
	}

	s := &Server{
		Router:           router,
		Config:           deps.Config,
		Logger:           logger,
		UsersStore:       deps.UsersStore,
		ProjectsStore:    deps.ProjectsStore,
		MembershipsStore: deps.MembershipsStore,
		SecretsStore:     deps.SecretsStore,
		HealthStore:      deps.HealthStore,
		Authz:            deps.Authz,
		Secrets:          deps.Secrets,
		Activity:         deps.Activity,
		Sessions:         deps.Sessions,
		Audit:            deps.Audit,
	}

	s.SessionMiddleware = middleware.NewSessionAuthenticator(deps.Sessions, deps.UsersStore, logger)
	if deps.Config != nil {
		s.SessionMiddleware.TrustedProxy = deps.Config.IsTrustedProxy
	}

	s.srv = &http.Server{
		Handler: handlers.LoggingHandler(accessLog, handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(router)),
		Addr:    host + ":" + port,
		// Good practice: enforce timeouts for servers you create!
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Protected wraps h with session authentication.
func (s *Server) Protected(h http.HandlerFunc) http.Handler {
	return s.SessionMiddleware.Middleware(h)
}

// AuditLog writes event to the syslog audit trail when it is enabled.
func (s *Server) AuditLog(ctx context.Context, event audit.Event) {
	if s.Audit == nil {
		return
	}
	if err := s.Audit.Log(event); err != nil {
		s.Logger.Warn(ctx, "audit log write failed", "message_id", event.MessageID(), "error", err)
	}
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

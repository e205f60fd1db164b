package endpoints

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/keyvault/pkg/activity"
	"github.com/doodlesbykumbi/keyvault/pkg/audit"
	"github.com/doodlesbykumbi/keyvault/pkg/authz"
	"github.com/doodlesbykumbi/keyvault/pkg/config"
	"github.com/doodlesbykumbi/keyvault/pkg/credstore"
	"github.com/doodlesbykumbi/keyvault/pkg/identity"
	"github.com/doodlesbykumbi/keyvault/pkg/logging"
	"github.com/doodlesbykumbi/keyvault/pkg/model"
	"github.com/doodlesbykumbi/keyvault/pkg/secrets"
	"github.com/doodlesbykumbi/keyvault/pkg/server"
	"github.com/doodlesbykumbi/keyvault/pkg/session"
)

type testEnv struct {
	t      *testing.T
	srv    *server.Server
	store  *memStore
	creds  credstore.Store
	issuer *session.Issuer
	audit  *bytes.Buffer
}

// newTestEnv wires a server over memStore and creds, or an in-memory
// credential store when creds is nil.
func newTestEnv(t *testing.T, creds credstore.Store) *testEnv {
	t.Helper()

	st := newMemStore()
	if creds == nil {
		creds = credstore.NewMemoryStore()
	}
	issuer, err := session.NewIssuer([]byte(strings.Repeat("t", 32)), time.Hour)
	require.NoError(t, err)

	logger := logging.Nop()
	auditBuf := &bytes.Buffer{}
	auditLogger := audit.NewLogger(auditBuf)
	cfg := &config.KeyvaultConfig{
		CredentialStore:     config.CredentialStoreMemory,
		SSMNamespace:        "keyvault",
		SessionTokenTTL:     3600,
		ActivityLogLimitMax: 100,
	}

	srv := server.NewServer(server.Deps{
		Config:           cfg,
		Logger:           logger,
		UsersStore:       st,
		ProjectsStore:    st,
		MembershipsStore: st,
		SecretsStore:     st,
		HealthStore:      st,
		Authz:            authz.NewEngine(st),
		Secrets:          secrets.NewManager(creds, st, st, secrets.WithLogger(logger)),
		Activity:         activity.NewRecorder(st, st, st, st, activity.WithLogger(logger), activity.WithSink(auditLogger)),
		Sessions:         issuer,
		Audit:            auditLogger,
		AccessLog:        io.Discard,
	}, "127.0.0.1", "0")
	RegisterAll(srv)

	return &testEnv{t: t, srv: srv, store: st, creds: creds, issuer: issuer, audit: auditBuf}
}

// seedUser creates a user directly in the store and returns a session token.
func (e *testEnv) seedUser(username string, role model.GlobalRole) (*model.User, string) {
	e.t.Helper()
	user := &model.User{Username: username, Password: "unused", Email: username + "@example.com", Role: role}
	require.NoError(e.t, e.store.CreateUser(context.Background(), user))
	token, _, err := e.issuer.Issue(user.ID)
	require.NoError(e.t, err)
	return user, token
}

func (e *testEnv) do(token, method, path string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.10:40000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.srv.Router.ServeHTTP(rr, req)
	return rr
}

// createProject creates a project over HTTP and returns its ID.
func (e *testEnv) createProject(token, name string) int64 {
	e.t.Helper()
	rr := e.do(token, http.MethodPost, "/api/projects", map[string]string{"name": name})
	require.Equal(e.t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[model.Project](e.t, rr).ID
}

// createSecret creates a secret over HTTP and returns its ID.
func (e *testEnv) createSecret(token string, projectID int64, name, value string) int64 {
	e.t.Helper()
	rr := e.do(token, http.MethodPost, "/api/secrets", map[string]interface{}{
		"projectId": projectID,
		"name":      name,
		"value":     value,
	})
	require.Equal(e.t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[SecretSummary](e.t, rr).ID
}

func (e *testEnv) assign(token string, userID, projectID int64, role model.ProjectRole) *httptest.ResponseRecorder {
	return e.do(token, http.MethodPost, "/api/user-projects", map[string]interface{}{
		"userId":    userID,
		"projectId": projectID,
		"role":      role,
	})
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode[struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}](t, rr)
	return body.Error.Message
}

func path(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}

// requestWithIdentity builds a request already carrying an authenticated
// identity, for calling handlers directly.
func requestWithIdentity(method, target string, body io.Reader, user *model.User) *http.Request {
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(identity.Set(req.Context(), identity.New(user)))
}

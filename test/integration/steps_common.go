package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/cucumber/godog"

	"github.com/doodlesbykumbi/keyvault/pkg/model"
	"github.com/doodlesbykumbi/keyvault/pkg/password"
	"github.com/doodlesbykumbi/keyvault/pkg/secrets"
	gormstore "github.com/doodlesbykumbi/keyvault/pkg/server/store/gorm"
)

// scenarioCounter makes names unique across scenarios sharing one database.
var scenarioCounter int64

const defaultPassword = "integration-pass"

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc           *TestContext
	suffix       string
	response     *http.Response
	responseBody []byte

	tokens   map[string]string
	users    map[string]int64
	projects map[string]int64
	secrets  map[string]int64
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{
		tc:       tc,
		suffix:   fmt.Sprintf("s%d", atomic.AddInt64(&scenarioCounter, 1)),
		tokens:   make(map[string]string),
		users:    make(map[string]int64),
		projects: make(map[string]int64),
		secrets:  make(map[string]int64),
	}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	// Background steps
	sc.Step(`^a keyvault server is running$`, s.aKeyvaultServerIsRunning)
	sc.Step(`^a user "([^"]*)" is registered$`, s.aUserIsRegistered)
	sc.Step(`^an admin "([^"]*)" exists$`, s.anAdminExists)

	// Project and membership steps
	sc.Step(`^"([^"]*)" creates the project "([^"]*)"$`, s.createsTheProject)
	sc.Step(`^"([^"]*)" assigns "([^"]*)" the role "([^"]*)" in "([^"]*)"$`, s.assignsTheRole)
	sc.Step(`^"([^"]*)" removes "([^"]*)" from "([^"]*)"$`, s.removesFrom)
	sc.Step(`^"([^"]*)" views the project "([^"]*)"$`, s.viewsTheProject)

	// Secret steps
	sc.Step(`^"([^"]*)" creates the secret "([^"]*)" with value "([^"]*)" in "([^"]*)"$`, s.createsTheSecret)
	sc.Step(`^"([^"]*)" updates the secret "([^"]*)" to "([^"]*)"$`, s.updatesTheSecret)
	sc.Step(`^"([^"]*)" reveals the secret "([^"]*)"$`, s.revealsTheSecret)
	sc.Step(`^"([^"]*)" deletes the secret "([^"]*)"$`, s.deletesTheSecret)
	sc.Step(`^the credential store should hold "([^"]*)" for "([^"]*)" in "([^"]*)"$`, s.theCredentialStoreShouldHold)
	sc.Step(`^the credential store should not hold "([^"]*)" in "([^"]*)"$`, s.theCredentialStoreShouldNotHold)

	// Activity steps
	sc.Step(`^"([^"]*)" requests the activity of "([^"]*)"$`, s.requestsTheActivityOf)
	sc.Step(`^"([^"]*)" requests the activity log$`, s.requestsTheActivityLog)
	sc.Step(`^the response should list (\d+) activity entries$`, s.theResponseShouldListEntries)
	sc.Step(`^the latest activity entry should be "([^"]*)" on a (project|secret|user)$`, s.theLatestEntryShouldBe)

	// Response steps
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, s.theResponseShouldContain)
	sc.Step(`^the response should not contain "([^"]*)"$`, s.theResponseShouldNotContain)

	s.registerSessionSteps(sc)
}

// name scopes a feature-level name to this scenario.
func (s *StepsContext) name(n string) string {
	return n + "-" + s.suffix
}

func (s *StepsContext) request(method, path, token string, body interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.tc.ServerURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	s.response = resp
	s.responseBody, err = io.ReadAll(resp.Body)
	return err
}

func (s *StepsContext) as(user, method, path string, body interface{}) error {
	token, ok := s.tokens[user]
	if !ok {
		return fmt.Errorf("no session for user %q", user)
	}
	return s.request(method, path, token, body)
}

func (s *StepsContext) expectStatus(code int) error {
	if s.response == nil {
		return fmt.Errorf("no response")
	}
	if s.response.StatusCode != code {
		return fmt.Errorf("expected status %d, got %d: %s", code, s.response.StatusCode, s.responseBody)
	}
	return nil
}

func (s *StepsContext) decode(v interface{}) error {
	return json.Unmarshal(s.responseBody, v)
}

// Background steps

func (s *StepsContext) aKeyvaultServerIsRunning() error {
	// Server is already running via TestContext
	return nil
}

func (s *StepsContext) aUserIsRegistered(user string) error {
	username := s.name(user)
	err := s.request(http.MethodPost, "/api/register", "", map[string]string{
		"username": username,
		"password": defaultPassword,
		"email":    username + "@example.com",
	})
	if err != nil {
		return err
	}
	if err := s.expectStatus(http.StatusCreated); err != nil {
		return err
	}
	return s.rememberSession(user)
}

// anAdminExists inserts a global admin directly, as `keyvaultctl user create
// --admin` does, then logs in.
func (s *StepsContext) anAdminExists(user string) error {
	hashed, err := password.Hash(defaultPassword)
	if err != nil {
		return err
	}
	username := s.name(user)
	admin := &model.User{
		Username: username,
		Password: hashed,
		Email:    username + "@example.com",
		Role:     model.GlobalRoleAdmin,
	}
	if err := gormstore.NewUsersStore(s.tc.DB).CreateUser(context.Background(), admin); err != nil {
		return err
	}
	return s.logsIn(user)
}

func (s *StepsContext) rememberSession(user string) error {
	var resp struct {
		User  model.User `json:"user"`
		Token string     `json:"token"`
	}
	if err := s.decode(&resp); err != nil {
		return err
	}
	if resp.Token == "" {
		return fmt.Errorf("no token in response: %s", s.responseBody)
	}
	s.tokens[user] = resp.Token
	s.users[user] = resp.User.ID
	return nil
}

// Project and membership steps

func (s *StepsContext) createsTheProject(user, project string) error {
	if err := s.as(user, http.MethodPost, "/api/projects", map[string]string{"name": s.name(project)}); err != nil {
		return err
	}
	if err := s.expectStatus(http.StatusCreated); err != nil {
		return err
	}
	var p model.Project
	if err := s.decode(&p); err != nil {
		return err
	}
	s.projects[project] = p.ID
	return nil
}

func (s *StepsContext) assignsTheRole(actor, user, role, project string) error {
	return s.as(actor, http.MethodPost, "/api/user-projects", map[string]interface{}{
		"userId":    s.users[user],
		"projectId": s.projects[project],
		"role":      role,
	})
}

func (s *StepsContext) removesFrom(actor, user, project string) error {
	var m model.UserProjectRole
	err := s.tc.DB.Where("user_id = ? AND project_id = ?", s.users[user], s.projects[project]).Take(&m).Error
	if err != nil {
		return fmt.Errorf("membership of %s in %s: %w", user, project, err)
	}
	return s.as(actor, http.MethodDelete, fmt.Sprintf("/api/user-projects/%d", m.ID), nil)
}

func (s *StepsContext) viewsTheProject(user, project string) error {
	return s.as(user, http.MethodGet, fmt.Sprintf("/api/projects/%d", s.projects[project]), nil)
}

// Secret steps

func (s *StepsContext) createsTheSecret(user, secret, value, project string) error {
	err := s.as(user, http.MethodPost, "/api/secrets", map[string]interface{}{
		"projectId": s.projects[project],
		"name":      secret,
		"value":     value,
	})
	if err != nil {
		return err
	}
	if s.response.StatusCode == http.StatusCreated {
		var created struct {
			ID int64 `json:"id"`
		}
		if err := s.decode(&created); err != nil {
			return err
		}
		s.secrets[secret] = created.ID
	}
	return nil
}

func (s *StepsContext) updatesTheSecret(user, secret, value string) error {
	return s.as(user, http.MethodPut, fmt.Sprintf("/api/secrets/%d", s.secrets[secret]), map[string]string{"value": value})
}

func (s *StepsContext) revealsTheSecret(user, secret string) error {
	return s.as(user, http.MethodGet, fmt.Sprintf("/api/secrets/%d/value", s.secrets[secret]), nil)
}

func (s *StepsContext) deletesTheSecret(user, secret string) error {
	return s.as(user, http.MethodDelete, fmt.Sprintf("/api/secrets/%d", s.secrets[secret]), nil)
}

func (s *StepsContext) credentialPath(secret, project string) string {
	return secrets.SSMPath("keyvault", s.name(project), secret)
}

func (s *StepsContext) theCredentialStoreShouldHold(value, secret, project string) error {
	got, err := s.tc.Creds.Get(context.Background(), s.credentialPath(secret, project))
	if err != nil {
		return err
	}
	if got != value {
		return fmt.Errorf("expected %q in the credential store, got %q", value, got)
	}
	return nil
}

func (s *StepsContext) theCredentialStoreShouldNotHold(secret, project string) error {
	path := s.credentialPath(secret, project)
	if _, err := s.tc.Creds.Get(context.Background(), path); err == nil {
		return fmt.Errorf("credential store still holds %s", path)
	}
	return nil
}

// Activity steps

func (s *StepsContext) requestsTheActivityOf(user, project string) error {
	return s.as(user, http.MethodGet, fmt.Sprintf("/api/projects/%d/activity-logs", s.projects[project]), nil)
}

func (s *StepsContext) requestsTheActivityLog(user string) error {
	return s.as(user, http.MethodGet, "/api/activity-logs", nil)
}

type activityEntry struct {
	Action       string `json:"action"`
	ResourceType string `json:"resourceType"`
}

func (s *StepsContext) entries() ([]activityEntry, error) {
	if err := s.expectStatus(http.StatusOK); err != nil {
		return nil, err
	}
	var entries []activityEntry
	return entries, s.decode(&entries)
}

func (s *StepsContext) theResponseShouldListEntries(n int) error {
	entries, err := s.entries()
	if err != nil {
		return err
	}
	if len(entries) != n {
		return fmt.Errorf("expected %d activity entries, got %d: %s", n, len(entries), s.responseBody)
	}
	return nil
}

func (s *StepsContext) theLatestEntryShouldBe(action, resourceType string) error {
	entries, err := s.entries()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no activity entries")
	}
	if entries[0].Action != action || entries[0].ResourceType != resourceType {
		return fmt.Errorf("latest entry is %s on a %s", entries[0].Action, entries[0].ResourceType)
	}
	return nil
}

// Response steps

func (s *StepsContext) theResponseStatusShouldBe(code int) error {
	return s.expectStatus(code)
}

func (s *StepsContext) theResponseShouldContain(text string) error {
	if !strings.Contains(string(s.responseBody), text) {
		return fmt.Errorf("expected response to contain %q, got: %s", text, s.responseBody)
	}
	return nil
}

func (s *StepsContext) theResponseShouldNotContain(text string) error {
	if strings.Contains(string(s.responseBody), text) {
		return fmt.Errorf("expected response not to contain %q, got: %s", text, s.responseBody)
	}
	return nil
}

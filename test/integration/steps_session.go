package integration

import (
	"fmt"
	"net/http"
	"time"

	"github.com/cucumber/godog"

	"github.com/doodlesbykumbi/keyvault/pkg/session"
)

func (s *StepsContext) registerSessionSteps(sc *godog.ScenarioContext) {
	sc.Step(`^"([^"]*)" logs in$`, s.logsIn)
	sc.Step(`^"([^"]*)" logs in with password "([^"]*)"$`, s.logsInWithPassword)
	sc.Step(`^"([^"]*)" requests the current user$`, s.requestsTheCurrentUser)
	sc.Step(`^"([^"]*)" requests the current user with an expired session$`, s.requestsWithExpiredSession)
	sc.Step(`^the response should set the session cookie$`, s.theResponseShouldSetTheSessionCookie)
}

func (s *StepsContext) logsIn(user string) error {
	if err := s.logsInWithPassword(user, defaultPassword); err != nil {
		return err
	}
	if err := s.expectStatus(http.StatusOK); err != nil {
		return err
	}
	return s.rememberSession(user)
}

func (s *StepsContext) logsInWithPassword(user, password string) error {
	return s.request(http.MethodPost, "/api/login", "", map[string]string{
		"username": s.name(user),
		"password": password,
	})
}

func (s *StepsContext) requestsTheCurrentUser(user string) error {
	return s.as(user, http.MethodGet, "/api/user", nil)
}

// requestsWithExpiredSession signs a token with the server's secret that
// expired a minute ago.
func (s *StepsContext) requestsWithExpiredSession(user string) error {
	issuer, err := session.NewIssuer(s.tc.SessionSecret, -time.Minute)
	if err != nil {
		return err
	}
	token, _, err := issuer.Issue(s.users[user])
	if err != nil {
		return err
	}
	return s.request(http.MethodGet, "/api/user", token, nil)
}

func (s *StepsContext) theResponseShouldSetTheSessionCookie() error {
	for _, c := range s.response.Cookies() {
		if c.Name == session.CookieName && c.Value != "" && c.HttpOnly {
			return nil
		}
	}
	return fmt.Errorf("no %s cookie in response", session.CookieName)
}

package endpoints

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/doodlesbykumbi/keyvault/pkg/authz"
	"github.com/doodlesbykumbi/keyvault/pkg/credstore"
	"github.com/doodlesbykumbi/keyvault/pkg/identity"
	"github.com/doodlesbykumbi/keyvault/pkg/model"
	"github.com/doodlesbykumbi/keyvault/pkg/secrets"
	"github.com/doodlesbykumbi/keyvault/pkg/server"
	"github.com/doodlesbykumbi/keyvault/pkg/server/store"
)

// CreateSecretRequest is the body of POST /api/secrets
type CreateSecretRequest struct {
	ProjectID   int64   `json:"projectId"`
	Name        string  `json:"name"`
	Value       string  `json:"value"`
	Description *string `json:"description"`
	IsEncrypted *bool   `json:"isEncrypted"`
}

// UpdateSecretRequest is the body of PUT /api/secrets/{id}
type UpdateSecretRequest struct {
	Name        *string `json:"name"`
	Value       *string `json:"value"`
	Description *string `json:"description"`
	IsEncrypted *bool   `json:"isEncrypted"`
}

// SecretSummary is a secret without its value, as listed per project.
type SecretSummary struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	ProjectID   int64     `json:"projectId"`
	SSMPath     string    `json:"ssmPath"`
	IsEncrypted bool      `json:"isEncrypted"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SecretValue is the response of GET /api/secrets/{id}/value
type SecretValue struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

func summarize(s *model.Secret) SecretSummary {
	return SecretSummary{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		ProjectID:   s.ProjectID,
		SSMPath:     s.SSMPath,
		IsEncrypted: s.IsEncrypted,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func RegisterSecretsEndpoints(s *server.Server) {
	p := newPipeline(s)
	r := s.Router

	r.Handle("/api/secrets", s.Protected(handleCreateSecret(p, s.ProjectsStore, s.Secrets))).Methods("POST")
	r.Handle("/api/secrets/{id}", s.Protected(handleGetSecret(p, s.Secrets))).Methods("GET")
	r.Handle("/api/secrets/{id}/value", s.Protected(handleRevealSecret(p, s.Secrets))).Methods("GET")
	r.Handle("/api/secrets/{id}", s.Protected(handleUpdateSecret(p, s.Secrets))).Methods("PUT")
	r.Handle("/api/secrets/{id}", s.Protected(handleDeleteSecret(p, s.Secrets))).Methods("DELETE")
}

func secretResource(secret *model.Secret) authz.Resource {
	return authz.SecretResource(secret.ID, secret.ProjectID)
}

// loadSecret fetches the secret an action targets. A caller who is not a
// global admin gets the same denial for an unknown id as for a secret in a
// project they cannot reach, so ids do not leak.
func loadSecret(ctx context.Context, p *pipeline, id *identity.Identity, manager *secrets.Manager, secretID int64, action authz.Action) (*model.Secret, error) {
	secret, err := manager.Get(ctx, secretID)
	if err == nil {
		return secret, nil
	}
	if errors.Is(err, store.ErrNotFound) && id.Actor().GlobalRole != model.GlobalRoleAdmin {
		return nil, p.deny(ctx, id, action, authz.Resource{Type: model.ResourceSecret, ID: secretID})
	}
	return nil, err
}

func handleCreateSecret(p *pipeline, projects store.ProjectsStore, manager *secrets.Manager) http.HandlerFunc {
	return handle(p.logger, func(w http.ResponseWriter, r *http.Request) error {
		id, err := caller(r)
		if err != nil {
			return err
		}
		var req CreateSecretRequest
		if err := decodeJSON(r, &req); err != nil {
			return err
		}
		if req.ProjectID <= 0 {
			return badRequest("projectId is required")
		}

		secret, err := run(r.Context(), p, id, step[*model.Secret]{
			Action:   authz.ActionCreateSecret,
			Resource: authz.ProjectResource(req.ProjectID),
			Mutate: func(ctx context.Context) (*model.Secret, error) {
				project, err := projects.GetProject(ctx, req.ProjectID)
				if err != nil {
					return nil, err
				}
				return manager.Create(ctx, project, secrets.CreateInput{
					Name:        req.Name,
					Value:       req.Value,
					Description: req.Description,
					IsEncrypted: req.IsEncrypted,
				})
			},
			Record: func(secret *model.Secret) *record {
				return &record{Action: model.ActionCreated, ResourceType: model.ResourceSecret, ResourceID: secret.ID, Details: secret.Name}
			},
		})
		if err != nil {
			return err
		}
		respondWithJSON(w, http.StatusCreated, summarize(secret))
		return nil
	})
}

// handleGetSecret returns the secret with the value mirrored in the
// relational store and records the view.
func handleGetSecret(p *pipeline, manager *secrets.Manager) http.HandlerFunc {
	return handle(p.logger, func(w http.ResponseWriter, r *http.Request) error {
		id, err := caller(r)
		if err != nil {
			return err
		}
		secretID, err := pathID(r, "id")
		if err != nil {
			return err
		}
		secret, err := loadSecret(r.Context(), p, id, manager, secretID, authz.ActionView)
		if err != nil {
			return err
		}

		_, err = run(r.Context(), p, id, step[*model.Secret]{
			Action:   authz.ActionView,
			Resource: secretResource(secret),
			Mutate: func(context.Context) (*model.Secret, error) {
				return secret, nil
			},
			Record: func(secret *model.Secret) *record {
				return &record{Action: model.ActionViewed, ResourceType: model.ResourceSecret, ResourceID: secret.ID, Details: secret.Name}
			},
		})
		if err != nil {
			return err
		}
		respondWithJSON(w, http.StatusOK, secret)
		return nil
	})
}

// handleRevealSecret reads the authoritative value from the credential
// store. A parameter missing there is reported as not found.
func handleRevealSecret(p *pipeline, manager *secrets.Manager) http.HandlerFunc {
	return handle(p.logger, func(w http.ResponseWriter, r *http.Request) error {
		id, err := caller(r)
		if err != nil {
			return err
		}
		secretID, err := pathID(r, "id")
		if err != nil {
			return err
		}
		secret, err := loadSecret(r.Context(), p, id, manager, secretID, authz.ActionView)
		if err != nil {
			return err
		}

		value, err := run(r.Context(), p, id, step[string]{
			Action:   authz.ActionView,
			Resource: secretResource(secret),
			Mutate: func(ctx context.Context) (string, error) {
				value, err := manager.Reveal(ctx, secret)
				if errors.Is(err, credstore.ErrNotFound) {
					return "", fmt.Errorf("%w: %v", store.ErrNotFound, err)
				}
				return value, err
			},
			Record: func(string) *record {
				return &record{Action: model.ActionViewed, ResourceType: model.ResourceSecret, ResourceID: secret.ID, Details: "revealed"}
			},
		})
		if err != nil {
			return err
		}
		respondWithJSON(w, http.StatusOK, SecretValue{ID: secret.ID, Name: secret.Name, Value: value})
		return nil
	})
}

func handleUpdateSecret(p *pipeline, manager *secrets.Manager) http.HandlerFunc {
	return handle(p.logger, func(w http.ResponseWriter, r *http.Request) error {
		id, err := caller(r)
		if err != nil {
			return err
		}
		secretID, err := pathID(r, "id")
		if err != nil {
			return err
		}
		var req UpdateSecretRequest
		if err := decodeJSON(r, &req); err != nil {
			return err
		}
		secret, err := loadSecret(r.Context(), p, id, manager, secretID, authz.ActionUpdateSecret)
		if err != nil {
			return err
		}

		updated, err := run(r.Context(), p, id, step[*model.Secret]{
			Action:   authz.ActionUpdateSecret,
			Resource: secretResource(secret),
			Mutate: func(ctx context.Context) (*model.Secret, error) {
				return manager.Update(ctx, secret, secrets.UpdateInput{
					Name:        req.Name,
					Value:       req.Value,
					Description: req.Description,
					IsEncrypted: req.IsEncrypted,
				})
			},
			Record: func(updated *model.Secret) *record {
				return &record{Action: model.ActionUpdated, ResourceType: model.ResourceSecret, ResourceID: updated.ID, Details: changedFields(req)}
			},
		})
		if err != nil {
			return err
		}
		respondWithJSON(w, http.StatusOK, summarize(updated))
		return nil
	})
}

// changedFields lists the fields present in an update request.
func changedFields(req UpdateSecretRequest) string {
	var fields []string
	if req.Name != nil {
		fields = append(fields, "name")
	}
	if req.Value != nil {
		fields = append(fields, "value")
	}
	if req.Description != nil {
		fields = append(fields, "description")
	}
	if req.IsEncrypted != nil {
		fields = append(fields, "isEncrypted")
	}
	return strings.Join(fields, ",")
}

func handleDeleteSecret(p *pipeline, manager *secrets.Manager) http.HandlerFunc {
	return handle(p.logger, func(w http.ResponseWriter, r *http.Request) error {
		id, err := caller(r)
		if err != nil {
			return err
		}
		secretID, err := pathID(r, "id")
		if err != nil {
			return err
		}
		secret, err := loadSecret(r.Context(), p, id, manager, secretID, authz.ActionDeleteSecret)
		if err != nil {
			return err
		}

		_, err = run(r.Context(), p, id, step[*model.Secret]{
			Action:   authz.ActionDeleteSecret,
			Resource: secretResource(secret),
			Mutate: func(ctx context.Context) (*model.Secret, error) {
				return secret, manager.Delete(ctx, secret)
			},
			Record: func(secret *model.Secret) *record {
				return &record{Action: model.ActionDeleted, ResourceType: model.ResourceSecret, ResourceID: secret.ID, Details: secret.Name}
			},
		})
		if err != nil {
			return err
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "Secret deleted"})
		return nil
	})
}

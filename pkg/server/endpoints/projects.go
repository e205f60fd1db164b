package endpoints

import (
	"context"
	"net/http"
	"strings"

	"github.com/doodlesbykumbi/keyvault/pkg/activity"
	"github.com/doodlesbykumbi/keyvault/pkg/authz"
	"github.com/doodlesbykumbi/keyvault/pkg/logging"
	"github.com/doodlesbykumbi/keyvault/pkg/model"
	"github.com/doodlesbykumbi/keyvault/pkg/secrets"
	"github.com/doodlesbykumbi/keyvault/pkg/server"
	"github.com/doodlesbykumbi/keyvault/pkg/server/store"
)

const maxProjectNameLength = 255

// ProjectRequest is the body of POST and PUT /api/projects
type ProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func RegisterProjectsEndpoints(s *server.Server) {
	p := newPipeline(s)
	r := s.Router
	clamp := limitClamp(s)

	r.Handle("/api/projects", s.Protected(handleListProjects(s.ProjectsStore, s.Logger))).Methods("GET")
	r.Handle("/api/projects", s.Protected(handleCreateProject(p, s.ProjectsStore))).Methods("POST")
	r.Handle("/api/projects/{id}", s.Protected(handleGetProject(p, s.ProjectsStore))).Methods("GET")
	r.Handle("/api/projects/{id}", s.Protected(handleUpdateProject(p, s.ProjectsStore))).Methods("PUT")
	r.Handle("/api/projects/{id}", s.Protected(handleDeleteProject(p, s.ProjectsStore, s.Secrets))).Methods("DELETE")
	r.Handle("/api/projects/{id}/secrets", s.Protected(handleListProjectSecrets(p, s.SecretsStore))).Methods("GET")
	r.Handle("/api/projects/{id}/members", s.Protected(handleListMembers(p, s.MembershipsStore))).Methods("GET")
	r.Handle("/api/projects/{id}/activity-logs", s.Protected(handleProjectActivity(p, s.Activity, clamp))).Methods("GET")
}

func validateProjectName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", badRequest("project name is required")
	}
	if len(name) > maxProjectNameLength {
		return "", badRequest("project name must be at most %d characters", maxProjectNameLength)
	}
	return name, nil
}

func handleListProjects(projects store.ProjectsStore, logger logging.Logger) http.HandlerFunc {
	return handle(logger, func(w http.ResponseWriter, r *http.Request) error {
		id, err := caller(r)
		if err != nil {
			return err
		}

		var list []model.Project
		if id.User.IsAdmin() {
			list, err = projects.ListProjects(r.Context())
		} else {
			list, err = projects.ListProjectsForUser(r.Context(), id.UserID())
		}
		if err != nil {
			return err
		}
		if list == nil {
			list = []model.Project{}
		}
		respondWithJSON(w, http.StatusOK, list)
		return nil
	})
}

// handleCreateProject creates a project owned by the caller. Any
// authenticated user may create one; the store grants the creator the admin
// project role in the same transaction.
func handleCreateProject(p *pipeline, projects store.ProjectsStore) http.HandlerFunc {
	return handle(p.logger, func(w http.ResponseWriter, r *http.Request) error {
		id, err := caller(r)
		if err != nil {
			return err
		}
		var req ProjectRequest
		if err := decodeJSON(r, &req); err != nil {
			return err
		}
		if req.Name == nil {
			return badRequest("project name is required")
		}
		name, err := validateProjectName(*req.Name)
		if err != nil {
			return err
		}

		project, err := run(r.Context(), p, id, step[*model.Project]{
			Mutate: func(ctx context.Context) (*model.Project, error) {
				project := &model.Project{Name: name, Description: req.Description}
				if err := projects.CreateProject(ctx, project, id.UserID()); err != nil {
					return nil, err
				}
				return project, nil
			},
			Record: func(project *model.Project) *record {
				return &record{Action: model.ActionCreated, ResourceType: model.ResourceProject, ResourceID: project.ID, Details: project.Name}
			},
		})
		if err != nil {
			return err
		}
		respondWithJSON(w, http.StatusCreated, project)
		return nil
	})
}

func handleGetProject(p *pipeline, projects store.ProjectsStore) http.HandlerFunc {
	return handle(p.logger, func(w http.ResponseWriter, r *http.Request) error {
		id, err := caller(r)
		if err != nil {
			return err
		}
		projectID, err := pathID(r, "id")
		if err != nil {
			return err
		}

		project, err := run(r.Context(), p, id, step[*model.Project]{
			Action:   authz.ActionView,
			Resource: authz.ProjectResource(projectID),
			Mutate: func(ctx context.Context) (*model.Project, error) {
				return projects.GetProject(ctx, projectID)
			},
		})
		if err != nil {
			return err
		}
		respondWithJSON(w, http.StatusOK, project)
		return nil
	})
}

func handleUpdateProject(p *pipeline, projects store.ProjectsStore) http.HandlerFunc {
	return handle(p.logger, func(w http.ResponseWriter, r *http.Request) error {
		id, err := caller(r)
		if err != nil {
			return err
		}
		projectID, err := pathID(r, "id")
		if err != nil {
			return err
		}
		var req ProjectRequest
		if err := decodeJSON(r, &req); err != nil {
			return err
		}
		var name string
		if req.Name != nil {
			if name, err = validateProjectName(*req.Name); err != nil {
				return err
			}
		}

		project, err := run(r.Context(), p, id, step[*model.Project]{
			Action:   authz.ActionUpdateProject,
			Resource: authz.ProjectResource(projectID),
			Mutate: func(ctx context.Context) (*model.Project, error) {
				project, err := projects.GetProject(ctx, projectID)
				if err != nil {
					return nil, err
				}
				if req.Name != nil {
					project.Name = name
				}
				if req.Description != nil {
					project.Description = req.Description
				}
				if err := projects.UpdateProject(ctx, project); err != nil {
					return nil, err
				}
				return project, nil
			},
			Record: func(project *model.Project) *record {
				return &record{Action: model.ActionUpdated, ResourceType: model.ResourceProject, ResourceID: project.ID, Details: project.Name}
			},
		})
		if err != nil {
			return err
		}
		respondWithJSON(w, http.StatusOK, project)
		return nil
	})
}

// handleDeleteProject deletes every secret of the project through the
// credential store before the project row goes. Each secret gets its own
// deleted entry as soon as it is gone, so a delete that fails partway still
// leaves a trail of what was removed.
func handleDeleteProject(p *pipeline, projects store.ProjectsStore, manager *secrets.Manager) http.HandlerFunc {
	return handle(p.logger, func(w http.ResponseWriter, r *http.Request) error {
		id, err := caller(r)
		if err != nil {
			return err
		}
		projectID, err := pathID(r, "id")
		if err != nil {
			return err
		}

		_, err = run(r.Context(), p, id, step[*model.Project]{
			Action:   authz.ActionDeleteProject,
			Resource: authz.ProjectResource(projectID),
			Mutate: func(ctx context.Context) (*model.Project, error) {
				project, err := projects.GetProject(ctx, projectID)
				if err != nil {
					return nil, err
				}
				recordSecret := func(ctx context.Context, secret *model.Secret) error {
					_, err := p.activity.Record(ctx, id.UserID(), model.ActionDeleted, model.ResourceSecret, secret.ID, secret.Name)
					return err
				}
				if err := manager.DeleteProject(ctx, project, recordSecret); err != nil {
					return nil, err
				}
				return project, nil
			},
			Record: func(project *model.Project) *record {
				return &record{Action: model.ActionDeleted, ResourceType: model.ResourceProject, ResourceID: project.ID, Details: project.Name}
			},
		})
		if err != nil {
			return err
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "Project deleted"})
		return nil
	})
}

func handleListProjectSecrets(p *pipeline, secretsStore store.SecretsStore) http.HandlerFunc {
	return handle(p.logger, func(w http.ResponseWriter, r *http.Request) error {
		id, err := caller(r)
		if err != nil {
			return err
		}
		projectID, err := pathID(r, "id")
		if err != nil {
			return err
		}
		if err := p.authorize(r.Context(), id, authz.ActionView, authz.ProjectResource(projectID)); err != nil {
			return err
		}

		list, err := secretsStore.ListSecrets(r.Context(), projectID)
		if err != nil {
			return err
		}
		summaries := make([]SecretSummary, 0, len(list))
		for i := range list {
			summaries = append(summaries, summarize(&list[i]))
		}
		respondWithJSON(w, http.StatusOK, summaries)
		return nil
	})
}

func handleListMembers(p *pipeline, memberships store.MembershipsStore) http.HandlerFunc {
	return handle(p.logger, func(w http.ResponseWriter, r *http.Request) error {
		id, err := caller(r)
		if err != nil {
			return err
		}
		projectID, err := pathID(r, "id")
		if err != nil {
			return err
		}
		if err := p.authorize(r.Context(), id, authz.ActionView, authz.ProjectResource(projectID)); err != nil {
			return err
		}

		members, err := memberships.ListMembers(r.Context(), projectID)
		if err != nil {
			return err
		}
		if members == nil {
			members = []store.Member{}
		}
		respondWithJSON(w, http.StatusOK, members)
		return nil
	})
}

func handleProjectActivity(p *pipeline, recorder *activity.Recorder, clamp func(int) int) http.HandlerFunc {
	return handle(p.logger, func(w http.ResponseWriter, r *http.Request) error {
		id, err := caller(r)
		if err != nil {
			return err
		}
		projectID, err := pathID(r, "id")
		if err != nil {
			return err
		}
		limit, err := limitParam(r, clamp)
		if err != nil {
			return err
		}
		if err := p.authorize(r.Context(), id, authz.ActionView, authz.ProjectResource(projectID)); err != nil {
			return err
		}

		entries, err := recorder.GetProjectLogs(r.Context(), projectID, limit)
		if err != nil {
			return err
		}
		respondWithJSON(w, http.StatusOK, nonNilEntries(entries))
		return nil
	})
}

package endpoints

import (
	"context"
	"fmt"
	"net/http"

	"github.com/doodlesbykumbi/keyvault/pkg/authz"
	"github.com/doodlesbykumbi/keyvault/pkg/model"
	"github.com/doodlesbykumbi/keyvault/pkg/server"
	"github.com/doodlesbykumbi/keyvault/pkg/server/store"
)

// AssignRoleRequest is the body of POST /api/user-projects
type AssignRoleRequest struct {
	UserID    int64             `json:"userId"`
	ProjectID int64             `json:"projectId"`
	Role      model.ProjectRole `json:"role"`
}

func RegisterMembershipsEndpoints(s *server.Server) {
	p := newPipeline(s)
	r := s.Router

	r.Handle("/api/user-projects", s.Protected(handleAssignRole(p, s.UsersStore, s.ProjectsStore, s.MembershipsStore))).Methods("POST")
	r.Handle("/api/user-projects/{id}", s.Protected(handleRemoveMembership(p, s.UsersStore, s.MembershipsStore))).Methods("DELETE")
}

// handleAssignRole grants or changes a user's role in a project. An existing
// assignment for the pair is overwritten.
func handleAssignRole(p *pipeline, users store.UsersStore, projects store.ProjectsStore, memberships store.MembershipsStore) http.HandlerFunc {
	return handle(p.logger, func(w http.ResponseWriter, r *http.Request) error {
		id, err := caller(r)
		if err != nil {
			return err
		}
		var req AssignRoleRequest
		if err := decodeJSON(r, &req); err != nil {
			return err
		}
		if req.UserID <= 0 || req.ProjectID <= 0 {
			return badRequest("userId and projectId are required")
		}
		if !req.Role.Valid() {
			return badRequest("role must be one of admin, editor, viewer")
		}

		assigned, err := run(r.Context(), p, id, step[*assignment]{
			Action:   authz.ActionManageMembers,
			Resource: authz.ProjectResource(req.ProjectID),
			Mutate: func(ctx context.Context) (*assignment, error) {
				user, err := users.GetUser(ctx, req.UserID)
				if err != nil {
					return nil, fmt.Errorf("user %d: %w", req.UserID, err)
				}
				if _, err := projects.GetProject(ctx, req.ProjectID); err != nil {
					return nil, fmt.Errorf("project %d: %w", req.ProjectID, err)
				}
				m := &model.UserProjectRole{UserID: req.UserID, ProjectID: req.ProjectID, Role: req.Role}
				if err := memberships.AssignRole(ctx, m); err != nil {
					return nil, err
				}
				return &assignment{membership: m, username: user.Username}, nil
			},
			Record: func(a *assignment) *record {
				return &record{
					Action:       model.ActionAssigned,
					ResourceType: model.ResourceProject,
					ResourceID:   a.membership.ProjectID,
					Details:      fmt.Sprintf("%s as %s", a.username, a.membership.Role),
				}
			},
		})
		if err != nil {
			return err
		}
		respondWithJSON(w, http.StatusCreated, assigned.membership)
		return nil
	})
}

type assignment struct {
	membership *model.UserProjectRole
	username   string
}

func handleRemoveMembership(p *pipeline, users store.UsersStore, memberships store.MembershipsStore) http.HandlerFunc {
	return handle(p.logger, func(w http.ResponseWriter, r *http.Request) error {
		id, err := caller(r)
		if err != nil {
			return err
		}
		membershipID, err := pathID(r, "id")
		if err != nil {
			return err
		}
		m, err := memberships.GetMembership(r.Context(), membershipID)
		if err != nil {
			return err
		}

		_, err = run(r.Context(), p, id, step[*model.UserProjectRole]{
			Action:   authz.ActionManageMembers,
			Resource: authz.ProjectResource(m.ProjectID),
			Mutate: func(ctx context.Context) (*model.UserProjectRole, error) {
				return m, memberships.RemoveMembership(ctx, m.ID)
			},
			Record: func(m *model.UserProjectRole) *record {
				label := fmt.Sprintf("user %d", m.UserID)
				if user, err := users.GetUser(r.Context(), m.UserID); err == nil {
					label = user.Username
				}
				return &record{
					Action:       model.ActionAssigned,
					ResourceType: model.ResourceProject,
					ResourceID:   m.ProjectID,
					Details:      "removed " + label,
				}
			},
		})
		if err != nil {
			return err
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "Membership removed"})
		return nil
	})
}

// Package authz decides whether an actor may perform an action on a
// project-scoped resource.
//
// The rules are evaluated in order:
//
//  1. A global admin is allowed everything, without a role lookup.
//  2. Otherwise the actor's role in the resource's project is looked up. No
//     role means deny.
//  3. The project role is checked against the action:
//     view needs any role; create_secret and update_secret need admin or
//     editor; delete_secret, manage_members, update_project and
//     delete_project need admin. Unknown actions are denied.
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/doodlesbykumbi/keyvault/pkg/metrics"
	"github.com/doodlesbykumbi/keyvault/pkg/model"
)

// ErrMalformedResource is returned when a resource has no owning project.
// It signals a caller bug rather than a denial.
var ErrMalformedResource = errors.New("resource has no project")

// Action is an operation an actor attempts on a resource.
type Action string

const (
	ActionView          Action = "view"
	ActionCreateSecret  Action = "create_secret"
	ActionUpdateSecret  Action = "update_secret"
	ActionDeleteSecret  Action = "delete_secret"
	ActionManageMembers Action = "manage_members"
	ActionUpdateProject Action = "update_project"
	ActionDeleteProject Action = "delete_project"
)

// Decision is the outcome of an authorization check.
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Actor is the authenticated caller.
type Actor struct {
	UserID     int64
	GlobalRole model.GlobalRole
}

// ActorFor builds the Actor of a user account.
func ActorFor(user *model.User) Actor {
	return Actor{UserID: user.ID, GlobalRole: user.Role}
}

// Resource identifies what is being acted on. For a project, ID and
// ProjectID are the same.
type Resource struct {
	Type      model.ResourceType
	ID        int64
	ProjectID int64
}

// ProjectResource is the Resource for a project.
func ProjectResource(projectID int64) Resource {
	return Resource{Type: model.ResourceProject, ID: projectID, ProjectID: projectID}
}

// SecretResource is the Resource for a secret inside a project.
func SecretResource(secretID, projectID int64) Resource {
	return Resource{Type: model.ResourceSecret, ID: secretID, ProjectID: projectID}
}

// allowedRoles lists the project roles that grant each action.
var allowedRoles = map[Action][]model.ProjectRole{
	ActionView:          {model.ProjectRoleAdmin, model.ProjectRoleEditor, model.ProjectRoleViewer},
	ActionCreateSecret:  {model.ProjectRoleAdmin, model.ProjectRoleEditor},
	ActionUpdateSecret:  {model.ProjectRoleAdmin, model.ProjectRoleEditor},
	ActionDeleteSecret:  {model.ProjectRoleAdmin},
	ActionManageMembers: {model.ProjectRoleAdmin},
	ActionUpdateProject: {model.ProjectRoleAdmin},
	ActionDeleteProject: {model.ProjectRoleAdmin},
}

// Decide applies the rules to an already looked up project role. It is pure;
// projectRole is nil when the actor has no role in the project.
func Decide(actor Actor, action Action, projectRole *model.ProjectRole) Decision {
	if actor.GlobalRole == model.GlobalRoleAdmin {
		return Allow
	}
	if projectRole == nil {
		return Deny
	}
	for _, r := range allowedRoles[action] {
		if r == *projectRole {
			return Allow
		}
	}
	return Deny
}

// RoleLookup resolves the role a user holds in a project. It returns nil and
// no error when the user has no role there.
type RoleLookup interface {
	ProjectRole(ctx context.Context, userID, projectID int64) (*model.ProjectRole, error)
}

// Engine evaluates decisions against live project roles.
type Engine struct {
	roles RoleLookup
}

func NewEngine(roles RoleLookup) *Engine {
	return &Engine{roles: roles}
}

// Authorize decides whether actor may perform action on resource. Errors are
// reserved for malformed input and lookup failures; a denial is not an error.
func (e *Engine) Authorize(ctx context.Context, actor Actor, action Action, resource Resource) (Decision, error) {
	if resource.ProjectID == 0 {
		return Deny, fmt.Errorf("%w: %s %d", ErrMalformedResource, resource.Type, resource.ID)
	}

	var role *model.ProjectRole
	if actor.GlobalRole != model.GlobalRoleAdmin {
		var err error
		role, err = e.roles.ProjectRole(ctx, actor.UserID, resource.ProjectID)
		if err != nil {
			return Deny, fmt.Errorf("look up project role: %w", err)
		}
	}

	decision := Decide(actor, action, role)
	metrics.RecordAuthzDecision(string(action), decision.String())
	return decision, nil
}

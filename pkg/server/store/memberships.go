package store

import (
	"context"

	"github.com/doodlesbykumbi/keyvault/pkg/model"
)

// Member is a membership joined with the member's account details.
type Member struct {
	model.UserProjectRole
	Username string `json:"username"`
	Email    string `json:"email"`
}

// MembershipsStore abstracts per-project role assignments
type MembershipsStore interface {
	// ProjectRole returns the role userID holds in projectID, or nil when the
	// user has no role there.
	ProjectRole(ctx context.Context, userID, projectID int64) (*model.ProjectRole, error)

	// AssignRole inserts the membership, or updates the role if the user
	// already belongs to the project. The stored row is written back into m.
	AssignRole(ctx context.Context, m *model.UserProjectRole) error

	// GetMembership returns ErrNotFound if the membership doesn't exist.
	GetMembership(ctx context.Context, id int64) (*model.UserProjectRole, error)

	// RemoveMembership returns ErrNotFound if nothing was deleted.
	RemoveMembership(ctx context.Context, id int64) error

	ListMembers(ctx context.Context, projectID int64) ([]Member, error)
}

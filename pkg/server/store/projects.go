package store

import (
	"context"

	"github.com/doodlesbykumbi/keyvault/pkg/model"
)

// ProjectsStore abstracts project operations
type ProjectsStore interface {
	// CreateProject inserts the project and grants ownerID the admin project
	// role in the same transaction.
	CreateProject(ctx context.Context, project *model.Project, ownerID int64) error

	// GetProject returns ErrNotFound if the project doesn't exist.
	GetProject(ctx context.Context, id int64) (*model.Project, error)

	// ListProjects returns every project ordered by ID.
	ListProjects(ctx context.Context) ([]model.Project, error)

	// ListProjectsForUser returns the projects userID holds any role in.
	ListProjectsForUser(ctx context.Context, userID int64) ([]model.Project, error)

	// UpdateProject saves name and description.
	UpdateProject(ctx context.Context, project *model.Project) error

	// DeleteProject removes the project row. Memberships and secret rows
	// cascade.
	DeleteProject(ctx context.Context, id int64) error

	// GetProjectsByIDs returns the projects that exist among ids, keyed by ID.
	GetProjectsByIDs(ctx context.Context, ids []int64) (map[int64]model.Project, error)
}

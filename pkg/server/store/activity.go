package store

import (
	"context"

	"github.com/doodlesbykumbi/keyvault/pkg/model"
)

// ActivityFilter narrows ListActivity. Nil fields are not applied.
type ActivityFilter struct {
	// UserID restricts to entries performed by this user.
	UserID *int64
	// ProjectID restricts to entries about this project or about any secret
	// currently in it.
	ProjectID *int64
	// Limit caps the number of rows. Zero means no cap.
	Limit int
}

// ActivityStore abstracts the append-only activity log. It has no update or
// delete operation.
type ActivityStore interface {
	// AppendActivity inserts entry and populates its ID.
	AppendActivity(ctx context.Context, entry *model.ActivityLog) error

	// ListActivity returns matching entries newest first.
	ListActivity(ctx context.Context, filter ActivityFilter) ([]model.ActivityLog, error)
}

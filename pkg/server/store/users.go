package store

import (
	"context"

	"github.com/doodlesbykumbi/keyvault/pkg/model"
)

// UsersStore abstracts user account operations
type UsersStore interface {
	// CreateUser inserts a user and populates its ID.
	// Returns ErrConflict if the username or email is taken.
	CreateUser(ctx context.Context, user *model.User) error

	// GetUser returns ErrNotFound if the user doesn't exist.
	GetUser(ctx context.Context, id int64) (*model.User, error)

	// GetUserByUsername returns ErrNotFound if the user doesn't exist.
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)

	ListUsers(ctx context.Context) ([]model.User, error)

	// GetUsersByIDs returns the users that exist among ids, keyed by ID.
	GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]model.User, error)
}

package store

import (
	"context"

	"github.com/doodlesbykumbi/keyvault/pkg/model"
)

// SecretsStore abstracts secret row operations. It never talks to the
// credential store.
type SecretsStore interface {
	// CreateSecret inserts the row and populates its ID.
	// Returns ErrConflict if ssm_path is already taken.
	CreateSecret(ctx context.Context, secret *model.Secret) error

	// GetSecret returns ErrNotFound if the secret doesn't exist.
	GetSecret(ctx context.Context, id int64) (*model.Secret, error)

	// GetSecretBySSMPath returns ErrNotFound if no row owns path.
	GetSecretBySSMPath(ctx context.Context, path string) (*model.Secret, error)

	// ListSecrets returns the project's secrets ordered by ID.
	ListSecrets(ctx context.Context, projectID int64) ([]model.Secret, error)

	// UpdateSecret saves name, value, description and is_encrypted.
	// ssm_path is never written after creation.
	UpdateSecret(ctx context.Context, secret *model.Secret) error

	// DeleteSecret returns ErrNotFound if nothing was deleted.
	DeleteSecret(ctx context.Context, id int64) error

	// GetSecretsByIDs returns the secrets that exist among ids, keyed by ID.
	GetSecretsByIDs(ctx context.Context, ids []int64) (map[int64]model.Secret, error)
}

// Package secrets keeps secret values in the credential store and secret
// metadata in the relational store consistent.
//
// Every mutation writes the credential store first and commits the relational
// row only when that write succeeded. A failure after the credential write
// leaves an orphaned credential, which is logged and not reconciled. A
// relational row therefore never points at a value that was not written.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/doodlesbykumbi/keyvault/pkg/credstore"
	"github.com/doodlesbykumbi/keyvault/pkg/logging"
	"github.com/doodlesbykumbi/keyvault/pkg/model"
	"github.com/doodlesbykumbi/keyvault/pkg/server/store"
)

// ErrValidation is returned for malformed input before any side effect.
var ErrValidation = errors.New("invalid secret")

// secretName matches the characters SSM accepts inside a path segment.
var secretName = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

// CreateInput is the payload of a new secret. IsEncrypted defaults to true.
type CreateInput struct {
	Name        string
	Value       string
	Description *string
	IsEncrypted *bool
}

// UpdateInput carries the fields to change. Nil fields are left unchanged.
type UpdateInput struct {
	Name        *string
	Value       *string
	Description *string
	IsEncrypted *bool
}

// Manager orchestrates secret writes across both stores.
type Manager struct {
	creds     credstore.Store
	secrets   store.SecretsStore
	projects  store.ProjectsStore
	namespace string
	logger    logging.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace sets the first segment of derived credential paths.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func NewManager(creds credstore.Store, secrets store.SecretsStore, projects store.ProjectsStore, opts ...Option) *Manager {
	m := &Manager{
		creds:     creds,
		secrets:   secrets,
		projects:  projects,
		namespace: DefaultNamespace,
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Namespace returns the configured path namespace.
func (m *Manager) Namespace() string {
	return m.namespace
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !secretName.MatchString(name) {
		return fmt.Errorf("%w: name may only contain letters, digits, '_', '.' and '-'", ErrValidation)
	}
	return nil
}

// checkNameFree rejects name with store.ErrConflict when another secret of
// the project already carries it. except is the secret being renamed.
func (m *Manager) checkNameFree(ctx context.Context, projectID int64, name string, except int64) error {
	list, err := m.secrets.ListSecrets(ctx, projectID)
	if err != nil {
		return fmt.Errorf("check secret name: %w", err)
	}
	for _, other := range list {
		if other.ID != except && other.Name == name {
			return fmt.Errorf("%w: project already has a secret named %s", store.ErrConflict, name)
		}
	}
	return nil
}

// Create writes the value to the credential store, then inserts the row.
// A path already owned by another secret, or a name already used in the
// project, is rejected with store.ErrConflict before anything is written.
func (m *Manager) Create(ctx context.Context, project *model.Project, in CreateInput) (*model.Secret, error) {
	name := strings.TrimSpace(in.Name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if in.Value == "" {
		return nil, fmt.Errorf("%w: value is required", ErrValidation)
	}

	encrypted := true
	if in.IsEncrypted != nil {
		encrypted = *in.IsEncrypted
	}
	path := SSMPath(m.namespace, project.Name, name)

	_, err := m.secrets.GetSecretBySSMPath(ctx, path)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: a secret already exists at %s", store.ErrConflict, path)
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("check secret path: %w", err)
	}
	if err := m.checkNameFree(ctx, project.ID, name, 0); err != nil {
		return nil, err
	}

	if err := m.creds.Put(ctx, path, in.Value, encrypted); err != nil {
		return nil, fmt.Errorf("write credential: %w", err)
	}

	secret := &model.Secret{
		Name:        name,
		Value:       in.Value,
		Description: in.Description,
		ProjectID:   project.ID,
		SSMPath:     path,
		IsEncrypted: encrypted,
	}
	if err := m.secrets.CreateSecret(ctx, secret); err != nil {
		m.logger.Warn(ctx, "orphaned credential after failed secret insert", "path", path, "error", err)
		return nil, fmt.Errorf("insert secret: %w", err)
	}

	m.logger.Info(ctx, "secret created", "secret_id", secret.ID, "project_id", project.ID, "path", path)
	return secret, nil
}

// Update applies in to secret. The credential store is written only when the
// value or the encryption flag changes, and always at the original path. A
// rename to a name another secret of the project uses is a store.ErrConflict.
// The returned secret is a copy; secret itself is not modified.
func (m *Manager) Update(ctx context.Context, secret *model.Secret, in UpdateInput) (*model.Secret, error) {
	updated := *secret

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validateName(name); err != nil {
			return nil, err
		}
		updated.Name = name
	}
	if in.Value != nil {
		if *in.Value == "" {
			return nil, fmt.Errorf("%w: value must not be empty", ErrValidation)
		}
		updated.Value = *in.Value
	}
	if in.Description != nil {
		updated.Description = in.Description
	}
	if in.IsEncrypted != nil {
		updated.IsEncrypted = *in.IsEncrypted
	}

	if updated.Name != secret.Name {
		if err := m.checkNameFree(ctx, secret.ProjectID, updated.Name, secret.ID); err != nil {
			return nil, err
		}
	}

	if updated.Value != secret.Value || updated.IsEncrypted != secret.IsEncrypted {
		if err := m.creds.Put(ctx, secret.SSMPath, updated.Value, updated.IsEncrypted); err != nil {
			return nil, fmt.Errorf("write credential: %w", err)
		}
	}

	if err := m.secrets.UpdateSecret(ctx, &updated); err != nil {
		if updated.Value != secret.Value {
			m.logger.Warn(ctx, "credential ahead of secret row after failed update", "secret_id", secret.ID, "path", secret.SSMPath, "error", err)
		}
		return nil, fmt.Errorf("update secret: %w", err)
	}

	m.logger.Info(ctx, "secret updated", "secret_id", secret.ID, "path", secret.SSMPath)
	return &updated, nil
}

// Delete removes the credential, then the row. If the credential delete fails
// for any reason, including not found, the row is kept.
func (m *Manager) Delete(ctx context.Context, secret *model.Secret) error {
	if err := m.creds.Delete(ctx, secret.SSMPath); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}

	if err := m.secrets.DeleteSecret(ctx, secret.ID); err != nil {
		m.logger.Warn(ctx, "secret row left without credential after failed delete", "secret_id", secret.ID, "path", secret.SSMPath, "error", err)
		return fmt.Errorf("delete secret: %w", err)
	}

	m.logger.Info(ctx, "secret deleted", "secret_id", secret.ID, "path", secret.SSMPath)
	return nil
}

// DeleteByID loads the row and deletes it. A secret that no longer exists
// yields store.ErrNotFound and nothing is mutated.
func (m *Manager) DeleteByID(ctx context.Context, id int64) error {
	secret, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	return m.Delete(ctx, secret)
}

// Get returns the secret row.
func (m *Manager) Get(ctx context.Context, id int64) (*model.Secret, error) {
	secret, err := m.secrets.GetSecret(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get secret %d: %w", id, err)
	}
	return secret, nil
}

// Reveal reads the authoritative value from the credential store.
func (m *Manager) Reveal(ctx context.Context, secret *model.Secret) (string, error) {
	value, err := m.creds.Get(ctx, secret.SSMPath)
	if err != nil {
		return "", fmt.Errorf("read credential: %w", err)
	}
	return value, nil
}

// DeleteProject deletes every secret of the project with write-through
// semantics, in ID order, then the project row. deleted, when not nil, is
// called after each secret is gone from both stores; an error from it aborts
// like a failed delete. The first failure aborts; secrets deleted before it
// stay deleted.
func (m *Manager) DeleteProject(ctx context.Context, project *model.Project, deleted func(ctx context.Context, secret *model.Secret) error) error {
	secrets, err := m.secrets.ListSecrets(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("list project secrets: %w", err)
	}

	for i := range secrets {
		if err := m.Delete(ctx, &secrets[i]); err != nil {
			return fmt.Errorf("delete secret %q of project %d: %w", secrets[i].Name, project.ID, err)
		}
		if deleted == nil {
			continue
		}
		if err := deleted(ctx, &secrets[i]); err != nil {
			return fmt.Errorf("after deleting secret %q of project %d: %w", secrets[i].Name, project.ID, err)
		}
	}

	if err := m.projects.DeleteProject(ctx, project.ID); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

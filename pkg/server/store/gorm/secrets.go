package gorm

import (
	"context"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/keyvault/pkg/model"
	"github.com/doodlesbykumbi/keyvault/pkg/server/store"
)

// Ensure SecretsStore implements store.SecretsStore
var _ store.SecretsStore = (*SecretsStore)(nil)

// SecretsStore implements store.SecretsStore using GORM
type SecretsStore struct {
	db *gorm.DB
}

// NewSecretsStore creates a new SecretsStore
func NewSecretsStore(db *gorm.DB) *SecretsStore {
	return &SecretsStore{db: db}
}

// CreateSecret inserts a secret row.
func (s *SecretsStore) CreateSecret(ctx context.Context, secret *model.Secret) error {
	return translateError(s.db.WithContext(ctx).Create(secret).Error)
}

// GetSecret fetches a secret by ID.
func (s *SecretsStore) GetSecret(ctx context.Context, id int64) (*model.Secret, error) {
	var secret model.Secret
	if err := s.db.WithContext(ctx).First(&secret, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &secret, nil
}

// GetSecretBySSMPath fetches the secret that owns a credential store path.
func (s *SecretsStore) GetSecretBySSMPath(ctx context.Context, path string) (*model.Secret, error) {
	var secret model.Secret
	if err := s.db.WithContext(ctx).Where("ssm_path = ?", path).Take(&secret).Error; err != nil {
		return nil, translateError(err)
	}
	return &secret, nil
}

// ListSecrets returns the secrets of a project.
func (s *SecretsStore) ListSecrets(ctx context.Context, projectID int64) ([]model.Secret, error) {
	var secrets []model.Secret
	err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Order("id").Find(&secrets).Error
	if err != nil {
		return nil, err
	}
	return secrets, nil
}

// UpdateSecret saves the mutable secret fields. ssm_path is not among them.
func (s *SecretsStore) UpdateSecret(ctx context.Context, secret *model.Secret) error {
	tx := s.db.WithContext(ctx).
		Model(secret).
		Select("name", "value", "description", "is_encrypted", "updated_at").
		Updates(secret)
	return requireAffected(tx)
}

// DeleteSecret deletes a secret row by ID.
func (s *SecretsStore) DeleteSecret(ctx context.Context, id int64) error {
	return requireAffected(s.db.WithContext(ctx).Delete(&model.Secret{}, id))
}

// GetSecretsByIDs fetches secrets in bulk for activity enrichment.
func (s *SecretsStore) GetSecretsByIDs(ctx context.Context, ids []int64) (map[int64]model.Secret, error) {
	result := make(map[int64]model.Secret, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var secrets []model.Secret
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&secrets).Error; err != nil {
		return nil, err
	}
	for _, sec := range secrets {
		result[sec.ID] = sec
	}
	return result, nil
}

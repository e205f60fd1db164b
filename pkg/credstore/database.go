package credstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doodlesbykumbi/keyvault/pkg/cipher"
	"github.com/doodlesbykumbi/keyvault/pkg/model"
)

// ErrNoDataKey is returned when an encrypted value is written or read without
// a data key configured.
var ErrNoDataKey = errors.New("no data key configured for encrypted credentials")

// DatabaseStore implements Store on the credential_parameters table.
// Encrypted values are sealed with the data key, bound to their path.
type DatabaseStore struct {
	db     *gorm.DB
	sealer cipher.Sealer
}

var _ Store = (*DatabaseStore)(nil)

// NewDatabaseStore creates a DatabaseStore. sealer may be nil, in which case
// only unencrypted values can be stored.
func NewDatabaseStore(db *gorm.DB, sealer cipher.Sealer) *DatabaseStore {
	return &DatabaseStore{db: db, sealer: sealer}
}

func (s *DatabaseStore) Put(ctx context.Context, path, value string, encrypted bool) error {
	stored := []byte(value)
	if encrypted {
		if s.sealer == nil {
			return ErrNoDataKey
		}
		sealed, err := s.sealer.Seal([]byte(path), stored)
		if err != nil {
			return fmt.Errorf("seal credential %s: %w", path, err)
		}
		stored = sealed
	}

	param := &model.Parameter{Path: path, Value: stored, Encrypted: encrypted}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "encrypted", "updated_at"}),
	}).Create(param).Error
	if err != nil {
		return fmt.Errorf("put credential %s: %w", path, err)
	}
	return nil
}

func (s *DatabaseStore) Get(ctx context.Context, path string) (string, error) {
	var param model.Parameter
	err := s.db.WithContext(ctx).Where("path = ?", path).Take(&param).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", notFound(path)
	}
	if err != nil {
		return "", fmt.Errorf("get credential %s: %w", path, err)
	}

	if !param.Encrypted {
		return string(param.Value), nil
	}
	if s.sealer == nil {
		return "", ErrNoDataKey
	}
	plain, err := s.sealer.Open([]byte(path), param.Value)
	if err != nil {
		return "", fmt.Errorf("open credential %s: %w", path, err)
	}
	return string(plain), nil
}

func (s *DatabaseStore) Delete(ctx context.Context, path string) error {
	tx := s.db.WithContext(ctx).Where("path = ?", path).Delete(&model.Parameter{})
	if tx.Error != nil {
		return fmt.Errorf("delete credential %s: %w", path, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return notFound(path)
	}
	return nil
}

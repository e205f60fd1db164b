package gorm

import (
	"context"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/keyvault/pkg/model"
	"github.com/doodlesbykumbi/keyvault/pkg/server/store"
)

// Ensure ActivityStore implements store.ActivityStore
var _ store.ActivityStore = (*ActivityStore)(nil)

// ActivityStore implements store.ActivityStore using GORM
type ActivityStore struct {
	db *gorm.DB
}

// NewActivityStore creates a new ActivityStore
func NewActivityStore(db *gorm.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// AppendActivity inserts an activity log entry.
func (s *ActivityStore) AppendActivity(ctx context.Context, entry *model.ActivityLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

// ListActivity returns entries matching filter, newest first.
func (s *ActivityStore) ListActivity(ctx context.Context, filter store.ActivityFilter) ([]model.ActivityLog, error) {
	db := s.db.WithContext(ctx)
	q := db.Model(&model.ActivityLog{})

	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.ProjectID != nil {
		projectSecrets := db.Model(&model.Secret{}).Select("id").Where("project_id = ?", *filter.ProjectID)
		q = q.Where(
			"((resource_type = ? AND resource_id = ?) OR (resource_type = ? AND resource_id IN (?)))",
			model.ResourceProject, *filter.ProjectID,
			model.ResourceSecret, projectSecrets,
		)
	}

	q = q.Order(`"timestamp" DESC, id DESC`)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var logs []model.ActivityLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

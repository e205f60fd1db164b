package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doodlesbykumbi/keyvault/pkg/model"
	"github.com/doodlesbykumbi/keyvault/pkg/server/store"
)

// Ensure MembershipsStore implements store.MembershipsStore
var _ store.MembershipsStore = (*MembershipsStore)(nil)

// MembershipsStore implements store.MembershipsStore using GORM
type MembershipsStore struct {
	db *gorm.DB
}

// NewMembershipsStore creates a new MembershipsStore
func NewMembershipsStore(db *gorm.DB) *MembershipsStore {
	return &MembershipsStore{db: db}
}

// ProjectRole looks up the role a user holds in a project.
func (s *MembershipsStore) ProjectRole(ctx context.Context, userID, projectID int64) (*model.ProjectRole, error) {
	var m model.UserProjectRole
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND project_id = ?", userID, projectID).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m.Role, nil
}

// AssignRole upserts a membership on (user_id, project_id).
func (s *MembershipsStore) AssignRole(ctx context.Context, m *model.UserProjectRole) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "project_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role"}),
	}).Create(m).Error
	return translateError(err)
}

// GetMembership fetches a membership by ID.
func (s *MembershipsStore) GetMembership(ctx context.Context, id int64) (*model.UserProjectRole, error) {
	var m model.UserProjectRole
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &m, nil
}

// RemoveMembership deletes a membership by ID.
func (s *MembershipsStore) RemoveMembership(ctx context.Context, id int64) error {
	return requireAffected(s.db.WithContext(ctx).Delete(&model.UserProjectRole{}, id))
}

// ListMembers returns a project's members with their usernames.
func (s *MembershipsStore) ListMembers(ctx context.Context, projectID int64) ([]store.Member, error) {
	query := `
		SELECT upr.id, upr.user_id, upr.project_id, upr.role, u.username, u.email
		FROM user_project_roles upr
		JOIN users u ON u.id = upr.user_id
		WHERE upr.project_id = ?
		ORDER BY upr.id
	`

	var members []store.Member
	if err := s.db.WithContext(ctx).Raw(query, projectID).Scan(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

package gorm

import (
	"context"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/keyvault/pkg/model"
	"github.com/doodlesbykumbi/keyvault/pkg/server/store"
)

// Ensure ProjectsStore implements store.ProjectsStore
var _ store.ProjectsStore = (*ProjectsStore)(nil)

// ProjectsStore implements store.ProjectsStore using GORM
type ProjectsStore struct {
	db *gorm.DB
}

// NewProjectsStore creates a new ProjectsStore
func NewProjectsStore(db *gorm.DB) *ProjectsStore {
	return &ProjectsStore{db: db}
}

// CreateProject inserts the project and its creator's admin membership
// atomically.
func (s *ProjectsStore) CreateProject(ctx context.Context, project *model.Project, ownerID int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}
		return tx.Create(&model.UserProjectRole{
			UserID:    ownerID,
			ProjectID: project.ID,
			Role:      model.ProjectRoleAdmin,
		}).Error
	})
	return translateError(err)
}

// GetProject fetches a project by ID.
func (s *ProjectsStore) GetProject(ctx context.Context, id int64) (*model.Project, error) {
	var project model.Project
	if err := s.db.WithContext(ctx).First(&project, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &project, nil
}

// ListProjects returns every project.
func (s *ProjectsStore) ListProjects(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	if err := s.db.WithContext(ctx).Order("id").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// ListProjectsForUser returns the projects a user is a member of.
func (s *ProjectsStore) ListProjectsForUser(ctx context.Context, userID int64) ([]model.Project, error) {
	var projects []model.Project
	err := s.db.WithContext(ctx).
		Joins("JOIN user_project_roles ON user_project_roles.project_id = projects.id").
		Where("user_project_roles.user_id = ?", userID).
		Order("projects.id").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// UpdateProject saves the mutable project fields.
func (s *ProjectsStore) UpdateProject(ctx context.Context, project *model.Project) error {
	tx := s.db.WithContext(ctx).Model(project).Select("name", "description").Updates(project)
	return requireAffected(tx)
}

// DeleteProject deletes a project by ID.
func (s *ProjectsStore) DeleteProject(ctx context.Context, id int64) error {
	return requireAffected(s.db.WithContext(ctx).Delete(&model.Project{}, id))
}

// GetProjectsByIDs fetches projects in bulk for activity enrichment.
func (s *ProjectsStore) GetProjectsByIDs(ctx context.Context, ids []int64) (map[int64]model.Project, error) {
	result := make(map[int64]model.Project, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var projects []model.Project
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&projects).Error; err != nil {
		return nil, err
	}
	for _, p := range projects {
		result[p.ID] = p
	}
	return result, nil
}

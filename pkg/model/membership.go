package model

// ProjectRole is a role scoped to one (user, project) pair.
type ProjectRole string

const (
	ProjectRoleAdmin  ProjectRole = "admin"
	ProjectRoleEditor ProjectRole = "editor"
	ProjectRoleViewer ProjectRole = "viewer"
)

// Valid reports whether r is a known project role.
func (r ProjectRole) Valid() bool {
	switch r {
	case ProjectRoleAdmin, ProjectRoleEditor, ProjectRoleViewer:
		return true
	}
	return false
}

// UserProjectRole grants a user a role inside a project. There is at most one
// row per (user, project).
type UserProjectRole struct {
	ID        int64       `gorm:"column:id;primaryKey" json:"id"`
	UserID    int64       `gorm:"column:user_id;not null;uniqueIndex:idx_user_project" json:"userId"`
	ProjectID int64       `gorm:"column:project_id;not null;uniqueIndex:idx_user_project" json:"projectId"`
	Role      ProjectRole `gorm:"column:role;not null" json:"role"`
}

func (UserProjectRole) TableName() string {
	return "user_project_roles"
}

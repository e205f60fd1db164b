package gorm

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/keyvault/pkg/model"
)

var membershipColumns = []string{"id", "user_id", "project_id", "role"}

func TestMembershipsStore_ProjectRole(t *testing.T) {
	t.Run("member", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`SELECT \* FROM "user_project_roles" WHERE user_id = \$1 AND project_id = \$2`).
			WithArgs(int64(2), int64(1), 1).
			WillReturnRows(sqlmock.NewRows(membershipColumns).AddRow(1, 2, 1, "viewer"))

		role, err := NewMembershipsStore(db).ProjectRole(context.Background(), 2, 1)
		require.NoError(t, err)
		require.NotNil(t, role)
		assert.Equal(t, model.ProjectRoleViewer, *role)
	})

	t.Run("not a member", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`SELECT \* FROM "user_project_roles"`).
			WillReturnRows(sqlmock.NewRows(membershipColumns))

		role, err := NewMembershipsStore(db).ProjectRole(context.Background(), 2, 1)
		require.NoError(t, err)
		assert.Nil(t, role)
	})

	t.Run("lookup failure", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`SELECT \* FROM "user_project_roles"`).
			WillReturnError(errors.New("connection refused"))

		_, err := NewMembershipsStore(db).ProjectRole(context.Background(), 2, 1)
		assert.Error(t, err)
	})
}

func TestMembershipsStore_AssignRoleUpserts(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewMembershipsStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "user_project_roles" .* ON CONFLICT \("user_id","project_id"\) DO UPDATE SET "role"="excluded"."role" RETURNING "id"`).
		WithArgs(int64(4), int64(1), model.ProjectRoleEditor).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
	mock.ExpectCommit()

	m := &model.UserProjectRole{UserID: 4, ProjectID: 1, Role: model.ProjectRoleEditor}
	require.NoError(t, s.AssignRole(context.Background(), m))
	assert.Equal(t, int64(12), m.ID)
}

func TestMembershipsStore_ListMembers(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewMembershipsStore(db)

	mock.ExpectQuery(`SELECT upr.id, upr.user_id, upr.project_id, upr.role, u.username, u.email`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(append(membershipColumns, "username", "email")).
			AddRow(1, 3, 1, "admin", "alice", "alice@example.com").
			AddRow(2, 4, 1, "viewer", "bob", "bob@example.com"))

	members, err := s.ListMembers(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "bob", members[1].Username)
	assert.Equal(t, model.ProjectRoleViewer, members[1].Role)
}

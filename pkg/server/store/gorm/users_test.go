package gorm

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/keyvault/pkg/model"
	"github.com/doodlesbykumbi/keyvault/pkg/server/store"
)

var userColumns = []string{"id", "username", "password", "email", "full_name", "role", "created_at"}

func TestUsersStore_CreateUser(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewUsersStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	user := &model.User{Username: "alice", Password: "hash", Email: "alice@example.com"}
	require.NoError(t, s.CreateUser(context.Background(), user))
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, model.GlobalRoleUser, user.Role)
}

func TestUsersStore_CreateUserConflict(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewUsersStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})
	mock.ExpectRollback()

	err := s.CreateUser(context.Background(), &model.User{Username: "alice", Email: "a@example.com"})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestUsersStore_GetUser(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewUsersStore(db)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE "users"."id" = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "alice", "hash", "alice@example.com", "Alice", "admin", time.Now()))

	user, err := s.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, user.IsAdmin())
}

func TestUsersStore_GetUserNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewUsersStore(db)

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := s.GetUser(context.Background(), 99)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsersStore_GetUserByUsername(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewUsersStore(db)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE username = \$1`).
		WithArgs("bob", 1).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(2, "bob", "hash", "bob@example.com", "", "user", time.Now()))

	user, err := s.GetUserByUsername(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2), user.ID)
	assert.False(t, user.IsAdmin())
}

func TestUsersStore_GetUsersByIDs(t *testing.T) {
	t.Run("empty input skips the query", func(t *testing.T) {
		db, _ := newMockDB(t)
		users, err := NewUsersStore(db).GetUsersByIDs(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("keys results by id", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`SELECT \* FROM "users" WHERE id IN \(\$1,\$2\)`).
			WithArgs(1, 2).
			WillReturnRows(sqlmock.NewRows(userColumns).
				AddRow(1, "alice", "h", "a@example.com", "", "admin", time.Now()).
				AddRow(2, "bob", "h", "b@example.com", "", "user", time.Now()))

		users, err := NewUsersStore(db).GetUsersByIDs(context.Background(), []int64{1, 2})
		require.NoError(t, err)
		assert.Len(t, users, 2)
		assert.Equal(t, "bob", users[2].Username)
	})
}

package gorm

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/keyvault/pkg/model"
	"github.com/doodlesbykumbi/keyvault/pkg/server/store"
)

var activityColumns = []string{"id", "user_id", "action", "resource_type", "resource_id", "details", "timestamp"}

func TestActivityStore_AppendActivity(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewActivityStore(db)

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "activity_logs"`).
		WithArgs(int64(1), model.ActionCreated, model.ResourceSecret, int64(9), "Created secret: DB_PASS", ts).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(100))
	mock.ExpectCommit()

	entry := &model.ActivityLog{
		UserID:       1,
		Action:       model.ActionCreated,
		ResourceType: model.ResourceSecret,
		ResourceID:   9,
		Details:      "Created secret: DB_PASS",
		Timestamp:    ts,
	}
	require.NoError(t, s.AppendActivity(context.Background(), entry))
	assert.Equal(t, int64(100), entry.ID)
}

func TestActivityStore_ListActivityNewestFirst(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewActivityStore(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT \* FROM "activity_logs" ORDER BY "timestamp" DESC, id DESC LIMIT \$1`).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows(activityColumns).
			AddRow(2, 1, "updated", "secret", 9, "", now).
			AddRow(1, 1, "created", "secret", 9, "", now.Add(-time.Minute)))

	logs, err := s.ListActivity(context.Background(), store.ActivityFilter{Limit: 50})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.ActionUpdated, logs[0].Action)
}

func TestActivityStore_ListActivityByUser(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewActivityStore(db)

	userID := int64(4)
	mock.ExpectQuery(`SELECT \* FROM "activity_logs" WHERE user_id = \$1 ORDER BY`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(activityColumns))

	logs, err := s.ListActivity(context.Background(), store.ActivityFilter{UserID: &userID})
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestActivityStore_ListActivityByProject(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewActivityStore(db)

	projectID := int64(1)
	mock.ExpectQuery(`SELECT \* FROM "activity_logs" WHERE \(\(resource_type = \$1 AND resource_id = \$2\) OR \(resource_type = \$3 AND resource_id IN \(SELECT .*id.* FROM "secrets" WHERE project_id = \$4\)\)\)`).
		WithArgs(model.ResourceProject, projectID, model.ResourceSecret, projectID).
		WillReturnRows(sqlmock.NewRows(activityColumns).
			AddRow(3, 1, "created", "secret", 5, "", time.Now()).
			AddRow(1, 1, "created", "project", 1, "", time.Now()))

	logs, err := s.ListActivity(context.Background(), store.ActivityFilter{ProjectID: &projectID})
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

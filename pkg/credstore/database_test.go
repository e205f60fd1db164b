package credstore

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/doodlesbykumbi/keyvault/pkg/cipher"
)

func newMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(
		postgres.New(postgres.Config{
			Conn:                 db,
			PreferSimpleProtocol: true,
		}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		},
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return gormDB, mock
}

func testSealer(t *testing.T) *cipher.AESGCM {
	t.Helper()
	key, err := cipher.RandomBytes(cipher.KeySize)
	require.NoError(t, err)
	c, err := cipher.New(key)
	require.NoError(t, err)
	return c
}

// sealedArg checks the stored bytes open to want under path.
type sealedArg struct {
	sealer cipher.Sealer
	path   string
	want   string
}

func (a sealedArg) Match(v driver.Value) bool {
	b, ok := v.([]byte)
	if !ok {
		return false
	}
	plain, err := a.sealer.Open([]byte(a.path), b)
	return err == nil && string(plain) == a.want
}

func TestDatabaseStore_PutEncryptedUpserts(t *testing.T) {
	db, mock := newMockGorm(t)
	sealer := testSealer(t)
	s := NewDatabaseStore(db, sealer)
	path := "/keyvault/p/DB_PASS"

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "credential_parameters"`) + `.*` +
		regexp.QuoteMeta(`ON CONFLICT ("path") DO UPDATE SET "value"="excluded"."value","encrypted"="excluded"."encrypted","updated_at"="excluded"."updated_at"`)).
		WithArgs(path, sealedArg{sealer: sealer, path: path, want: "hunter2"}, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Put(context.Background(), path, "hunter2", true))
}

func TestDatabaseStore_PutEncryptedWithoutKey(t *testing.T) {
	db, _ := newMockGorm(t)
	s := NewDatabaseStore(db, nil)

	err := s.Put(context.Background(), "/keyvault/p/X", "v", true)
	assert.ErrorIs(t, err, ErrNoDataKey)
}

func TestDatabaseStore_GetOpensSealedValue(t *testing.T) {
	db, mock := newMockGorm(t)
	sealer := testSealer(t)
	s := NewDatabaseStore(db, sealer)
	path := "/keyvault/p/DB_PASS"

	sealed, err := sealer.Seal([]byte(path), []byte("hunter2"))
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT \* FROM "credential_parameters" WHERE path = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"path", "value", "encrypted", "updated_at"}).
			AddRow(path, sealed, true, time.Now()))

	value, err := s.Get(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", value)
}

func TestDatabaseStore_GetMissing(t *testing.T) {
	db, mock := newMockGorm(t)
	s := NewDatabaseStore(db, nil)

	mock.ExpectQuery(`SELECT \* FROM "credential_parameters"`).
		WillReturnRows(sqlmock.NewRows([]string{"path", "value", "encrypted", "updated_at"}))

	_, err := s.Get(context.Background(), "/keyvault/p/NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDatabaseStore_DeleteMissing(t *testing.T) {
	db, mock := newMockGorm(t)
	s := NewDatabaseStore(db, nil)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "credential_parameters" WHERE path = \$1`).
		WithArgs("/keyvault/p/NOPE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := s.Delete(context.Background(), "/keyvault/p/NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

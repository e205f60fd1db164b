package gorm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/keyvault/pkg/server/store"
)

func TestTranslateError(t *testing.T) {
	plain := errors.New("connection reset")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"record not found", gorm.ErrRecordNotFound, store.ErrNotFound},
		{"wrapped record not found", fmt.Errorf("lookup: %w", gorm.ErrRecordNotFound), store.ErrNotFound},
		{"duplicated key", gorm.ErrDuplicatedKey, store.ErrConflict},
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "secrets_ssm_path_key"}, store.ErrConflict},
		{"other pg error", &pgconn.PgError{Code: "23503"}, nil},
		{"other error", plain, plain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.in)
			switch {
			case tt.in == nil:
				assert.NoError(t, got)
			case tt.want == nil:
				assert.Equal(t, tt.in, got)
			default:
				assert.ErrorIs(t, got, tt.want)
			}
		})
	}
}

package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	require.NoError(t, MapError(nil))

	plain := errors.New("boom")
	require.Same(t, plain, MapError(plain))

	tests := []struct {
		code string
		want error
	}{
		{pgerrcode.UniqueViolation, ErrUniqueViolation},
		{pgerrcode.ForeignKeyViolation, ErrForeignKeyViolation},
		{pgerrcode.CheckViolation, ErrCheckViolation},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			pgErr := &pgconn.PgError{Code: tt.code, ConstraintName: "some_constraint"}
			err := MapError(fmt.Errorf("insert: %w", pgErr))
			require.ErrorIs(t, err, tt.want)
			require.ErrorContains(t, err, "some_constraint")

			var got *pgconn.PgError
			require.ErrorAs(t, err, &got)
			require.Equal(t, tt.code, got.Code)
		})
	}

	other := MapError(&pgconn.PgError{Code: pgerrcode.SyntaxError, Message: "bad sql"})
	require.NotErrorIs(t, other, ErrUniqueViolation)
	require.ErrorContains(t, other, "bad sql")
}

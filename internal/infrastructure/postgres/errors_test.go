package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/labstock/internal/domain"
)

func TestClassify_CodigosPostgres(t *testing.T) {
	cases := []struct {
		code      string
		want      error
		retryable bool
	}{
		{codeUniqueViolation, domain.ErrDuplicate, false},
		{codeForeignKeyViolation, domain.ErrConflict, false},
		{codeCheckViolation, domain.ErrValidation, false},
		{codeLockNotAvailable, domain.ErrInfrastructure, true},
		{codeQueryCanceled, domain.ErrInfrastructure, true},
		{codeSerializationFailure, domain.ErrInfrastructure, true},
		{codeDeadlockDetected, domain.ErrInfrastructure, true},
		{"XX000", domain.ErrInfrastructure, true},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			pgErr := &pgconn.PgError{Code: tc.code, ConstraintName: "c"}
			err := classify("op", fmt.Errorf("wrap: %w", pgErr))
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, tc.retryable, domain.IsRetryable(err))
			assert.True(t, errors.As(err, &pgErr))
		})
	}
}

func TestClassify_ContextoYDominio(t *testing.T) {
	assert.Nil(t, classify("op", nil))
	assert.True(t, domain.IsRetryable(classify("op", context.DeadlineExceeded)))

	de := domain.Validation("x")
	assert.Same(t, de, classify("op", de))
}

func TestNotFoundOr(t *testing.T) {
	err := notFoundOr("get", "lote", int64(3), pgx.ErrNoRows)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, int64(3), domain.FieldsOf(err)["id"])
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: codeUniqueViolation}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}

package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/labstock/internal/domain"
)

// Códigos SQLSTATE relevantes.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeUniqueViolation
	}
	return strings.Contains(err.Error(), codeUniqueViolation)
}

// classify traduce un error de pgx a la taxonomía de dominio.
// Bloqueos, timeouts, conflictos de serialización y fallas de conexión son ErrInfrastructure (reintentables).
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.Infrastructure(op, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			e := domain.NewError(domain.ErrDuplicate, op).With("constraint", pgErr.ConstraintName)
			e.Cause = err
			return e
		case codeForeignKeyViolation:
			e := domain.NewError(domain.ErrConflict, op).With("constraint", pgErr.ConstraintName)
			e.Cause = err
			return e
		case codeCheckViolation:
			e := domain.Validation("%s: restricción %s", op, pgErr.ConstraintName)
			e.Cause = err
			return e
		case codeLockNotAvailable, codeQueryCanceled, codeSerializationFailure, codeDeadlockDetected:
			return domain.Infrastructure(op, err).With("sqlstate", pgErr.Code)
		}
	}
	return domain.Infrastructure(op, err)
}

// notFoundOr devuelve NotFound si no hubo filas; si no, clasifica el error.
func notFoundOr(op, resource string, id any, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFound(resource, id)
	}
	return classify(op, err)
}

package repository

import (
	stderrors "errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"pairchat/pkg/errors"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// pgCode returns the SQLSTATE carried by err, or "".
func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isNoRows(err error) bool {
	return stderrors.Is(err, pgx.ErrNoRows)
}

// mapPgError converts driver errors into AppErrors. resource names the
// entity a missing row refers to.
func mapPgError(err error, resource string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, pgx.ErrNoRows) {
		return errors.NotFound(resource, nil)
	}

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return errors.Conflict(resource + " already exists")
		case pgForeignKeyViolation:
			return errors.NotFound(resource, err)
		case pgCheckViolation:
			return errors.InvalidArgument("Constraint violated on "+resource, err)
		}
		return errors.Internal("Database error on "+resource, err)
	}

	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return errors.StorageUnavailable("Database unavailable", err)
	}
	var connErr *pgconn.ConnectError
	if stderrors.As(err, &connErr) {
		return errors.StorageUnavailable("Database unavailable", err)
	}
	return errors.Internal("Database error on "+resource, err)
}

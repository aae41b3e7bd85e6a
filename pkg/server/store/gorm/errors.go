package gorm

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/tenant-authz/pkg/server/store"
)

// SQLSTATE codes for integrity constraint violations.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// classifyWriteError maps a driver error from an insert into the store taxonomy.
func classifyWriteError(op, table string, err error) error {
	if err == nil {
		return nil
	}
	if isConstraintViolation(err) {
		return &store.ConstraintViolationError{Table: table, Err: err}
	}
	return &store.OperationalError{Op: op, Err: err}
}

func isConstraintViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation || pgErr.Code == pgForeignKeyViolation
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation || string(pqErr.Code) == pgForeignKeyViolation
	}

	// sqlite reports constraint failures only through the message
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "foreign key constraint failed")
}

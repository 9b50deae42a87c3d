package database

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"net/http"
	"strings"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	apperrors "github.com/kbukum/scribegate/errors"
)

func sqliteError(err error) (sqlite3.Error, bool) {
	var se sqlite3.Error
	ok := errors.As(err, &se)
	return se, ok
}

// IsNotFoundError reports a lookup that matched no row.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError reports a unique or primary key violation.
func IsDuplicateError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	if se, ok := sqliteError(err); ok {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsConnectionError reports that the database file or pool is unusable.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	if se, ok := sqliteError(err); ok {
		return se.Code == sqlite3.ErrCantOpen || se.Code == sqlite3.ErrIoErr
	}
	// database/sql keeps its closed-pool error unexported.
	return strings.Contains(err.Error(), "sql: database is closed")
}

// IsRetryableError reports failures that may clear on their own: an
// unusable connection or a writer holding the lock.
func IsRetryableError(err error) bool {
	if IsConnectionError(err) {
		return true
	}
	if se, ok := sqliteError(err); ok {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return err != nil && strings.Contains(err.Error(), "database is locked")
}

func unavailable(msg string, err error) *apperrors.AppError {
	return (&apperrors.AppError{
		Code:       apperrors.ErrCodeDatabaseError,
		Message:    msg,
		HTTPStatus: http.StatusServiceUnavailable,
		Retryable:  true,
	}).WithCause(err)
}

// FromDatabase maps a failed query on resource into the API error taxonomy.
func FromDatabase(err error, resource string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}

	switch {
	case IsNotFoundError(err):
		return apperrors.NotFound(resource, "").WithCause(err)
	case IsDuplicateError(err):
		return apperrors.AlreadyExists(resource).WithCause(err)
	case IsConnectionError(err):
		return unavailable("Database is temporarily unavailable. Please try again.", err)
	case IsRetryableError(err):
		return unavailable("Database is busy. Please try again.", err)
	}
	return apperrors.DatabaseError(err)
}
